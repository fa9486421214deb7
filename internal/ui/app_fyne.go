//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"labelcomposer/internal/crash"
	"labelcomposer/internal/domain"
	"labelcomposer/internal/editor"
	"labelcomposer/internal/htmltext"
	applog "labelcomposer/internal/log"
	"labelcomposer/internal/pagination"
	"labelcomposer/internal/portability"
	"labelcomposer/internal/storage"
)

// Run starts the Fyne-based editor over the durable state in stateDir.
func Run(stateDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI", "stateDir", stateDir)

	store := storage.NewDocumentStore(stateDir)
	blobs, err := storage.OpenBlobStore(stateDir)
	if err != nil {
		l.Warn("blob store unavailable, images will be inlined", "err", err)
		blobs = nil
	}
	doc, ok := store.Load()
	if !ok {
		doc = domain.NewDocument()
	}
	ed := editor.New(doc)
	saver := editor.NewAutosaver(ed, store)
	defer saver.Close()
	ingest := editor.NewIngestor(blobs)

	defer crash.Recover(store, ed.Document)

	fyneApp := app.NewWithID("labelcomposer")
	w := fyneApp.NewWindow("Label Composer")
	w.Resize(fyne.NewSize(1100, 720))

	status := widget.NewLabel("Ready")
	setStatus := func(format string, args ...any) { status.SetText(fmt.Sprintf(format, args...)) }

	var refreshList func()

	labelTitles := func() []string {
		d := ed.Document()
		out := make([]string, len(d.Labels))
		for i, lb := range d.Labels {
			out[i] = htmltext.Strip(lb.Title)
		}
		return out
	}
	titles := labelTitles()

	list := widget.NewList(
		func() int { return len(titles) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(titles[i])
		},
	)
	list.OnSelected = func(i widget.ListItemID) {
		d := ed.Document()
		if i >= 0 && i < len(d.Labels) {
			ed.Select(d.Labels[i].ID)
		}
	}

	titleEntry := widget.NewMultiLineEntry()
	titleEntry.SetPlaceHolder("Label title (HTML)")
	sizeEntry := widget.NewEntry()
	sizeEntry.SetPlaceHolder(strconv.Itoa(domain.DefaultTitleFontSize))

	syncDetail := func() {
		d := ed.Document()
		if sel, ok := d.SelectedLabel(); ok {
			titleEntry.SetText(sel.Title)
			sizeEntry.SetText(strconv.Itoa(sel.EffectiveTitleFontSize()))
		} else {
			titleEntry.SetText("")
			sizeEntry.SetText("")
		}
	}

	titleEntry.OnChanged = func(s string) {
		d := ed.Document()
		if sel, ok := d.SelectedLabel(); ok && sel.Title != s {
			ed.UpdateLabel(sel.ID, editor.Patch{Title: &s})
		}
	}
	sizeEntry.OnChanged = func(s string) {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return
		}
		d := ed.Document()
		if sel, ok := d.SelectedLabel(); ok && sel.TitleFontSize != n {
			ed.UpdateLabel(sel.ID, editor.Patch{TitleFontSize: &n})
		}
	}

	refreshList = func() {
		titles = labelTitles()
		list.Refresh()
	}
	ed.Subscribe(func(ev editor.Event) {
		switch ev.Kind {
		case editor.DocChanged:
			refreshList()
		case editor.SelectionChanged:
			d := ed.Document()
			if idx := d.LabelIndex(d.SelectedLabelID); idx >= 0 {
				list.Select(idx)
			} else {
				list.UnselectAll()
			}
			syncDetail()
		}
	})

	addBtn := widget.NewButton("Add", func() { ed.AddLabel() })
	dupBtn := widget.NewButton("Duplicate", func() {
		if sel, ok := ed.Document().SelectedLabel(); ok {
			ed.DuplicateLabel(sel.ID)
		}
	})
	delBtn := widget.NewButton("Delete", func() {
		if sel, ok := ed.Document().SelectedLabel(); ok {
			ed.DeleteLabel(sel.ID)
		}
	})
	imgBtn := widget.NewButton("Set Image…", func() {
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				setStatus("read image: %v", err)
				return
			}
			sel, ok := ed.Document().SelectedLabel()
			if !ok {
				return
			}
			ref, err := ingest.Ingest(context.Background(), data)
			if err != nil {
				setStatus("ingest image: %v", err)
				return
			}
			ed.UpdateLabel(sel.ID, editor.Patch{Image: &ref})
			setStatus("image attached")
		}, w)
		fd.Show()
	})

	projectEntry := widget.NewEntry()
	projectEntry.SetText(ed.Document().ProjectName)
	projectEntry.OnChanged = func(s string) { ed.SetProjectName(s) }

	exportBtn := widget.NewButton("Export…", func() {
		d := ed.Document()
		data, err := portability.Export(context.Background(), d, blobs)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		fs := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			defer wc.Close()
			if _, err := wc.Write(data); err != nil {
				dialog.ShowError(err, w)
				return
			}
			setStatus("exported %s", wc.URI().Name())
		}, w)
		fs.SetFileName(portability.ExportFileName(d.ProjectName))
		fs.Show()
	})
	importBtn := widget.NewButton("Import…", func() {
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			next, err := portability.Import(context.Background(), data, ed.Document(), blobs)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			ed.Replace(next)
			projectEntry.SetText(next.ProjectName)
			setStatus("imported %d labels", len(next.Labels))
		}, w)
		fd.Show()
	})

	undoBtn := widget.NewButton("Undo", func() {
		if !ed.Undo() {
			setStatus("nothing to undo")
		}
	})
	redoBtn := widget.NewButton("Redo", func() {
		if !ed.Redo() {
			setStatus("nothing to redo")
		}
	})

	pagesLabel := widget.NewLabel("")
	copiesEntry := widget.NewEntry()
	copiesEntry.SetText("1")
	updatePages := func() {
		copies, _ := strconv.Atoi(copiesEntry.Text)
		pages := pagination.Paginate(ed.Document().Labels, pagination.ClampCopies(copies), pagination.PageCapacity)
		pagesLabel.SetText(fmt.Sprintf("%d sheet(s)", len(pages)))
	}
	copiesEntry.OnChanged = func(string) { updatePages() }
	ed.Subscribe(func(ev editor.Event) {
		if ev.Kind == editor.DocChanged {
			updatePages()
		}
	})
	updatePages()

	left := container.NewBorder(
		container.NewHBox(addBtn, dupBtn, delBtn), nil, nil, nil, list)
	detail := container.NewVBox(
		widget.NewLabel("Project"), projectEntry,
		widget.NewLabel("Title"), titleEntry,
		widget.NewLabel("Title size (pt)"), sizeEntry,
		imgBtn,
		widget.NewSeparator(),
		container.NewHBox(widget.NewLabel("Copies"), copiesEntry, pagesLabel),
		container.NewHBox(undoBtn, redoBtn, exportBtn, importBtn),
	)
	w.SetContent(container.NewBorder(nil, status, left, nil, detail))

	syncDetail()
	w.ShowAndRun()

	if err := saver.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "final save failed: %v\n", err)
	}
	return nil
}
