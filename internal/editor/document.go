/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor holds the live, in-memory document and is the only place
// that mutates it. Every mutation goes through an Editor method, which
// captures an undo snapshot, applies the change, and notifies subscribers.
package editor

import (
	"encoding/json"
	"sync"
	"time"

	"labelcomposer/internal/domain"
	applog "labelcomposer/internal/log"
	"labelcomposer/internal/undo"
)

// EventKind classifies editor notifications.
type EventKind int

const (
	// DocChanged fires after any mutation of label content or order.
	DocChanged EventKind = iota
	// SelectionChanged fires when the selected label changes, including to none.
	SelectionChanged
	// ImageResolved fires when a durable or session image for a label became
	// displayable; carries the label id.
	ImageResolved
)

// Event is delivered to subscribers after a mutation has been applied.
type Event struct {
	Kind    EventKind
	LabelID string
}

// Observer receives editor events. Observers are called synchronously, in
// subscription order, outside the editor lock.
type Observer func(Event)

// Patch describes a partial label update; nil fields are left untouched.
type Patch struct {
	Title         *string
	Image         *domain.ImageRef
	TitleFontSize *int
}

// Editor owns the mutable document. Safe for concurrent use; reads hand out
// deep copies so callers can never alias internal state.
type Editor struct {
	mu        sync.Mutex
	doc       domain.Document
	history   *undo.Manager
	observers map[int]Observer
	nextObs   int
}

// New wraps an existing document, typically the one loaded from durable
// state at startup.
func New(doc domain.Document) *Editor {
	return &Editor{
		doc:       doc.Clone(),
		history:   undo.NewManager(undo.Config{MaxDepth: 200}),
		observers: make(map[int]Observer),
	}
}

// Document returns a deep copy of the current state.
func (e *Editor) Document() domain.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// Subscribe registers an observer and returns its unsubscribe function.
func (e *Editor) Subscribe(fn Observer) func() {
	e.mu.Lock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.observers, id)
		e.mu.Unlock()
	}
}

func (e *Editor) notify(events ...Event) {
	e.mu.Lock()
	obs := make([]Observer, 0, len(e.observers))
	for _, fn := range e.observers {
		obs = append(obs, fn)
	}
	e.mu.Unlock()
	for _, fn := range obs {
		for _, ev := range events {
			fn(ev)
		}
	}
}

// snapshotLocked captures the current document for undo. Marshal of the
// domain model cannot fail; errors here indicate a programming bug.
func (e *Editor) snapshotLocked() {
	blob, err := json.Marshal(e.doc)
	if err != nil {
		applog.WithComponent("editor").Error("snapshot failed", "err", err)
		return
	}
	e.history.Push(undo.Snapshot{Blob: blob, TS: time.Now()})
}

// SetProjectName replaces the shared project name.
func (e *Editor) SetProjectName(name string) {
	e.mu.Lock()
	if e.doc.ProjectName == name {
		e.mu.Unlock()
		return
	}
	e.snapshotLocked()
	e.doc.ProjectName = name
	e.mu.Unlock()
	e.notify(Event{Kind: DocChanged})
}

// AddLabel appends a fresh label with default title and size and selects it.
func (e *Editor) AddLabel() domain.Label {
	l := domain.Label{
		ID:            domain.NewLabelID(),
		Title:         domain.NewLabelTitle,
		TitleFontSize: domain.DefaultTitleFontSize,
	}
	e.mu.Lock()
	e.snapshotLocked()
	e.doc.Labels = append(e.doc.Labels, l)
	e.doc.SelectedLabelID = l.ID
	e.mu.Unlock()
	e.notify(Event{Kind: DocChanged}, Event{Kind: SelectionChanged, LabelID: l.ID})
	return l
}

// DeleteLabel removes the label with the given id. When the deleted label
// was selected, selection moves to the label now at the freed index, falling
// back to the previous one, or to none when the document became empty.
func (e *Editor) DeleteLabel(id string) bool {
	e.mu.Lock()
	idx := e.doc.LabelIndex(id)
	if idx < 0 {
		e.mu.Unlock()
		return false
	}
	e.snapshotLocked()
	wasSelected := e.doc.SelectedLabelID == id
	e.doc.Labels = append(e.doc.Labels[:idx], e.doc.Labels[idx+1:]...)
	events := []Event{{Kind: DocChanged}}
	if wasSelected {
		switch {
		case idx < len(e.doc.Labels):
			e.doc.SelectedLabelID = e.doc.Labels[idx].ID
		case len(e.doc.Labels) > 0:
			e.doc.SelectedLabelID = e.doc.Labels[len(e.doc.Labels)-1].ID
		default:
			e.doc.SelectedLabelID = ""
		}
		events = append(events, Event{Kind: SelectionChanged, LabelID: e.doc.SelectedLabelID})
	}
	e.mu.Unlock()
	e.notify(events...)
	return true
}

// DuplicateLabel clones the label with the given id, inserting the copy
// directly after the original under a fresh id, and selects the copy.
func (e *Editor) DuplicateLabel(id string) (domain.Label, bool) {
	e.mu.Lock()
	idx := e.doc.LabelIndex(id)
	if idx < 0 {
		e.mu.Unlock()
		return domain.Label{}, false
	}
	e.snapshotLocked()
	dup := e.doc.Labels[idx].Clone()
	dup.ID = domain.NewLabelID()
	e.doc.Labels = append(e.doc.Labels, domain.Label{})
	copy(e.doc.Labels[idx+2:], e.doc.Labels[idx+1:])
	e.doc.Labels[idx+1] = dup
	e.doc.SelectedLabelID = dup.ID
	e.mu.Unlock()
	e.notify(Event{Kind: DocChanged}, Event{Kind: SelectionChanged, LabelID: dup.ID})
	return dup, true
}

// UpdateLabel applies a partial update to the label with the given id.
func (e *Editor) UpdateLabel(id string, p Patch) bool {
	e.mu.Lock()
	idx := e.doc.LabelIndex(id)
	if idx < 0 {
		e.mu.Unlock()
		return false
	}
	e.snapshotLocked()
	l := &e.doc.Labels[idx]
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Image != nil {
		l.Image = *p.Image
	}
	if p.TitleFontSize != nil {
		l.TitleFontSize = *p.TitleFontSize
	}
	e.mu.Unlock()
	e.notify(Event{Kind: DocChanged, LabelID: id})
	return true
}

// Select marks the label with the given id as selected. Selecting an unknown
// id is a no-op. Selection changes are not undoable on their own.
func (e *Editor) Select(id string) bool {
	e.mu.Lock()
	if e.doc.LabelIndex(id) < 0 {
		e.mu.Unlock()
		return false
	}
	if e.doc.SelectedLabelID == id {
		e.mu.Unlock()
		return true
	}
	e.doc.SelectedLabelID = id
	e.mu.Unlock()
	e.notify(Event{Kind: SelectionChanged, LabelID: id})
	return true
}

// ClearSelection drops the selection.
func (e *Editor) ClearSelection() {
	e.mu.Lock()
	if e.doc.SelectedLabelID == "" {
		e.mu.Unlock()
		return
	}
	e.doc.SelectedLabelID = ""
	e.mu.Unlock()
	e.notify(Event{Kind: SelectionChanged})
}

// Replace swaps in a whole new document, as after an import. The previous
// state is undoable.
func (e *Editor) Replace(doc domain.Document) {
	e.mu.Lock()
	e.snapshotLocked()
	e.doc = doc.Clone()
	sel := e.doc.SelectedLabelID
	e.mu.Unlock()
	e.notify(Event{Kind: DocChanged}, Event{Kind: SelectionChanged, LabelID: sel})
}

// Undo restores the most recent snapshot. Returns false when there is
// nothing to undo.
func (e *Editor) Undo() bool { return e.restore(e.history.Undo) }

// Redo reapplies the most recently undone change.
func (e *Editor) Redo() bool { return e.restore(e.history.Redo) }

func (e *Editor) restore(pop func([]byte) (undo.Snapshot, bool)) bool {
	e.mu.Lock()
	current, err := json.Marshal(e.doc)
	if err != nil {
		e.mu.Unlock()
		return false
	}
	s, ok := pop(current)
	if !ok {
		e.mu.Unlock()
		return false
	}
	var doc domain.Document
	if err := json.Unmarshal(s.Blob, &doc); err != nil {
		applog.WithComponent("editor").Error("restore snapshot failed", "err", err)
		e.mu.Unlock()
		return false
	}
	e.doc = doc
	sel := e.doc.SelectedLabelID
	e.mu.Unlock()
	e.notify(Event{Kind: DocChanged}, Event{Kind: SelectionChanged, LabelID: sel})
	return true
}

// NotifyImageResolved signals that the image of the given label is ready to
// display. Used by the resolver after async blob loads.
func (e *Editor) NotifyImageResolved(labelID string) {
	e.notify(Event{Kind: ImageResolved, LabelID: labelID})
}
