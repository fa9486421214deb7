/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"labelcomposer/internal/config"
	"labelcomposer/internal/crash"
	"labelcomposer/internal/domain"
	"labelcomposer/internal/export"
	"labelcomposer/internal/library"
	applog "labelcomposer/internal/log"
	"labelcomposer/internal/portability"
	"labelcomposer/internal/storage"
	"labelcomposer/internal/ui"
	"labelcomposer/internal/version"
)

func usage() {
	fmt.Println("Label Composer — A4 label sheet editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  labelcomposer version|-v|--version     Show version")
	fmt.Println("  labelcomposer demo                      Bootstrap a default document in the state dir")
	fmt.Println("  labelcomposer export [<file>]           Write a portable export file (name from project if omitted)")
	fmt.Println("  labelcomposer import <file>             Replace the document from a portable export file")
	fmt.Println("  labelcomposer pdf <out.pdf> [copies]    Render label sheets to PDF")
	fmt.Println("  labelcomposer png <outdir> [copies]     Render label sheets to PNG files")
	fmt.Println("  labelcomposer search <query>            Full-text search over label titles")
	fmt.Println("  labelcomposer gc                        Delete stored images no label references")
	fmt.Println("  labelcomposer push <name>               Upload the document to the library server")
	fmt.Println("  labelcomposer pull <name>               Replace the document from the library server")
	fmt.Println("  labelcomposer serve                     Run the library server (Postgres-backed)")
	fmt.Println("  labelcomposer ui                        Launch desktop UI (build with -tags fyne)")
	fmt.Println()
	fmt.Println("State lives under the per-user config dir; override with PLC_STATE_DIR.")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")

	cfg, token, err := config.Load()
	if err != nil {
		l.Warn("config load", slog.Any("err", err))
	}
	stateDir, err := config.StateDir(cfg)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	var store *storage.DocumentStore
	var current func() domain.Document
	defer func() { crash.Recover(store, current) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Label Composer")
		fmt.Println(version.String())

	case "demo":
		store = storage.NewDocumentStore(stateDir)
		doc, ok := store.Load()
		if !ok {
			doc = domain.NewDocument()
		}
		current = func() domain.Document { return doc }
		if err := store.Save(doc); err != nil {
			fail(l, "save", err)
		}
		fmt.Printf("Project %q with %d label(s) at %s\n", doc.ProjectName, len(doc.Labels), store.Path())

	case "export":
		store = storage.NewDocumentStore(stateDir)
		doc, ok := store.Load()
		if !ok {
			fail(l, "export", fmt.Errorf("no document in %s", stateDir))
		}
		current = func() domain.Document { return doc }
		blobs := openBlobs(l, stateDir)
		data, err := portability.Export(context.Background(), doc, blobs)
		if err != nil {
			fail(l, "export", err)
		}
		out := portability.ExportFileName(doc.ProjectName)
		if len(args) >= 3 {
			out = args[2]
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			fail(l, "write export", err)
		}
		fmt.Println("Exported to", out)

	case "import":
		if len(args) < 3 {
			fmt.Println("import requires <file>")
			usage()
			os.Exit(2)
		}
		data, err := os.ReadFile(args[2])
		if err != nil {
			fail(l, "read import file", err)
		}
		store = storage.NewDocumentStore(stateDir)
		cur, _ := store.Load()
		blobs := openBlobs(l, stateDir)
		doc, err := portability.Import(context.Background(), data, cur, blobs)
		if err != nil {
			fail(l, "import", err)
		}
		current = func() domain.Document { return doc }
		if err := store.Save(doc); err != nil {
			fail(l, "save imported document", err)
		}
		fmt.Printf("Imported %d label(s) into %q\n", len(doc.Labels), doc.ProjectName)

	case "pdf", "png":
		if len(args) < 3 {
			fmt.Printf("%s requires an output path\n", args[1])
			usage()
			os.Exit(2)
		}
		store = storage.NewDocumentStore(stateDir)
		doc, ok := store.Load()
		if !ok {
			fail(l, args[1], fmt.Errorf("no document in %s", stateDir))
		}
		current = func() domain.Document { return doc }
		copies := cfg.Print.Copies
		if len(args) >= 4 {
			if n, err := strconv.Atoi(args[3]); err == nil {
				copies = n
			}
		}
		blobs := openBlobs(l, stateDir)
		src := export.NewBlobSource(blobs)
		out, _ := filepath.Abs(args[2])
		if args[1] == "pdf" {
			err = export.WritePDF(context.Background(), doc, src, out,
				export.PDFOptions{Copies: copies, CutMarks: cfg.Print.CutMarks})
		} else {
			err = export.WritePNGPages(context.Background(), doc, src, out,
				export.PNGOptions{Copies: copies, DPI: cfg.Print.DPI, CutMarks: cfg.Print.CutMarks})
		}
		if err != nil {
			fail(l, args[1], err)
		}
		fmt.Println("Rendered to", out)

	case "search":
		if len(args) < 3 {
			fmt.Println("search requires <query>")
			usage()
			os.Exit(2)
		}
		store = storage.NewDocumentStore(stateDir)
		doc, ok := store.Load()
		if !ok {
			fail(l, "search", fmt.Errorf("no document in %s", stateDir))
		}
		current = func() domain.Document { return doc }
		ctx := context.Background()
		if err := storage.RebuildSearchIndex(ctx, stateDir, doc); err != nil {
			fail(l, "index", err)
		}
		hits, err := storage.SearchLabels(ctx, stateDir, args[2])
		if err != nil {
			fail(l, "search", err)
		}
		for _, h := range hits {
			fmt.Printf("#%d %s  %s\n", h.Position+1, h.LabelID, h.Snippet)
		}
		if len(hits) == 0 {
			fmt.Println("no matches")
		}

	case "gc":
		store = storage.NewDocumentStore(stateDir)
		doc, ok := store.Load()
		if !ok {
			fail(l, "gc", fmt.Errorf("no document in %s", stateDir))
		}
		current = func() domain.Document { return doc }
		blobs := openBlobs(l, stateDir)
		if blobs == nil {
			fail(l, "gc", fmt.Errorf("blob store unavailable"))
		}
		n, err := storage.SweepOrphans(context.Background(), blobs, doc)
		if err != nil {
			fail(l, "gc", err)
		}
		fmt.Printf("Removed %d orphaned image(s)\n", n)

	case "push":
		if len(args) < 3 {
			fmt.Println("push requires <name>")
			usage()
			os.Exit(2)
		}
		store = storage.NewDocumentStore(stateDir)
		doc, ok := store.Load()
		if !ok {
			fail(l, "push", fmt.Errorf("no document in %s", stateDir))
		}
		current = func() domain.Document { return doc }
		blobs := openBlobs(l, stateDir)
		data, err := portability.Export(context.Background(), doc, blobs)
		if err != nil {
			fail(l, "export for push", err)
		}
		c := libraryClient(cfg, token)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		ver, err := c.Push(ctx, args[2], data)
		if err != nil {
			fail(l, "push", err)
		}
		fmt.Printf("Pushed %q (version %d)\n", args[2], ver)

	case "pull":
		if len(args) < 3 {
			fmt.Println("pull requires <name>")
			usage()
			os.Exit(2)
		}
		c := libraryClient(cfg, token)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		data, err := c.Pull(ctx, args[2])
		if err != nil {
			fail(l, "pull", err)
		}
		store = storage.NewDocumentStore(stateDir)
		cur, _ := store.Load()
		blobs := openBlobs(l, stateDir)
		doc, err := portability.Import(ctx, data, cur, blobs)
		if err != nil {
			fail(l, "pull import", err)
		}
		current = func() domain.Document { return doc }
		if err := store.Save(doc); err != nil {
			fail(l, "save pulled document", err)
		}
		fmt.Printf("Pulled %q: %d label(s)\n", args[2], len(doc.Labels))

	case "serve":
		if err := library.Start(); err != nil {
			fail(l, "serve", err)
		}

	case "ui":
		if err := ui.Run(stateDir); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}

	default:
		usage()
		os.Exit(2)
	}
}

func openBlobs(l *slog.Logger, stateDir string) *storage.BlobStore {
	blobs, err := storage.OpenBlobStore(stateDir)
	if err != nil {
		l.Warn("blob store unavailable", slog.Any("err", err))
		return nil
	}
	return blobs
}

func libraryClient(cfg config.AppConfig, token string) *library.Client {
	timeout := time.Duration(cfg.Library.TimeoutMs) * time.Millisecond
	return library.NewClient(cfg.Library.BaseURL, token, timeout)
}

func fail(l *slog.Logger, op string, err error) {
	l.Error(op+" failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}
