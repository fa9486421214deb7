/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package portability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"labelcomposer/internal/domain"
	"labelcomposer/internal/storage"
)

func openBlobs(t *testing.T) *storage.BlobStore {
	t.Helper()
	blobs, err := storage.OpenBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	t.Cleanup(func() { blobs.Close() })
	return blobs
}

func TestExportInlinesDurableImages(t *testing.T) {
	ctx := context.Background()
	blobs := openBlobs(t)
	id, err := blobs.Put(ctx, []byte{0x2A})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	doc := domain.Document{
		ProjectName: "Phoenix",
		Labels: []domain.Label{
			{ID: "l1", Title: "<p>One</p>", Image: domain.DurableImage(id)},
			{ID: "l2", Title: "<p>Two</p>"},
		},
		SelectedLabelID: "l1",
	}
	data, err := Export(ctx, doc, blobs)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if f.ExportVersion != 1 {
		t.Fatalf("plcExportVersion = %d; want 1", f.ExportVersion)
	}
	if f.Labels[0].Image.Kind() != domain.ImageInline {
		t.Fatalf("image kind = %v; want inline", f.Labels[0].Image.Kind())
	}
	if strings.Contains(string(data), "idb://") {
		t.Fatal("export file leaks durable references")
	}
	payload, err := domain.DecodeDataURI(f.Labels[0].Image.DataURI())
	if err != nil || !bytes.Equal(payload, []byte{0x2A}) {
		t.Fatalf("inlined payload = %v, %v; want 0x2A", payload, err)
	}
}

func TestExportMissingBlobDegradesToEmpty(t *testing.T) {
	blobs := openBlobs(t)
	doc := domain.Document{
		Labels: []domain.Label{{ID: "l1", Image: domain.DurableImage("gone")}},
	}
	data, err := Export(context.Background(), doc, blobs)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !f.Labels[0].Image.IsZero() {
		t.Fatalf("image = %v; want empty for missing blob", f.Labels[0].Image)
	}
}

func TestExportDoesNotMutateDocument(t *testing.T) {
	blobs := openBlobs(t)
	doc := domain.Document{
		Labels: []domain.Label{{ID: "l1", Image: domain.DurableImage("gone")}},
	}
	if _, err := Export(context.Background(), doc, blobs); err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.Labels[0].Image.BlobID() != "gone" {
		t.Fatal("export mutated the source document")
	}
}

func TestImportRejectsInvalidFiles(t *testing.T) {
	blobs := openBlobs(t)
	for _, raw := range []string{
		"not json",
		`[1, 2, 3]`,
		`"labels"`,
		`{"projectName": "x"}`,
		`{"labels": "not an array"}`,
	} {
		_, err := Import(context.Background(), []byte(raw), domain.Document{}, blobs)
		if !errors.Is(err, ErrInvalidFile) {
			t.Fatalf("Import(%q) err = %v; want ErrInvalidFile", raw, err)
		}
	}
	if n, err := blobs.Count(context.Background()); err != nil || n != 0 {
		t.Fatalf("blob count = %d, %v; rejected imports must not write blobs", n, err)
	}
}

func TestImportRehydratesInlineImages(t *testing.T) {
	ctx := context.Background()
	blobs := openBlobs(t)
	file := File{
		ExportVersion: 1,
		ProjectName:   "From File",
		Labels: []domain.Label{
			{ID: "a", Title: "<p>A</p>", Image: domain.InlineImage(domain.EncodeDataURI("image/png", []byte{0x2A}))},
		},
		SelectedLabelID: "a",
	}
	data, _ := json.Marshal(file)
	doc, err := Import(ctx, data, domain.Document{ProjectName: "Current"}, blobs)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if doc.ProjectName != "From File" {
		t.Fatalf("project = %q; want file's", doc.ProjectName)
	}
	ref := doc.Labels[0].Image
	if ref.Kind() != domain.ImageDurable {
		t.Fatalf("image kind = %v; want durable", ref.Kind())
	}
	payload, err := blobs.Get(ctx, ref.BlobID())
	if err != nil || !bytes.Equal(payload, []byte{0x2A}) {
		t.Fatalf("blob = %v, %v; want 0x2A", payload, err)
	}
	if doc.SelectedLabelID != "a" {
		t.Fatalf("selection = %q; want a", doc.SelectedLabelID)
	}
}

func TestImportForeignDurableRefsBecomeEmpty(t *testing.T) {
	blobs := openBlobs(t)
	data := []byte(`{"labels": [{"id": "a", "title": "t", "imageUrl": "idb://other-machine"}]}`)
	doc, err := Import(context.Background(), data, domain.Document{}, blobs)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !doc.Labels[0].Image.IsZero() {
		t.Fatalf("image = %v; want empty for foreign durable ref", doc.Labels[0].Image)
	}
}

func TestImportPreservesCurrentProjectName(t *testing.T) {
	blobs := openBlobs(t)
	data := []byte(`{"labels": []}`)
	doc, err := Import(context.Background(), data, domain.Document{ProjectName: "Keep Me"}, blobs)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if doc.ProjectName != "Keep Me" {
		t.Fatalf("project = %q; want current preserved", doc.ProjectName)
	}
	if doc.SelectedLabelID != "" {
		t.Fatalf("selection = %q; want absent for empty label list", doc.SelectedLabelID)
	}
}

func TestImportSelectionFallsBackToFirstLabel(t *testing.T) {
	blobs := openBlobs(t)
	data := []byte(`{"labels": [{"id": "a", "title": "t"}, {"id": "b", "title": "u"}], "selectedLabelId": "nope"}`)
	doc, err := Import(context.Background(), data, domain.Document{}, blobs)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if doc.SelectedLabelID != "a" {
		t.Fatalf("selection = %q; want first label", doc.SelectedLabelID)
	}
}

func TestImportMintsIDsForDuplicates(t *testing.T) {
	blobs := openBlobs(t)
	data := []byte(`{"labels": [{"id": "a"}, {"id": "a"}, {"id": ""}]}`)
	doc, err := Import(context.Background(), data, domain.Document{}, blobs)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("imported document invalid: %v", err)
	}
}

func TestRoundTripWithImage(t *testing.T) {
	ctx := context.Background()
	blobs := openBlobs(t)
	id, err := blobs.Put(ctx, []byte{0x2A})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	orig := domain.Document{
		ProjectName: "Round Trip",
		Labels: []domain.Label{
			{ID: "l1", Title: "<p>Pic</p>", Image: domain.DurableImage(id), TitleFontSize: 18},
			{ID: "l2", Title: "<p>Plain</p>"},
		},
		SelectedLabelID: "l2",
	}
	data, err := Export(ctx, orig, blobs)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// Import into a fresh store, as on another machine.
	fresh := openBlobs(t)
	got, err := Import(ctx, data, domain.Document{}, fresh)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.ProjectName != orig.ProjectName || len(got.Labels) != 2 {
		t.Fatalf("doc = %+v; want shape preserved", got)
	}
	for i := range orig.Labels {
		if got.Labels[i].Title != orig.Labels[i].Title ||
			got.Labels[i].TitleFontSize != orig.Labels[i].TitleFontSize {
			t.Fatalf("label %d = %+v; want content preserved", i, got.Labels[i])
		}
	}
	payload, err := fresh.Get(ctx, got.Labels[0].Image.BlobID())
	if err != nil || !bytes.Equal(payload, []byte{0x2A}) {
		t.Fatalf("rehydrated blob = %v, %v; want 0x2A", payload, err)
	}
	if !got.Labels[1].Image.IsZero() {
		t.Fatal("imageless label gained an image")
	}
	if got.SelectedLabelID != "l2" {
		t.Fatalf("selection = %q; want l2", got.SelectedLabelID)
	}
}

func TestExportFileName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"my/label:1", "my_label_1.json"},
		{"Project Phoenix", "Project_Phoenix.json"},
		{"ok-name_1.2", "ok-name_1.2.json"},
		{"", "plc-export.json"},
		{strings.Repeat("x", 100), strings.Repeat("x", 64) + ".json"},
	}
	for _, c := range cases {
		if got := ExportFileName(c.in); got != c.want {
			t.Errorf("ExportFileName(%q) = %q; want %q", c.in, got, c.want)
		}
	}
}
