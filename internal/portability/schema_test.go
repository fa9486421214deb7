/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package portability

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"labelcomposer/internal/domain"
)

func TestExportConformsToSchema(t *testing.T) {
	ctx := context.Background()
	blobs := openBlobs(t)
	id, err := blobs.Put(ctx, []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	doc := domain.Document{
		ProjectName: "Schema Test",
		Labels: []domain.Label{
			{ID: "l1", Title: "<p>One</p>", Image: domain.DurableImage(id), TitleFontSize: 14},
			{ID: "l2", Title: "<p>Two</p>", Image: domain.RemoteImage("https://example.com/a.png")},
			{ID: "l3", Title: "<p>Three</p>"},
		},
		SelectedLabelID: "l2",
	}
	data, err := Export(ctx, doc, blobs)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	schemaPath := filepath.Join("..", "..", "docs", "plc-export.schema.json")
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("export file does not conform to schema")
	}
}
