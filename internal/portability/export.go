/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package portability reads and writes the self-contained project file
// format. Export files carry every image inline as a data URI so a file is
// complete on any machine; import re-homes inline images into the local blob
// store.
package portability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"labelcomposer/internal/domain"
	applog "labelcomposer/internal/log"
	"labelcomposer/internal/storage"
)

// ExportVersion is the format version stamped into every export file.
const ExportVersion = 1

// File is the export file shape. Labels reuse the document wire form.
type File struct {
	ExportVersion   int            `json:"plcExportVersion"`
	ProjectName     string         `json:"projectName"`
	Labels          []domain.Label `json:"labels"`
	SelectedLabelID string         `json:"selectedLabelId,omitempty"`
}

// Export renders the document as a portable JSON file. Durable image
// references are inlined from the blob store; a missing or unreadable blob
// degrades that label's image to empty rather than failing the export.
func Export(ctx context.Context, doc domain.Document, blobs *storage.BlobStore) ([]byte, error) {
	log := applog.WithComponent("portability")
	out := File{
		ExportVersion:   ExportVersion,
		ProjectName:     doc.ProjectName,
		Labels:          make([]domain.Label, len(doc.Labels)),
		SelectedLabelID: doc.SelectedLabelID,
	}
	for i, l := range doc.Labels {
		out.Labels[i] = l.Clone()
		out.Labels[i].Image = exportImage(ctx, l.Image, blobs, log)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return data, nil
}

func exportImage(ctx context.Context, ref domain.ImageRef, blobs *storage.BlobStore, log interface {
	Warn(msg string, args ...any)
}) domain.ImageRef {
	switch ref.Kind() {
	case domain.ImageDurable:
		if blobs == nil {
			log.Warn("export without blob store, dropping image", "blob", ref.BlobID())
			return domain.ImageRef{}
		}
		data, err := blobs.Get(ctx, ref.BlobID())
		if err != nil || data == nil {
			log.Warn("blob unavailable during export, dropping image",
				"blob", ref.BlobID(), "err", err)
			return domain.ImageRef{}
		}
		mime := http.DetectContentType(data)
		return domain.InlineImage(domain.EncodeDataURI(mime, data))
	case domain.ImageSession:
		// Process-scoped handles never travel.
		return domain.ImageRef{}
	default:
		return ref
	}
}
