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
	"encoding/json"
	"errors"
	"fmt"

	"labelcomposer/internal/domain"
	applog "labelcomposer/internal/log"
	"labelcomposer/internal/storage"
)

// ErrInvalidFile is returned for files that are not a readable project
// export. The message is shown to the user verbatim.
var ErrInvalidFile = errors.New("Invalid file")

// Import parses an export file and rehydrates it into a document, storing
// inline images in the blob store. The current document is passed so fields
// the file omits can be preserved. Nothing is written to the blob store when
// the file itself is rejected.
func Import(ctx context.Context, data []byte, current domain.Document, blobs *storage.BlobStore) (domain.Document, error) {
	log := applog.WithComponent("portability")

	// A bare probe first, so a non-object or a missing labels array rejects
	// before any blobs are written.
	var probe struct {
		Labels *json.RawMessage `json:"labels"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.Labels == nil {
		return domain.Document{}, ErrInvalidFile
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.Document{}, ErrInvalidFile
	}
	if f.ExportVersion > ExportVersion {
		// Best effort on future versions; the shape already parsed.
		log.Warn("importing file with newer format version",
			"fileVersion", f.ExportVersion, "supported", ExportVersion)
	}

	doc := domain.Document{
		ProjectName: f.ProjectName,
		Labels:      make([]domain.Label, len(f.Labels)),
	}
	if doc.ProjectName == "" {
		doc.ProjectName = current.ProjectName
	}

	seen := make(map[string]struct{}, len(f.Labels))
	for i, l := range f.Labels {
		out := l.Clone()
		if _, dup := seen[out.ID]; out.ID == "" || dup {
			out.ID = domain.NewLabelID()
		}
		seen[out.ID] = struct{}{}
		ref, err := importImage(ctx, out.Image, blobs)
		if err != nil {
			log.Warn("image rehydration failed, importing without image",
				"label", out.ID, "err", err)
			ref = domain.ImageRef{}
		}
		out.Image = ref
		doc.Labels[i] = out
	}

	switch {
	case doc.LabelIndex(f.SelectedLabelID) >= 0:
		doc.SelectedLabelID = f.SelectedLabelID
	case len(doc.Labels) > 0:
		doc.SelectedLabelID = doc.Labels[0].ID
	}
	return doc, nil
}

// importImage re-homes an incoming image reference. Inline data URIs are
// decoded and stored durably; durable and session references from a foreign
// machine point at blobs this store does not have and degrade to empty.
func importImage(ctx context.Context, ref domain.ImageRef, blobs *storage.BlobStore) (domain.ImageRef, error) {
	switch ref.Kind() {
	case domain.ImageInline:
		payload, err := domain.DecodeDataURI(ref.DataURI())
		if err != nil {
			return domain.ImageRef{}, fmt.Errorf("decode image: %w", err)
		}
		if blobs == nil {
			// No store to rehydrate into; keep the image inline.
			return ref, nil
		}
		id, err := blobs.Put(ctx, payload)
		if err != nil {
			return domain.ImageRef{}, fmt.Errorf("store image: %w", err)
		}
		return domain.DurableImage(id), nil
	case domain.ImageDurable, domain.ImageSession:
		return domain.ImageRef{}, nil
	default:
		return ref, nil
	}
}
