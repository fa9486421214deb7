/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"labelcomposer/internal/domain"
	applog "labelcomposer/internal/log"
	"labelcomposer/internal/storage"
)

// InlineWarnBytes is the payload size above which falling back to an inline
// data URI is logged loudly; such images bloat the state file considerably.
const InlineWarnBytes = 2_000_000

// Ingestor turns raw image bytes into document-safe image references,
// preferring durable blob storage and degrading to inline data URIs when the
// store is unavailable.
type Ingestor struct {
	blobs *storage.BlobStore
	log   interface {
		Warn(msg string, args ...any)
		Debug(msg string, args ...any)
	}
}

// NewIngestor wraps a blob store; blobs may be nil when storage could not be
// opened, in which case every ingest falls back to inline.
func NewIngestor(blobs *storage.BlobStore) *Ingestor {
	return &Ingestor{blobs: blobs, log: applog.WithComponent("ingest")}
}

// Ingest stores the given image bytes and returns a reference suitable for
// placing in a label. Durable storage is tried first; on failure the bytes
// are inlined as a data URI so the image is never lost, at the cost of state
// file size.
func (g *Ingestor) Ingest(ctx context.Context, data []byte) (domain.ImageRef, error) {
	if len(data) == 0 {
		return domain.ImageRef{}, fmt.Errorf("ingest: empty image")
	}
	if g.blobs != nil {
		id, err := g.blobs.Put(ctx, data)
		if err == nil {
			g.log.Debug("image stored", "blob", id, "bytes", len(data))
			return domain.DurableImage(id), nil
		}
		if !errors.Is(err, storage.ErrStorageUnavailable) {
			g.log.Warn("blob write failed, falling back to inline", "err", err)
		}
	}
	uri := EncodeDataURI(data)
	if len(data) > InlineWarnBytes {
		g.log.Warn("blob storage unavailable, inlining large image",
			"bytes", len(data))
	} else {
		g.log.Debug("blob storage unavailable, inlining image", "bytes", len(data))
	}
	return domain.InlineImage(uri), nil
}

// EncodeDataURI renders image bytes as a base64 data URI, sniffing the MIME
// type from the payload.
func EncodeDataURI(data []byte) string {
	return domain.EncodeDataURI(http.DetectContentType(data), data)
}
