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
	"sync"

	"labelcomposer/internal/domain"
	applog "labelcomposer/internal/log"
	"labelcomposer/internal/session"
	"labelcomposer/internal/storage"
)

// Resolver maps the image references stored in a document to references a
// renderer can display. Durable references are loaded from the blob store
// once and leased into the session registry; the document itself is never
// rewritten, so durable references survive save/load untouched.
type Resolver struct {
	blobs  *storage.BlobStore
	leases *session.Registry

	mu    sync.Mutex
	cache map[string]domain.ImageRef // blob id -> session ref
}

// NewResolver builds a resolver over the given store and session registry.
func NewResolver(blobs *storage.BlobStore, leases *session.Registry) *Resolver {
	return &Resolver{
		blobs:  blobs,
		leases: leases,
		cache:  make(map[string]domain.ImageRef),
	}
}

// Resolve returns a displayable reference for ref. Remote and inline
// references pass through unchanged. Durable references yield a session
// reference backed by the loaded bytes; a missing or unreadable blob yields
// the empty reference, which renders as the placeholder.
func (r *Resolver) Resolve(ctx context.Context, ref domain.ImageRef) domain.ImageRef {
	switch ref.Kind() {
	case domain.ImageDurable:
		return r.resolveDurable(ctx, ref.BlobID())
	case domain.ImageSession, domain.ImageInline, domain.ImageRemote:
		return ref
	default:
		return domain.ImageRef{}
	}
}

func (r *Resolver) resolveDurable(ctx context.Context, blobID string) domain.ImageRef {
	r.mu.Lock()
	if cached, ok := r.cache[blobID]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	if r.blobs == nil {
		return domain.ImageRef{}
	}
	data, err := r.blobs.Get(ctx, blobID)
	if err != nil {
		applog.WithComponent("resolve").Warn("blob load failed", "blob", blobID, "err", err)
		return domain.ImageRef{}
	}
	if data == nil {
		applog.WithComponent("resolve").Debug("blob missing", "blob", blobID)
		return domain.ImageRef{}
	}
	lease := r.leases.Acquire(data)

	r.mu.Lock()
	// Another goroutine may have raced the load; keep the first lease.
	if cached, ok := r.cache[blobID]; ok {
		r.mu.Unlock()
		r.leases.Release(lease.Handle())
		return cached
	}
	r.cache[blobID] = lease
	r.mu.Unlock()
	return lease
}

// Bytes returns the raw bytes behind a displayable reference, decoding
// inline data URIs and dereferencing session leases. Remote and empty
// references have no local bytes.
func (r *Resolver) Bytes(ctx context.Context, ref domain.ImageRef) ([]byte, bool) {
	switch ref.Kind() {
	case domain.ImageSession:
		return r.leases.Bytes(ref.Handle())
	case domain.ImageInline:
		data, err := domain.DecodeDataURI(ref.DataURI())
		if err != nil {
			return nil, false
		}
		return data, true
	case domain.ImageDurable:
		resolved := r.resolveDurable(ctx, ref.BlobID())
		if resolved.Kind() != domain.ImageSession {
			return nil, false
		}
		return r.leases.Bytes(resolved.Handle())
	default:
		return nil, false
	}
}

// Invalidate drops the cached lease for a blob id, releasing its bytes.
func (r *Resolver) Invalidate(blobID string) {
	r.mu.Lock()
	lease, ok := r.cache[blobID]
	delete(r.cache, blobID)
	r.mu.Unlock()
	if ok {
		r.leases.Release(lease.Handle())
	}
}
