/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session tracks process-lifetime image handles ("mem://<n>"), the
// native analogue of browser object URLs. A view acquires a handle when it
// resolves a durable blob for display and must release it on disposal; the
// registry is drained once at teardown so nothing leaks across the session
// boundary. Handles are never persisted.
package session

import (
	"strconv"
	"sync"

	"labelcomposer/internal/domain"
)

// Registry owns all live session handles. Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	next    uint64
	entries map[string][]byte
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string][]byte)}
}

// Acquire mints a session handle for the payload and returns its ref.
func (r *Registry) Acquire(data []byte) domain.ImageRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := strconv.FormatUint(r.next, 10)
	r.entries[h] = data
	return domain.SessionImage(h)
}

// Bytes returns the payload behind a handle.
func (r *Registry) Bytes(handle string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.entries[handle]
	return b, ok
}

// Release frees a handle. Releasing an unknown handle is a no-op.
func (r *Registry) Release(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, handle)
}

// ReleaseAll frees every live handle. Called at process teardown.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string][]byte)
}

// Len reports the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
