/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"testing"

	"labelcomposer/internal/domain"
)

func TestAcquireReleaseLifecycle(t *testing.T) {
	r := NewRegistry()
	ref := r.Acquire([]byte{1, 2, 3})
	if ref.Kind() != domain.ImageSession {
		t.Fatalf("expected session ref, got %v", ref.Kind())
	}
	b, ok := r.Bytes(ref.Handle())
	if !ok || len(b) != 3 {
		t.Fatalf("Bytes: ok=%v b=%v", ok, b)
	}
	r.Release(ref.Handle())
	if _, ok := r.Bytes(ref.Handle()); ok {
		t.Fatalf("handle survived release")
	}
	r.Release(ref.Handle()) // releasing twice is a no-op
}

func TestReleaseAllDrains(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.Acquire([]byte{byte(i)})
	}
	if r.Len() != 5 {
		t.Fatalf("Len = %d, want 5", r.Len())
	}
	r.ReleaseAll()
	if r.Len() != 0 {
		t.Fatalf("Len after ReleaseAll = %d", r.Len())
	}
}

func TestHandlesAreDistinct(t *testing.T) {
	r := NewRegistry()
	a := r.Acquire([]byte("a"))
	b := r.Acquire([]byte("b"))
	if a.Handle() == b.Handle() {
		t.Fatalf("duplicate handles minted")
	}
}
