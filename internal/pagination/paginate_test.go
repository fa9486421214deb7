/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagination

import (
	"fmt"
	"reflect"
	"testing"

	"labelcomposer/internal/domain"
)

func mkLabels(n int) []domain.Label {
	out := make([]domain.Label, n)
	for i := range out {
		out[i] = domain.Label{ID: fmt.Sprintf("l%d", i), Title: fmt.Sprintf("<p>Label %d</p>", i)}
	}
	return out
}

func TestPaginateWithCopiesPadsToFullSheets(t *testing.T) {
	// 5 labels x 3 copies = 15, padded with 9 fillers to 24 = 2 full pages.
	labels := mkLabels(5)
	pages := Paginate(labels, 3, PageCapacity)
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	for i, p := range pages {
		if len(p.Labels) != PageCapacity {
			t.Fatalf("page %d size = %d, want %d", i, len(p.Labels), PageCapacity)
		}
	}
	expanded := Expand(labels, 3)
	if len(expanded) != 15 {
		t.Fatalf("expanded = %d, want 15", len(expanded))
	}
	// Fillers repeat the last source label.
	last := pages[1].Labels[PageCapacity-1]
	if last.ID != "l4-filler-8" {
		t.Fatalf("last filler id = %q", last.ID)
	}
	if last.Title != labels[4].Title {
		t.Fatalf("filler title = %q", last.Title)
	}
}

func TestPaginateSingleCopyNoPadding(t *testing.T) {
	// 13 labels, 1 copy: 2 pages of 12 and 1.
	pages := Paginate(mkLabels(13), 1, PageCapacity)
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if len(pages[0].Labels) != 12 || len(pages[1].Labels) != 1 {
		t.Fatalf("page sizes = %d,%d want 12,1", len(pages[0].Labels), len(pages[1].Labels))
	}
	// Single copy keeps the original ids untouched.
	if pages[0].Labels[0].ID != "l0" {
		t.Fatalf("id mangled: %q", pages[0].Labels[0].ID)
	}
}

func TestPaginateEmpty(t *testing.T) {
	if pages := Paginate(nil, 5, PageCapacity); len(pages) != 0 {
		t.Fatalf("expected no pages for empty input, got %d", len(pages))
	}
}

func TestExpandedIDsUnique(t *testing.T) {
	labels := mkLabels(4)
	pages := Paginate(labels, 7, PageCapacity)
	seen := make(map[string]struct{})
	for _, p := range pages {
		if len(p.Labels) > PageCapacity {
			t.Fatalf("page exceeds capacity: %d", len(p.Labels))
		}
		for _, l := range p.Labels {
			if _, dup := seen[l.ID]; dup {
				t.Fatalf("duplicate id in pagination: %q", l.ID)
			}
			seen[l.ID] = struct{}{}
		}
	}
}

func TestPaginateDeterministic(t *testing.T) {
	labels := mkLabels(9)
	a := Paginate(labels, 4, PageCapacity)
	b := Paginate(labels, 4, PageCapacity)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("pagination is not deterministic")
	}
	// Input untouched.
	for i, l := range labels {
		if l.ID != fmt.Sprintf("l%d", i) {
			t.Fatalf("input mutated at %d: %q", i, l.ID)
		}
	}
}

func TestClampCopies(t *testing.T) {
	cases := map[int]int{-3: 1, 0: 1, 1: 1, 50: 50, 100: 100, 999: 100}
	for in, want := range cases {
		if got := ClampCopies(in); got != want {
			t.Errorf("ClampCopies(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestCellOrigin(t *testing.T) {
	cases := []struct {
		i          int
		left, topv float64
	}{
		{0, 0, 0},
		{1, 105, 0},
		{2, 0, 49.5},
		{11, 105, 247.5},
	}
	for _, c := range cases {
		left, top := CellOrigin(c.i)
		if left != c.left || top != c.topv {
			t.Errorf("CellOrigin(%d) = (%v,%v), want (%v,%v)", c.i, left, top, c.left, c.topv)
		}
	}
}

func TestCursorClampAndFollow(t *testing.T) {
	var c Cursor
	c.Set(5, 3)
	if c.Page() != 2 {
		t.Fatalf("Set clamp: got %d", c.Page())
	}
	c.Clamp(0)
	if c.Page() != 0 {
		t.Fatalf("Clamp(0): got %d", c.Page())
	}
	labels := mkLabels(25)
	c.Follow(labels, "l24", PageCapacity)
	if c.Page() != 2 {
		t.Fatalf("Follow: got %d, want 2", c.Page())
	}
	c.Follow(labels, "nope", PageCapacity)
	if c.Page() != 2 {
		t.Fatalf("Follow unknown id moved cursor: %d", c.Page())
	}
}

func TestPageOf(t *testing.T) {
	labels := mkLabels(13)
	if p := PageOf(labels, "l12", PageCapacity); p != 1 {
		t.Fatalf("PageOf(l12) = %d, want 1", p)
	}
	if p := PageOf(labels, "absent", PageCapacity); p != -1 {
		t.Fatalf("PageOf(absent) = %d, want -1", p)
	}
}
