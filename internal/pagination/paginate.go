/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pagination partitions the label list into A4 pages for preview and
// print. Paginate is a pure function: same inputs, same pages, no side
// effects. Synthetic ids are derived only from source ids so the output is
// reproducible byte for byte.
package pagination

import (
	"fmt"

	"labelcomposer/internal/domain"
)

const (
	// PageCapacity is the number of labels per A4 sheet: 2 columns x 6 rows.
	PageCapacity = 12
	// Columns per sheet.
	Columns = 2
	// Rows per sheet.
	Rows = 6

	// MinCopies and MaxCopies bound the copy multiplier.
	MinCopies = 1
	MaxCopies = 100
)

// Page is one A4 sheet's worth of labels, at most PageCapacity entries.
type Page struct {
	Labels []domain.Label
}

// ClampCopies forces copies into [MinCopies, MaxCopies].
func ClampCopies(copies int) int {
	if copies < MinCopies {
		return MinCopies
	}
	if copies > MaxCopies {
		return MaxCopies
	}
	return copies
}

// Expand repeats the label list copies times, minting synthetic ids
// "<origId>-copy-<n>" so ids remain unique within the expanded list. With
// copies <= 1 the input is returned as-is (no copy suffixes).
func Expand(labels []domain.Label, copies int) []domain.Label {
	copies = ClampCopies(copies)
	if copies <= 1 {
		return labels
	}
	out := make([]domain.Label, 0, len(labels)*copies)
	for n := 0; n < copies; n++ {
		for _, l := range labels {
			c := l.Clone()
			c.ID = fmt.Sprintf("%s-copy-%d", l.ID, n)
			out = append(out, c)
		}
	}
	return out
}

// Paginate expands the labels by the copy count, pads the tail to a full
// sheet when copies > 1, and slices the result into pages of capacity.
// With copies == 1 no padding occurs and the final page may be partial.
// Fillers repeat the last source label under ids "<lastId>-filler-<i>".
func Paginate(labels []domain.Label, copies, capacity int) []Page {
	if capacity <= 0 {
		capacity = PageCapacity
	}
	copies = ClampCopies(copies)
	expanded := Expand(labels, copies)
	if copies > 1 && len(expanded) > 0 {
		if rem := len(expanded) % capacity; rem != 0 {
			last := labels[len(labels)-1]
			for i := 0; i < capacity-rem; i++ {
				f := last.Clone()
				f.ID = fmt.Sprintf("%s-filler-%d", last.ID, i)
				expanded = append(expanded, f)
			}
		}
	}
	var pages []Page
	for start := 0; start < len(expanded); start += capacity {
		end := start + capacity
		if end > len(expanded) {
			end = len(expanded)
		}
		pages = append(pages, Page{Labels: expanded[start:end]})
	}
	return pages
}

// PageOf returns the page index containing the label with the given id in a
// single-copy pagination, or -1 when the id is not present.
func PageOf(labels []domain.Label, id string, capacity int) int {
	if capacity <= 0 {
		capacity = PageCapacity
	}
	for i, l := range labels {
		if l.ID == id {
			return i / capacity
		}
	}
	return -1
}
