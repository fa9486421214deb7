/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagination

import "labelcomposer/internal/domain"

// Cursor tracks the preview's current page. It is re-clamped on every
// document change and follows the selection to the page containing it.
type Cursor struct {
	page int
}

// Page returns the current page index.
func (c *Cursor) Page() int { return c.page }

// Clamp forces the cursor into [0, pageCount-1]. A zero page count pins it
// at 0.
func (c *Cursor) Clamp(pageCount int) {
	if pageCount <= 0 {
		c.page = 0
		return
	}
	if c.page < 0 {
		c.page = 0
	}
	if c.page >= pageCount {
		c.page = pageCount - 1
	}
}

// Set moves the cursor and clamps against pageCount.
func (c *Cursor) Set(page, pageCount int) {
	c.page = page
	c.Clamp(pageCount)
}

// Follow moves the cursor to the page containing the given label id in
// single-copy order; an unknown id leaves the cursor where it is.
func (c *Cursor) Follow(labels []domain.Label, id string, capacity int) {
	if p := PageOf(labels, id, capacity); p >= 0 {
		c.page = p
	}
}
