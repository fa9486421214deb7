/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain defines the core data model of Label Composer: a document is
// a shared project name plus an ordered list of printable labels. The model
// serializes to the same JSON shape the durable state and the portable export
// file use, so field names here are part of the wire contract.
package domain

import (
	"fmt"
	"math/rand"
	"time"
)

// DefaultProjectName is the project name of a freshly bootstrapped document.
const DefaultProjectName = "Project Phoenix"

// DefaultTitleFontSize is the title size in points applied when a label does
// not carry an explicit one.
const DefaultTitleFontSize = 13

// DefaultLabelTitle is the HTML fragment of the bootstrap label.
const DefaultLabelTitle = "<p>Custom Collector's Edition</p>"

// NewLabelTitle is the title given to labels added after bootstrap.
const NewLabelTitle = "<p>New Label</p>"

// Label is one printable 105x49.5 mm cell on an A4 sheet.
// Title is an opaque HTML fragment produced by the embedded rich-text editor;
// it may carry inline font-size spans which win over TitleFontSize for the
// runs they cover. ID is stable for the label's lifetime and unique within a
// document.
type Label struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Image         ImageRef `json:"imageUrl"`
	TitleFontSize int      `json:"titleFontSize,omitempty"`
}

// EffectiveTitleFontSize returns TitleFontSize or the default when unset.
func (l Label) EffectiveTitleFontSize() int {
	if l.TitleFontSize > 0 {
		return l.TitleFontSize
	}
	return DefaultTitleFontSize
}

// Clone returns a deep copy of the label.
func (l Label) Clone() Label {
	// All fields are value types; ImageRef is an immutable pair.
	return l
}

// Document is the full editable state: project name, ordered labels and the
// current selection. Insertion order of Labels is the display and print order.
type Document struct {
	ProjectName     string  `json:"projectName"`
	Labels          []Label `json:"labels"`
	SelectedLabelID string  `json:"selectedLabelId,omitempty"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	out.Labels = make([]Label, len(d.Labels))
	for i, l := range d.Labels {
		out.Labels[i] = l.Clone()
	}
	return out
}

// LabelIndex returns the position of the label with the given id, or -1.
func (d Document) LabelIndex(id string) int {
	for i, l := range d.Labels {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// SelectedLabel returns the currently selected label, if any.
func (d Document) SelectedLabel() (Label, bool) {
	if i := d.LabelIndex(d.SelectedLabelID); i >= 0 {
		return d.Labels[i], true
	}
	return Label{}, false
}

// Validate checks the document invariants: label ids are unique and the
// selection, when set, refers to an existing label.
func (d Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Labels))
	for _, l := range d.Labels {
		if l.ID == "" {
			return fmt.Errorf("label with empty id")
		}
		if _, dup := seen[l.ID]; dup {
			return fmt.Errorf("duplicate label id %q", l.ID)
		}
		seen[l.ID] = struct{}{}
	}
	if d.SelectedLabelID != "" {
		if _, ok := seen[d.SelectedLabelID]; !ok {
			return fmt.Errorf("selection %q refers to no label", d.SelectedLabelID)
		}
	}
	return nil
}

// NewLabelID mints a fresh label id. Ids embed the creation timestamp plus a
// random suffix so rapid consecutive mints stay unique.
func NewLabelID() string {
	return fmt.Sprintf("label-%d-%04x", time.Now().UnixMilli(), rand.Intn(1<<16))
}

// NewDocument returns the default single-label document used when no durable
// state exists.
func NewDocument() Document {
	l := Label{
		ID:            NewLabelID(),
		Title:         DefaultLabelTitle,
		Image:         ImageRef{},
		TitleFontSize: DefaultTitleFontSize,
	}
	return Document{
		ProjectName:     DefaultProjectName,
		Labels:          []Label{l},
		SelectedLabelID: l.ID,
	}
}
