/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package htmltext extracts plain text from the small HTML fragments the
// embedded rich-text editor produces (<p>, <strong>, <em>, spans with inline
// styles). It is not a general HTML parser; fragments are trusted editor
// output, never arbitrary markup.
package htmltext

import "strings"

var entities = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&#39;":  "'",
	"&apos;": "'",
	"&nbsp;": " ",
}

// Strip removes tags from an HTML fragment and decodes the common entities.
// Block-level closings (</p>, <br>) become single spaces so adjacent
// paragraphs do not run together.
func Strip(fragment string) string {
	var b strings.Builder
	b.Grow(len(fragment))
	inTag := false
	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		switch {
		case c == '<':
			inTag = true
			if hasTagPrefix(fragment[i:], "</p>") || hasTagPrefix(fragment[i:], "<br") {
				b.WriteByte(' ')
			}
		case c == '>':
			inTag = false
		case !inTag:
			if c == '&' {
				if rep, n := decodeEntity(fragment[i:]); n > 0 {
					b.WriteString(rep)
					i += n - 1
					continue
				}
			}
			b.WriteByte(c)
		}
	}
	return strings.TrimSpace(collapseSpaces(b.String()))
}

func hasTagPrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}

func decodeEntity(s string) (string, int) {
	end := strings.IndexByte(s, ';')
	if end < 0 || end > 7 {
		return "", 0
	}
	if rep, ok := entities[strings.ToLower(s[:end+1])]; ok {
		return rep, end + 1
	}
	return "", 0
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
