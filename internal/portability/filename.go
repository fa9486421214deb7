/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package portability

// FallbackFileName is used when the project name sanitizes to nothing.
const FallbackFileName = "plc-export.json"

const maxStemLen = 64

// ExportFileName derives a safe download name from the project name:
// anything outside [A-Za-z0-9-_.] becomes an underscore, the stem is capped
// at 64 characters, and a .json suffix is appended.
func ExportFileName(projectName string) string {
	stem := make([]byte, 0, len(projectName))
	for _, c := range projectName {
		if len(stem) >= maxStemLen {
			break
		}
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.':
			stem = append(stem, byte(c))
		default:
			stem = append(stem, '_')
		}
	}
	if len(stem) == 0 {
		return FallbackFileName
	}
	return string(stem) + ".json"
}
