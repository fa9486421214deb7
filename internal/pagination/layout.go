/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagination

// Geometric print contract. A4 sheet, origin top-left, no inter-label gaps;
// every cell is exactly LabelWidthMM x LabelHeightMM.
const (
	SheetWidthMM  = 210.0
	SheetHeightMM = 297.0
	LabelWidthMM  = 105.0
	LabelHeightMM = 49.5
)

// CellOrigin maps an index within a page to the top-left corner of its cell
// in millimetres. Index i occupies row i/Columns, column i%Columns.
func CellOrigin(i int) (leftMM, topMM float64) {
	row := i / Columns
	col := i % Columns
	return float64(col) * LabelWidthMM, float64(row) * LabelHeightMM
}
