/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders paginated label sheets to print formats. The page
// list always comes from the paginator, so PDF, PNG and the on-screen
// preview agree on what lands on which sheet.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"labelcomposer/internal/domain"
	"labelcomposer/internal/htmltext"
	"labelcomposer/internal/pagination"
	"labelcomposer/internal/storage"
)

// PDFOptions controls sheet rendering. Units are millimeters.
type PDFOptions struct {
	// Copies is clamped to the paginator's valid range.
	Copies int
	// CutMarks draws hairline label borders as cutting guides.
	CutMarks bool
	// Pages selects sheet indexes to emit; empty means all.
	Pages []int
}

const (
	cellPaddingMM   = 4.0
	imageHeightMM   = 28.0
	titleGapMM      = 2.0
	ptPerMM         = 72.0 / 25.4
	placeholderGray = 230
)

// ImageSource supplies raw image bytes for a reference, typically an
// editor.Resolver. A nil source renders every image as the placeholder.
type ImageSource interface {
	Bytes(ctx context.Context, ref domain.ImageRef) ([]byte, bool)
}

// WritePDF renders the document's label sheets as a multi-page A4 PDF.
func WritePDF(ctx context.Context, doc domain.Document, src ImageSource, outPath string, opt PDFOptions) error {
	pages := pagination.Paginate(doc.Labels, pagination.ClampCopies(opt.Copies), pagination.PageCapacity)
	if len(pages) == 0 {
		return fmt.Errorf("export pdf: document has no labels")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.ProjectName, true)
	pdf.SetAuthor("Label Composer", false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", float64(domain.DefaultTitleFontSize))

	imgSeq := 0
	for _, pidx := range pageIndexes(len(pages), opt.Pages) {
		if pidx < 0 || pidx >= len(pages) {
			continue
		}
		pdf.AddPage()
		for i, l := range pages[pidx].Labels {
			x, y := pagination.CellOrigin(i)
			drawLabelPDF(ctx, pdf, l, src, x, y, opt, &imgSeq)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawLabelPDF(ctx context.Context, pdf *gofpdf.Fpdf, l domain.Label, src ImageSource, x, y float64, opt PDFOptions, imgSeq *int) {
	w := pagination.LabelWidthMM
	h := pagination.LabelHeightMM

	if opt.CutMarks {
		pdf.SetDrawColor(160, 160, 160)
		pdf.SetLineWidth(0.1)
		pdf.Rect(x, y, w, h, "D")
	}

	imgX := x + cellPaddingMM
	imgY := y + cellPaddingMM
	imgW := w - 2*cellPaddingMM

	drawn := false
	if src != nil {
		if data, ok := src.Bytes(ctx, l.Image); ok {
			if tp := imageTypeOf(data); tp != "" {
				*imgSeq++
				name := fmt.Sprintf("label-img-%d", *imgSeq)
				pdf.RegisterImageOptionsReader(name,
					gofpdf.ImageOptions{ImageType: tp}, bytes.NewReader(data))
				if pdf.Ok() {
					pdf.ImageOptions(name, imgX, imgY, imgW, imageHeightMM, false,
						gofpdf.ImageOptions{ImageType: tp}, 0, "")
					drawn = true
				}
			}
		}
	}
	if !drawn {
		pdf.SetFillColor(placeholderGray, placeholderGray, placeholderGray)
		pdf.Rect(imgX, imgY, imgW, imageHeightMM, "F")
	}

	title := htmltext.Strip(l.Title)
	if title == "" {
		return
	}
	size := float64(l.EffectiveTitleFontSize())
	pdf.SetFont("Helvetica", "", size)
	pdf.SetTextColor(0, 0, 0)
	lineH := size / ptPerMM * 1.2
	pdf.SetXY(imgX, imgY+imageHeightMM+titleGapMM)
	pdf.MultiCell(imgW, lineH, title, "", "C", false)
}

// imageTypeOf sniffs the gofpdf image type from magic bytes; "" means the
// format is not embeddable.
func imageTypeOf(data []byte) string {
	switch {
	case len(data) > 8 && bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "PNG"
	case len(data) > 3 && bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return "JPG"
	case len(data) > 6 && (bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a"))):
		return "GIF"
	default:
		return ""
	}
}

func pageIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return specific
}

// blobSource adapts a bare blob store into an ImageSource for headless
// export paths that have no resolver.
type blobSource struct {
	blobs *storage.BlobStore
}

// NewBlobSource wraps a blob store. Inline data URIs are decoded locally;
// remote URLs are not fetched.
func NewBlobSource(blobs *storage.BlobStore) ImageSource { return blobSource{blobs: blobs} }

func (s blobSource) Bytes(ctx context.Context, ref domain.ImageRef) ([]byte, bool) {
	switch ref.Kind() {
	case domain.ImageDurable:
		if s.blobs == nil {
			return nil, false
		}
		data, err := s.blobs.Get(ctx, ref.BlobID())
		if err != nil || data == nil {
			return nil, false
		}
		return data, true
	case domain.ImageInline:
		data, err := domain.DecodeDataURI(ref.DataURI())
		if err != nil {
			return nil, false
		}
		return data, true
	default:
		return nil, false
	}
}
