/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"labelcomposer/internal/domain"
	"labelcomposer/internal/htmltext"
	"labelcomposer/internal/pagination"
)

// PNGOptions controls raster sheet rendering.
type PNGOptions struct {
	Copies int
	// DPI sets output resolution; 0 means 150.
	DPI      int
	CutMarks bool
	Pages    []int
}

// WritePNGPages renders each sheet as sheet-<n>.png under outDir.
func WritePNGPages(ctx context.Context, doc domain.Document, src ImageSource, outDir string, opt PNGOptions) error {
	pages := pagination.Paginate(doc.Labels, pagination.ClampCopies(opt.Copies), pagination.PageCapacity)
	if len(pages) == 0 {
		return fmt.Errorf("export png: document has no labels")
	}
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = 150
	}
	scale := float64(dpi) / 25.4 // px per mm

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}

	pixW := int(math.Round(pagination.SheetWidthMM * scale))
	pixH := int(math.Round(pagination.SheetHeightMM * scale))

	for _, pidx := range pageIndexes(len(pages), opt.Pages) {
		if pidx < 0 || pidx >= len(pages) {
			continue
		}
		img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
		draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

		for i, l := range pages[pidx].Labels {
			xmm, ymm := pagination.CellOrigin(i)
			drawLabelPNG(ctx, img, l, src, xmm, ymm, scale, opt.CutMarks)
		}

		name := filepath.Join(outDir, fmt.Sprintf("sheet-%d.png", pidx+1))
		if err := writePNGFile(name, img); err != nil {
			return err
		}
	}
	return nil
}

func drawLabelPNG(ctx context.Context, img *image.RGBA, l domain.Label, src ImageSource, xmm, ymm, scale float64, cutMarks bool) {
	px := func(mm float64) int { return int(math.Round(mm * scale)) }
	x0, y0 := px(xmm), px(ymm)
	x1 := px(xmm+pagination.LabelWidthMM) - 1
	y1 := px(ymm+pagination.LabelHeightMM) - 1

	if cutMarks {
		strokeRect(img, x0, y0, x1, y1, color.RGBA{160, 160, 160, 255})
	}

	pad := px(cellPaddingMM)
	imgRect := image.Rect(x0+pad, y0+pad, x1-pad, y0+pad+px(imageHeightMM))

	drawn := false
	if src != nil {
		if data, ok := src.Bytes(ctx, l.Image); ok {
			if decoded, _, err := image.Decode(bytes.NewReader(data)); err == nil {
				target := fitRect(imgRect, decoded.Bounds())
				xdraw.CatmullRom.Scale(img, target, decoded, decoded.Bounds(), draw.Over, nil)
				drawn = true
			}
		}
	}
	if !drawn {
		fillRect(img, imgRect, color.RGBA{placeholderGray, placeholderGray, placeholderGray, 255})
	}

	title := htmltext.Strip(l.Title)
	if title == "" {
		return
	}
	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(title)
	cx := (x0 + x1) / 2
	d.Dot = fixed.Point26_6{
		X: fixed.I(cx) - width/2,
		Y: fixed.I(imgRect.Max.Y + px(titleGapMM) + 13),
	}
	d.DrawString(title)
}

// fitRect scales src proportionally to fit inside bounds, centered.
func fitRect(bounds image.Rectangle, src image.Rectangle) image.Rectangle {
	bw, bh := bounds.Dx(), bounds.Dy()
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 || bw == 0 || bh == 0 {
		return bounds
	}
	scale := math.Min(float64(bw)/float64(sw), float64(bh)/float64(sh))
	w := int(float64(sw) * scale)
	h := int(float64(sh) * scale)
	x := bounds.Min.X + (bw-w)/2
	y := bounds.Min.Y + (bh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func writePNGFile(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
