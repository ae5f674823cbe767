package render

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"tileCaptcha/internal/grid"
)

var (
	fontOnce sync.Once
	labelTTF *truetype.Font
	fontErr  error
)

func labelFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		labelTTF, fontErr = truetype.Parse(goregular.TTF)
	})
	return labelTTF, fontErr
}

// GridOverlay draws the n×n scoring grid over img: alternating cells are
// tinted, cell borders are stroked, and every cell carries its index in the
// top-left corner. Cells use the same floor-divided geometry as grid.Score so
// the picture matches what is scored; the dropped remainder is shaded.
func GridOverlay(img image.Image, n int) (image.Image, error) {
	b := img.Bounds()
	cellW, cellH, err := grid.CellSize(b.Dx(), b.Dy(), n)
	if err != nil {
		return nil, err
	}
	f, err := labelFont()
	if err != nil {
		return nil, fmt.Errorf("parse label font: %w", err)
	}

	dc := gg.NewContextForImage(img)

	// checkerboard tint
	for i := 0; i < n*n; i++ {
		if (i/n+i%n)%2 == 1 {
			r := grid.Cell(i, n, cellW, cellH)
			dc.SetRGBA(0.88, 0.88, 0.88, 0.25)
			dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(cellW), float64(cellH))
			dc.Fill()
		}
	}

	// remainder strips belong to no cell
	usedW, usedH := float64(n*cellW), float64(n*cellH)
	dc.SetRGBA(0, 0, 0, 0.6)
	if usedW < float64(b.Dx()) {
		dc.DrawRectangle(usedW, 0, float64(b.Dx())-usedW, float64(b.Dy()))
		dc.Fill()
	}
	if usedH < float64(b.Dy()) {
		dc.DrawRectangle(0, usedH, usedW, float64(b.Dy())-usedH)
		dc.Fill()
	}

	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(math.Max(1, float64(min(cellW, cellH))/60))
	for i := 0; i <= n; i++ {
		x := float64(i * cellW)
		y := float64(i * cellH)
		dc.DrawLine(x, 0, x, usedH)
		dc.DrawLine(0, y, usedW, y)
	}
	dc.Stroke()

	labelSize := math.Max(8, float64(min(cellW, cellH))/6)
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: labelSize}))
	for i := 0; i < n*n; i++ {
		r := grid.Cell(i, n, cellW, cellH)
		tag := fmt.Sprintf("%d", i)
		w, h := dc.MeasureString(tag)
		pad := labelSize * 0.25
		dc.SetRGBA(0, 0, 0, 0.6)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), w+2*pad, h+2*pad)
		dc.Fill()
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(tag, float64(r.Min.X)+pad, float64(r.Min.Y)+pad, 0, 1)
	}
	return dc.Image(), nil
}
