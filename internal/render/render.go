// Package render produces the images shown to a user solving a challenge.
package render

import (
	"image"
	"image/color"
	"image/draw"

	"tileCaptcha/internal/vision"
)

// Segmented keeps the source pixels where the mask is selected and paints
// everything else black.
func Segmented(img image.Image, m *vision.Mask) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.Black, image.Point{}, draw.Src)
	for y := 0; y < m.Height && y < b.Dy(); y++ {
		for x := 0; x < m.Width && x < b.Dx(); x++ {
			if m.At(x, y) {
				out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return out
}

// Silhouette renders the mask as a black and white image.
func Silhouette(m *vision.Mask) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(g.Pix, m.Pix)
	return g
}

// Redact blacks out the selected pixels and keeps the rest of the image.
func Redact(img image.Image, m *vision.Mask) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	black := color.RGBA{A: 255}
	for y := 0; y < m.Height && y < b.Dy(); y++ {
		for x := 0; x < m.Width && x < b.Dx(); x++ {
			if m.At(x, y) {
				out.SetRGBA(x, y, black)
			}
		}
	}
	return out
}
