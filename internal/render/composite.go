package render

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// Composite scales object to the background's size and pastes every
// non-black object pixel over the background. Pure black in the object is
// treated as transparent.
func Composite(object, background image.Image) *image.RGBA {
	bb := background.Bounds()
	rect := image.Rect(0, 0, bb.Dx(), bb.Dy())

	out := image.NewRGBA(rect)
	xdraw.Draw(out, rect, background, bb.Min, xdraw.Src)

	scaled := image.NewRGBA(rect)
	xdraw.ApproxBiLinear.Scale(scaled, rect, object, object.Bounds(), xdraw.Src, nil)

	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			c := scaled.RGBAAt(x, y)
			if c.R == 0 && c.G == 0 && c.B == 0 {
				continue
			}
			out.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
	return out
}
