package vision

import (
	"errors"
	"image"
	"image/color"

	"tileCaptcha/internal/imageio"
)

// Segment thresholds img against a single range. It is the single-range form
// of Segmenter.Segment.
func Segment(img image.Image, r ColorRange) (*Mask, error) {
	s, err := NewSegmenter([]ColorRange{r}, false)
	if err != nil {
		return nil, err
	}
	return s.Segment(img), nil
}

// Segmenter selects pixels falling inside any of its ranges. With Invert set
// the complement is selected instead, which is how a dominant background color
// is cut away from the object in front of it.
type Segmenter struct {
	Ranges []ColorRange
	Invert bool
}

// NewSegmenter validates every range up front so that a bad configuration is
// rejected at startup instead of per request.
func NewSegmenter(ranges []ColorRange, invert bool) (*Segmenter, error) {
	if len(ranges) == 0 {
		return nil, errors.New("segmenter: at least one color range is required")
	}
	for _, r := range ranges {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return &Segmenter{Ranges: append([]ColorRange(nil), ranges...), Invert: invert}, nil
}

// SegmentFile decodes the image at path and segments it. Decode failures are
// returned as *imageio.LoadError.
func (s *Segmenter) SegmentFile(path string) (image.Image, *Mask, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return img, s.Segment(img), nil
}

// Segment builds a mask with the same dimensions as img.
func (s *Segmenter) Segment(img image.Image) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())

	// Decoders hand back a handful of concrete types; reading them directly
	// avoids an interface call and allocation per pixel.
	switch src := img.(type) {
	case *image.YCbCr:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				yi := src.YOffset(b.Min.X+x, b.Min.Y+y)
				ci := src.COffset(b.Min.X+x, b.Min.Y+y)
				r, g, bl := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				s.mark(m, x, y, r, g, bl)
			}
		}
	case *image.RGBA:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
				s.mark(m, x, y, src.Pix[i], src.Pix[i+1], src.Pix[i+2])
			}
		}
	case *image.NRGBA:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
				s.mark(m, x, y, src.Pix[i], src.Pix[i+1], src.Pix[i+2])
			}
		}
	default:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				s.mark(m, x, y, c.R, c.G, c.B)
			}
		}
	}
	return m
}

func (s *Segmenter) mark(m *Mask, x, y int, r, g, b uint8) {
	p := RGBToHSV(r, g, b)
	in := false
	for _, cr := range s.Ranges {
		if cr.Contains(p) {
			in = true
			break
		}
	}
	if in != s.Invert {
		m.Pix[y*m.Width+x] = Selected
	}
}
