package vision

import "image"

// Selected and NotSelected are the only values a Mask entry may hold.
const (
	NotSelected uint8 = 0
	Selected    uint8 = 255
)

// Mask is a binary selection buffer, one byte per pixel, row-major.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask returns an all-NotSelected mask of the given size.
func NewMask(w, h int) *Mask {
	return &Mask{Width: w, Height: h, Pix: make([]uint8, w*h)}
}

// At reports whether (x, y) is selected. Out-of-bounds points are not.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] == Selected
}

// Set marks (x, y) as selected or not.
func (m *Mask) Set(x, y int, on bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	v := NotSelected
	if on {
		v = Selected
	}
	m.Pix[y*m.Width+x] = v
}

// Fill selects every pixel in r (clipped to the mask).
func (m *Mask) Fill(r image.Rectangle) {
	r = r.Intersect(image.Rect(0, 0, m.Width, m.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = Selected
		}
	}
}

// Count returns the number of selected pixels inside r.
func (m *Mask) Count(r image.Rectangle) int {
	r = r.Intersect(image.Rect(0, 0, m.Width, m.Height))
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x := r.Min.X; x < r.Max.X; x++ {
			if row[x] == Selected {
				n++
			}
		}
	}
	return n
}

// Gray exposes the mask as an *image.Gray sharing the same pixels.
func (m *Mask) Gray() *image.Gray {
	return &image.Gray{Pix: m.Pix, Stride: m.Width, Rect: image.Rect(0, 0, m.Width, m.Height)}
}
