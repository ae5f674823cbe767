// Package vision segments colored objects out of an image by HSV thresholding.
package vision

import "math"

// Channel maxima of the 8-bit HSV model used for thresholding.
// Hue is halved to fit a byte, so 360 degrees map onto 0-179.
const (
	MaxHue        = 179
	MaxSaturation = 255
	MaxValue      = 255
)

// HSV is a pixel in the OpenCV 8-bit HSV convention.
type HSV struct {
	H, S, V uint8
}

// hsvShift is the fixed-point precision of the division tables.
const hsvShift = 12

// satDiv[v] ≈ (255<<hsvShift)/v and hueDiv[d] ≈ (180<<hsvShift)/(6*d), both
// rounded to nearest. Index 0 stays 0.
var satDiv, hueDiv = divTables()

func divTables() (sat, hue [256]int) {
	for i := 1; i < 256; i++ {
		sat[i] = int(math.Round(float64(255<<hsvShift) / float64(i)))
		hue[i] = int(math.Round(float64(180<<hsvShift) / (6 * float64(i))))
	}
	return sat, hue
}

// RGBToHSV converts an 8-bit RGB triple to HSV (H 0-179, S 0-255, V 0-255)
// with the fixed-point arithmetic of cv::cvtColor(COLOR_BGR2HSV), so a range
// selects exactly the pixels cv::inRange would.
func RGBToHSV(r, g, b uint8) HSV {
	ri, gi, bi := int(r), int(g), int(b)
	v := max(ri, gi, bi)
	diff := v - min(ri, gi, bi)

	s := (diff*satDiv[v] + 1<<(hsvShift-1)) >> hsvShift

	var h int
	switch v {
	case ri:
		h = gi - bi
	case gi:
		h = bi - ri + 2*diff
	default:
		h = ri - gi + 4*diff
	}
	// arithmetic shift floors negative hues before the wrap
	h = (h*hueDiv[diff] + 1<<(hsvShift-1)) >> hsvShift
	if h < 0 {
		h += 180
	}
	return HSV{H: uint8(h), S: uint8(s), V: uint8(v)}
}
