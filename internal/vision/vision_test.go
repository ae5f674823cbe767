package vision

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"tileCaptcha/internal/imageio"
)

var blueRange = ColorRange{Lower: HSV{100, 150, 0}, Upper: HSV{140, 255, 255}}

func TestRGBToHSV(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    HSV
	}{
		{name: "black", r: 0, g: 0, b: 0, want: HSV{0, 0, 0}},
		{name: "white", r: 255, g: 255, b: 255, want: HSV{0, 0, 255}},
		{name: "red", r: 255, g: 0, b: 0, want: HSV{0, 255, 255}},
		{name: "green", r: 0, g: 255, b: 0, want: HSV{60, 255, 255}},
		{name: "blue", r: 0, g: 0, b: 255, want: HSV{120, 255, 255}},
		{name: "magenta", r: 255, g: 0, b: 255, want: HSV{150, 255, 255}},
		{name: "dark blue", r: 0, g: 0, b: 128, want: HSV{120, 255, 128}},
		{name: "gray", r: 100, g: 100, b: 100, want: HSV{0, 0, 100}},
		// fixed-point rounding differs from exact division on these
		{name: "near blue", r: 0, g: 1, b: 61, want: HSV{119, 255, 61}},
		{name: "slate", r: 3, g: 7, b: 90, want: HSV{119, 246, 90}},
		{name: "rose", r: 200, g: 30, b: 90, want: HSV{169, 217, 200}},
		{name: "lime", r: 90, g: 200, b: 30, want: HSV{49, 217, 200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RGBToHSV(tt.r, tt.g, tt.b); got != tt.want {
				t.Errorf("RGBToHSV(%d,%d,%d) = %v, want %v", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestDivTables(t *testing.T) {
	tests := []struct {
		i         int
		sat, hue int
	}{
		{i: 1, sat: 1044480, hue: 122880},
		{i: 61, sat: 17123, hue: 2014},
		{i: 128, sat: 8160, hue: 960},
		{i: 255, sat: 4096, hue: 482},
	}
	if satDiv[0] != 0 || hueDiv[0] != 0 {
		t.Errorf("Index 0 must be zero, got %d / %d", satDiv[0], hueDiv[0])
	}
	for _, tt := range tests {
		if satDiv[tt.i] != tt.sat || hueDiv[tt.i] != tt.hue {
			t.Errorf("tables[%d] = %d / %d, want %d / %d", tt.i, satDiv[tt.i], hueDiv[tt.i], tt.sat, tt.hue)
		}
	}
}

func TestRGBToHSVHueInRange(t *testing.T) {
	for r := 0; r < 256; r += 5 {
		for g := 0; g < 256; g += 5 {
			for b := 0; b < 256; b += 5 {
				if h := RGBToHSV(uint8(r), uint8(g), uint8(b)).H; h > MaxHue {
					t.Fatalf("hue %d out of range for (%d,%d,%d)", h, r, g, b)
				}
			}
		}
	}
}

func TestColorRangeValidate(t *testing.T) {
	tests := []struct {
		name    string
		r       ColorRange
		channel string
	}{
		{name: "valid", r: blueRange},
		{name: "hue inverted", r: ColorRange{Lower: HSV{140, 0, 0}, Upper: HSV{100, 255, 255}}, channel: "hue"},
		{name: "hue beyond max", r: ColorRange{Lower: HSV{0, 0, 0}, Upper: HSV{200, 255, 255}}, channel: "hue"},
		{name: "value inverted", r: ColorRange{Lower: HSV{0, 0, 9}, Upper: HSV{10, 10, 8}}, channel: "value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.channel == "" {
				if err != nil {
					t.Fatalf("Expected valid range, got %v", err)
				}
				return
			}
			var re *InvalidRangeError
			if !errors.As(err, &re) {
				t.Fatalf("Expected InvalidRangeError, got %v", err)
			}
			if re.Channel != tt.channel {
				t.Errorf("Expected channel %s, got %s", tt.channel, re.Channel)
			}
		})
	}
}

func TestParseColorRange(t *testing.T) {
	r, err := ParseColorRange("100,150,0:140,255,255")
	if err != nil {
		t.Fatal(err)
	}
	if r != blueRange {
		t.Errorf("Expected %v, got %v", blueRange, r)
	}
	if r.String() != "100,150,0:140,255,255" {
		t.Errorf("String() round trip mismatch: %s", r.String())
	}

	for _, bad := range []string{"", "1,2,3", "1,2:3,4,5", "1,2,3:4,5,x", "1,2,3:4,5,300", "50,0,0:10,255,255"} {
		if _, err := ParseColorRange(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

// twoTone returns a w×h image whose left half is blue and right half white.
func twoTone(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			if x < w/2 {
				c = color.NRGBA{0, 0, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestSegmentDimensionsAndBinary(t *testing.T) {
	img := twoTone(37, 21)
	m, err := Segment(img, blueRange)
	if err != nil {
		t.Fatal(err)
	}
	if m.Width != 37 || m.Height != 21 || len(m.Pix) != 37*21 {
		t.Fatalf("Mask size %dx%d (%d px), want 37x21", m.Width, m.Height, len(m.Pix))
	}
	for i, p := range m.Pix {
		if p != Selected && p != NotSelected {
			t.Fatalf("Non-binary mask entry %d at %d", p, i)
		}
	}
	if !m.At(0, 0) || m.At(36, 0) {
		t.Error("Expected blue half selected and white half not")
	}
	if got := m.Count(image.Rect(0, 0, 37, 21)); got != 18*21 {
		t.Errorf("Expected %d selected pixels, got %d", 18*21, got)
	}
}

func TestSegmentNonZeroOrigin(t *testing.T) {
	img := twoTone(40, 10).SubImage(image.Rect(10, 0, 30, 10))
	m, err := Segment(img, blueRange)
	if err != nil {
		t.Fatal(err)
	}
	if m.Width != 20 || m.Height != 10 {
		t.Fatalf("Mask size %dx%d, want 20x10", m.Width, m.Height)
	}
	if !m.At(9, 5) || m.At(10, 5) {
		t.Error("Sub-image offset not honored")
	}
}

func TestSegmentNothingSelected(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8)) // all black
	m, err := Segment(img, blueRange)
	if err != nil {
		t.Fatalf("Empty selection must not be an error: %v", err)
	}
	if m.Count(image.Rect(0, 0, 8, 8)) != 0 {
		t.Error("Expected empty mask")
	}
}

func TestSegmentInvalidRange(t *testing.T) {
	_, err := Segment(twoTone(4, 4), ColorRange{Lower: HSV{10, 0, 0}, Upper: HSV{5, 0, 0}})
	var re *InvalidRangeError
	if !errors.As(err, &re) {
		t.Fatalf("Expected InvalidRangeError, got %v", err)
	}
}

func TestSegmenterUnionAndInvert(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})   // H 0
	img.SetNRGBA(1, 0, color.NRGBA{255, 0, 128, 255}) // H ~165
	img.SetNRGBA(2, 0, color.NRGBA{0, 255, 0, 255})   // H 60

	reds := []ColorRange{
		{Lower: HSV{0, 50, 20}, Upper: HSV{25, 255, 255}},
		{Lower: HSV{160, 50, 20}, Upper: HSV{179, 255, 255}},
	}
	s, err := NewSegmenter(reds, false)
	if err != nil {
		t.Fatal(err)
	}
	m := s.Segment(img)
	if !m.At(0, 0) || !m.At(1, 0) || m.At(2, 0) {
		t.Errorf("Union of ranges wrong: %v", m.Pix)
	}

	s.Invert = true
	m = s.Segment(img)
	if m.At(0, 0) || m.At(1, 0) || !m.At(2, 0) {
		t.Errorf("Inverted mask wrong: %v", m.Pix)
	}
}

func TestNewSegmenterRequiresRange(t *testing.T) {
	if _, err := NewSegmenter(nil, false); err == nil {
		t.Error("Expected error for empty range list")
	}
}

func TestSegmentFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blue.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, twoTone(10, 10)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s, _ := NewSegmenter([]ColorRange{blueRange}, false)
	img, m, err := s.SegmentFile(path)
	if err != nil {
		t.Fatalf("SegmentFile failed: %v", err)
	}
	if img.Bounds().Dx() != 10 || m.Count(image.Rect(0, 0, 10, 10)) != 50 {
		t.Errorf("Unexpected segmentation of decoded file")
	}

	_, _, err = s.SegmentFile(filepath.Join(dir, "missing.png"))
	var le *imageio.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Expected LoadError for missing file, got %v", err)
	}
}
