package vision

import (
	"fmt"
	"strconv"
	"strings"
)

// ColorRange is an inclusive per-channel HSV window.
type ColorRange struct {
	Lower HSV
	Upper HSV
}

// InvalidRangeError reports a ColorRange whose bounds are inverted or out of
// the channel's range.
type InvalidRangeError struct {
	Channel string
	Lower   int
	Upper   int
	Max     int
}

func (e *InvalidRangeError) Error() string {
	if e.Lower > e.Upper {
		return fmt.Sprintf("invalid color range: %s lower %d > upper %d", e.Channel, e.Lower, e.Upper)
	}
	return fmt.Sprintf("invalid color range: %s bound exceeds %d (got %d..%d)", e.Channel, e.Max, e.Lower, e.Upper)
}

// Validate checks lower <= upper <= channel max on every channel.
func (r ColorRange) Validate() error {
	channels := []struct {
		name         string
		lower, upper uint8
		max          int
	}{
		{"hue", r.Lower.H, r.Upper.H, MaxHue},
		{"saturation", r.Lower.S, r.Upper.S, MaxSaturation},
		{"value", r.Lower.V, r.Upper.V, MaxValue},
	}
	for _, c := range channels {
		if c.lower > c.upper || int(c.upper) > c.max {
			return &InvalidRangeError{Channel: c.name, Lower: int(c.lower), Upper: int(c.upper), Max: c.max}
		}
	}
	return nil
}

// Contains reports whether p lies inside the range on all three channels.
func (r ColorRange) Contains(p HSV) bool {
	return p.H >= r.Lower.H && p.H <= r.Upper.H &&
		p.S >= r.Lower.S && p.S <= r.Upper.S &&
		p.V >= r.Lower.V && p.V <= r.Upper.V
}

// String formats the range the way ParseColorRange reads it.
func (r ColorRange) String() string {
	return fmt.Sprintf("%d,%d,%d:%d,%d,%d",
		r.Lower.H, r.Lower.S, r.Lower.V, r.Upper.H, r.Upper.S, r.Upper.V)
}

// ParseColorRange parses "h,s,v:h,s,v" (lower:upper) and validates the result.
func ParseColorRange(s string) (ColorRange, error) {
	lo, hi, ok := strings.Cut(s, ":")
	if !ok {
		return ColorRange{}, fmt.Errorf("parse color range %q: expected lower:upper", s)
	}
	lower, err := parseHSV(lo)
	if err != nil {
		return ColorRange{}, fmt.Errorf("parse color range %q: %w", s, err)
	}
	upper, err := parseHSV(hi)
	if err != nil {
		return ColorRange{}, fmt.Errorf("parse color range %q: %w", s, err)
	}
	r := ColorRange{Lower: lower, Upper: upper}
	if err := r.Validate(); err != nil {
		return ColorRange{}, err
	}
	return r, nil
}

func parseHSV(s string) (HSV, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return HSV{}, fmt.Errorf("expected 3 channels, got %d", len(parts))
	}
	var ch [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return HSV{}, fmt.Errorf("channel %d: %w", i, err)
		}
		ch[i] = uint8(n)
	}
	return HSV{H: ch[0], S: ch[1], V: ch[2]}, nil
}
