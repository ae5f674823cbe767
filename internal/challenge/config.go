package challenge

import (
	"errors"
	"fmt"
	"time"

	"tileCaptcha/internal/grid"
	"tileCaptcha/internal/vision"
)

// Config fixes how every challenge is built. It is not exposed to callers.
type Config struct {
	Ranges    []vision.ColorRange // selected if inside any range
	Invert    bool
	GridSize  int
	Threshold float64 // strict: a cell counts when coverage > Threshold
	// MinCorrect is the fewest correct cells a usable challenge may have.
	// Zero admits challenges whose answer is "select nothing".
	MinCorrect int
	// AllowFullGrid admits challenges whose every cell is correct.
	AllowFullGrid bool
	TTL        time.Duration
	OutputDir  string
}

// DefaultConfig segments blue objects on a 3×3 grid at 10% coverage.
func DefaultConfig() Config {
	return Config{
		Ranges: []vision.ColorRange{
			{Lower: vision.HSV{H: 100, S: 150, V: 0}, Upper: vision.HSV{H: 140, S: 255, V: 255}},
		},
		GridSize:   3,
		Threshold:  0.1,
		MinCorrect: 1,
		TTL:        5 * time.Minute,
		OutputDir:  "static/challenges",
	}
}

// Usable reports whether a challenge with n correct cells may be issued.
func (c Config) Usable(n int) bool {
	if n < c.MinCorrect {
		return false
	}
	return c.AllowFullGrid || n < c.GridSize*c.GridSize
}

// Validate rejects a misconfiguration before any request is served.
func (c Config) Validate() error {
	if len(c.Ranges) == 0 {
		return errors.New("config: no color range")
	}
	for _, r := range c.Ranges {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	if c.GridSize <= 0 {
		return &grid.InvalidGridError{Size: c.GridSize}
	}
	if c.Threshold < 0 || c.Threshold >= 1 {
		return fmt.Errorf("config: coverage threshold %v outside [0, 1)", c.Threshold)
	}
	if c.MinCorrect < 0 || c.MinCorrect > c.GridSize*c.GridSize || !c.Usable(c.MinCorrect) {
		return fmt.Errorf("config: min correct cells %d admits no challenge on a %dx%d grid", c.MinCorrect, c.GridSize, c.GridSize)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("config: session ttl must be positive, got %v", c.TTL)
	}
	if c.OutputDir == "" {
		return errors.New("config: output dir is required")
	}
	return nil
}
