package challenge

import (
	"errors"
	"image"
	"math"
	"testing"

	"tileCaptcha/internal/grid"
)

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()

	// 30x30 cells; a 30x30 block fills cell 0 entirely
	clear := writeBlueBlock(t, dir, "clear.png", 90, 90, image.Rect(0, 0, 30, 30))
	r, err := Inspect(cfg, clear, 0.02)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Correct.Equal(grid.NewCorrectSet(0)) || !r.Usable {
		t.Errorf("Expected usable {0}, got %+v", r)
	}
	if math.Abs(r.Margin-0.1) > 1e-9 {
		t.Errorf("Expected margin 0.1 (empty cells), got %f", r.Margin)
	}

	// 9 rows of 10 px in cell 4 is 90/900 = 10% coverage, right at the threshold
	edgy := writeBlueBlock(t, dir, "edgy.png", 90, 90, image.Rect(0, 0, 30, 30), image.Rect(30, 30, 40, 39))
	r, err = Inspect(cfg, edgy, 0.02)
	if err != nil {
		t.Fatal(err)
	}
	if r.Usable || len(r.Unstable) != 1 || r.Unstable[0] != 4 {
		t.Errorf("Expected cell 4 flagged unstable, got %+v", r)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Report{
		{Correct: grid.NewCorrectSet(0), Margin: 0.1, Usable: true},
		{Correct: grid.NewCorrectSet(0, 1, 2), Margin: 0.3},
	})
	if s.Images != 2 || s.Usable != 1 {
		t.Errorf("Unexpected counts %+v", s)
	}
	if math.Abs(s.MeanCorrect-2) > 1e-9 || math.Abs(s.MeanMargin-0.2) > 1e-9 {
		t.Errorf("Unexpected means %+v", s)
	}

	if one := Summarize([]Report{{Margin: 0.5}}); one.StdDevMargin != 0 {
		t.Errorf("Single report should have zero spread, got %f", one.StdDevMargin)
	}
	// unreadable images must not drag the margin statistics toward zero
	withFailed := Summarize([]Report{
		{Correct: grid.NewCorrectSet(0), Margin: 0.1, Usable: true},
		{Source: "broken.png", Err: errors.New("decode failed")},
	})
	if withFailed.Images != 2 || withFailed.Failed != 1 || withFailed.Usable != 1 {
		t.Errorf("Unexpected counts %+v", withFailed)
	}
	if math.Abs(withFailed.MeanMargin-0.1) > 1e-9 || withFailed.StdDevMargin != 0 || withFailed.MeanCorrect != 1 {
		t.Errorf("Failed report leaked into statistics %+v", withFailed)
	}
	if allFailed := Summarize([]Report{{Err: errors.New("x")}}); allFailed.Failed != 1 || allFailed.MeanMargin != 0 {
		t.Errorf("Unexpected summary of failures %+v", allFailed)
	}

	if empty := Summarize(nil); empty.Images != 0 {
		t.Errorf("Unexpected summary of nothing %+v", empty)
	}
}
