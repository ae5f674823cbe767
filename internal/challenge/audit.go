package challenge

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"tileCaptcha/internal/grid"
	"tileCaptcha/internal/vision"
)

// Report describes how an image would score without issuing a challenge.
type Report struct {
	Source   string
	Correct  grid.CorrectSet
	Coverage []float64
	// Margin is the smallest distance between any cell's coverage and the
	// threshold. Small margins mean a cell could flip with slight noise.
	Margin   float64
	Unstable []int // cells within the ambiguity band
	Usable   bool
	// Err is set when the image could not be scored; the other fields are
	// then meaningless.
	Err error
}

// Inspect scores the image at path under cfg. Cells whose coverage lies
// within band of the threshold are reported as unstable.
func Inspect(cfg Config, path string, band float64) (Report, error) {
	seg, err := vision.NewSegmenter(cfg.Ranges, cfg.Invert)
	if err != nil {
		return Report{}, err
	}
	_, mask, err := seg.SegmentFile(path)
	if err != nil {
		return Report{}, err
	}
	cov, err := grid.Coverage(mask, cfg.GridSize)
	if err != nil {
		return Report{}, err
	}
	correct, err := grid.Score(mask, cfg.GridSize, cfg.Threshold)
	if err != nil {
		return Report{}, err
	}

	r := Report{Source: path, Correct: correct, Coverage: cov, Margin: math.Inf(1)}
	for i, c := range cov {
		d := math.Abs(c - cfg.Threshold)
		r.Margin = math.Min(r.Margin, d)
		if d <= band {
			r.Unstable = append(r.Unstable, i)
		}
	}
	r.Usable = cfg.Usable(len(correct)) && len(r.Unstable) == 0
	return r, nil
}

// Summary aggregates a batch of reports. Failed reports count toward Images
// and Failed only.
type Summary struct {
	Images       int
	Failed       int
	Usable       int
	MeanCorrect  float64 // mean number of correct cells per image
	MeanMargin   float64
	StdDevMargin float64
}

// Summarize computes pool-wide statistics over reports.
func Summarize(reports []Report) Summary {
	s := Summary{Images: len(reports)}
	var counts, margins []float64
	for _, r := range reports {
		if r.Err != nil {
			s.Failed++
			continue
		}
		counts = append(counts, float64(len(r.Correct)))
		margins = append(margins, r.Margin)
		if r.Usable {
			s.Usable++
		}
	}
	if len(counts) == 0 {
		return s
	}
	s.MeanCorrect = stat.Mean(counts, nil)
	s.MeanMargin, s.StdDevMargin = stat.MeanStdDev(margins, nil)
	if len(counts) == 1 {
		s.StdDevMargin = 0
	}
	return s
}
