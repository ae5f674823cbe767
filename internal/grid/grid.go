// Package grid scores a segmentation mask cell by cell on an N×N grid.
package grid

import (
	"fmt"
	"image"
	"slices"

	"tileCaptcha/internal/vision"
)

// InvalidGridError is returned when the grid cannot tile the mask.
type InvalidGridError struct {
	Size          int
	Width, Height int
}

func (e *InvalidGridError) Error() string {
	if e.Size <= 0 {
		return fmt.Sprintf("invalid grid size %d", e.Size)
	}
	return fmt.Sprintf("invalid grid: %dx%d mask is smaller than a %dx%d grid", e.Width, e.Height, e.Size, e.Size)
}

// CellSize returns the floor-divided cell dimensions of an n×n grid over a
// w×h area. Rows and columns past n*cellW / n*cellH belong to no cell.
func CellSize(w, h, n int) (cellW, cellH int, err error) {
	if n <= 0 {
		return 0, 0, &InvalidGridError{Size: n, Width: w, Height: h}
	}
	cellW, cellH = w/n, h/n
	if cellW == 0 || cellH == 0 {
		return 0, 0, &InvalidGridError{Size: n, Width: w, Height: h}
	}
	return cellW, cellH, nil
}

// Cell returns the bounds of cell index i (row-major) on an n×n grid.
func Cell(i, n, cellW, cellH int) image.Rectangle {
	row, col := i/n, i%n
	return image.Rect(col*cellW, row*cellH, (col+1)*cellW, (row+1)*cellH)
}

// Coverage returns the selected fraction of every cell, indexed row*n+col.
func Coverage(m *vision.Mask, n int) ([]float64, error) {
	cellW, cellH, err := CellSize(m.Width, m.Height, n)
	if err != nil {
		return nil, err
	}
	area := float64(cellW * cellH)
	out := make([]float64, n*n)
	for i := range out {
		out[i] = float64(m.Count(Cell(i, n, cellW, cellH))) / area
	}
	return out, nil
}

// Score returns the cells whose coverage is strictly greater than threshold.
func Score(m *vision.Mask, n int, threshold float64) (CorrectSet, error) {
	cov, err := Coverage(m, n)
	if err != nil {
		return nil, err
	}
	set := CorrectSet{}
	for i, c := range cov {
		if c > threshold {
			set = append(set, i)
		}
	}
	return set, nil
}

// CorrectSet is a sorted, duplicate-free set of cell indices.
type CorrectSet []int

// NewCorrectSet normalizes indices into a CorrectSet.
func NewCorrectSet(indices ...int) CorrectSet {
	s := slices.Clone(indices)
	slices.Sort(s)
	return CorrectSet(slices.Compact(s))
}

// Equal reports exact set equality.
func (s CorrectSet) Equal(o CorrectSet) bool {
	return slices.Equal(NewCorrectSet(s...), NewCorrectSet(o...))
}

// Contains reports whether cell i is in the set.
func (s CorrectSet) Contains(i int) bool {
	_, ok := slices.BinarySearch(s, i)
	return ok
}

// Ints returns the indices as a plain slice (never nil).
func (s CorrectSet) Ints() []int {
	if s == nil {
		return []int{}
	}
	return []int(s)
}
