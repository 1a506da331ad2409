package arranger

import (
	"fmt"

	"github.com/bodgit/tilekit/codec"
)

// Scattered is an arranger whose elements are placed independently.
type Scattered struct {
	grid
}

// NewScattered returns an empty width by height grid of elemW by elemH pixel
// elements. A Single layout arranger must be 1x1.
func NewScattered(name string, ct codec.ColorType, layout codec.Layout, width, height, elemW, elemH int) (*Scattered, error) {
	if width < 1 || height < 1 || elemW < 1 || elemH < 1 {
		return nil, fmt.Errorf("%w: %dx%d grid of %dx%d elements", ErrOutOfRange, width, height, elemW, elemH)
	}
	if layout == codec.Single && (width != 1 || height != 1) {
		return nil, fmt.Errorf("%w: single layout arranger must be 1x1, not %dx%d", ErrInvalidOperation, width, height)
	}
	return &Scattered{
		grid: newGrid(name, ct, layout, width, height, elemW, elemH),
	}, nil
}

// SetElement places e at x, y, moving it to the pixel position of the cell.
func (s *Scattered) SetElement(e *Element, x, y int) error {
	if e == nil {
		return s.ResetElement(x, y)
	}
	e, err := s.check(e, x, y)
	if err != nil {
		return err
	}
	s.cells[y*s.cols+x] = e
	return nil
}

// ResetElement empties the cell at x, y.
func (s *Scattered) ResetElement(x, y int) error {
	if !s.contains(x, y) {
		return fmt.Errorf("%w: element (%d,%d) in a %dx%d grid", ErrOutOfRange, x, y, s.cols, s.rows)
	}
	s.cells[y*s.cols+x] = nil
	return nil
}

// Resize changes the grid to width by height elements. Elements in the part
// of the grid common to both sizes are kept, new cells are empty.
func (s *Scattered) Resize(width, height int) error {
	if width < 1 || height < 1 {
		return fmt.Errorf("%w: %dx%d grid", ErrOutOfRange, width, height)
	}
	if s.layout == codec.Single && (width != 1 || height != 1) {
		return fmt.Errorf("%w: single layout arranger must be 1x1, not %dx%d", ErrInvalidOperation, width, height)
	}

	cells := make([]*Element, width*height)
	for y := 0; y < min(height, s.rows); y++ {
		copy(cells[y*width:y*width+min(width, s.cols)], s.cells[y*s.cols:])
	}
	s.cells, s.cols, s.rows = cells, width, height
	return nil
}
