package arranger

import (
	"fmt"
	"image"
)

// TileLayout is the order a sequential arranger visits the elements of each
// Width by Height pattern tile while walking its source.
type TileLayout struct {
	Name          string
	Width, Height int
	// Pattern lists every element of the pattern tile, relative to its top
	// left corner, in storage order.
	Pattern []image.Point
}

var (
	// Standard stores elements left to right, top to bottom.
	Standard = TileLayout{
		Name:    "Standard",
		Width:   1,
		Height:  1,
		Pattern: []image.Point{{0, 0}},
	}
	// Tiled2x2Row stores 2x2 blocks of elements a row at a time.
	Tiled2x2Row = TileLayout{
		Name:    "Tiled 2x2 Row",
		Width:   2,
		Height:  2,
		Pattern: []image.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	}
	// Tiled2x2Column stores 2x2 blocks of elements a column at a time.
	Tiled2x2Column = TileLayout{
		Name:    "Tiled 2x2 Column",
		Width:   2,
		Height:  2,
		Pattern: []image.Point{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
	}
	// Tiled1x2 stores pairs of vertically adjacent elements, as used by
	// 8x16 sprites.
	Tiled1x2 = TileLayout{
		Name:    "Tiled 1x2",
		Width:   1,
		Height:  2,
		Pattern: []image.Point{{0, 0}, {0, 1}},
	}
)

// TileLayouts returns the builtin layouts.
func TileLayouts() []TileLayout {
	return []TileLayout{Standard, Tiled2x2Row, Tiled2x2Column, Tiled1x2}
}

// TileLayoutByName returns the builtin layout called name.
func TileLayoutByName(name string) (TileLayout, error) {
	for _, l := range TileLayouts() {
		if l.Name == name {
			return l, nil
		}
	}
	return TileLayout{}, fmt.Errorf("%w: unknown tile layout %q", ErrInvalidOperation, name)
}

// Validate checks the pattern visits every element of the pattern tile
// exactly once.
func (l TileLayout) Validate() error {
	if l.Width < 1 || l.Height < 1 || len(l.Pattern) != l.Width*l.Height {
		return fmt.Errorf("%w: tile layout %q is %dx%d with %d elements", ErrInvalidOperation, l.Name, l.Width, l.Height, len(l.Pattern))
	}
	seen := make(map[image.Point]bool, len(l.Pattern))
	for _, p := range l.Pattern {
		if !p.In(image.Rect(0, 0, l.Width, l.Height)) || seen[p] {
			return fmt.Errorf("%w: tile layout %q visits %v twice or outside the tile", ErrInvalidOperation, l.Name, p)
		}
		seen[p] = true
	}
	return nil
}

// fits reports whether a cols by rows grid is made of whole pattern tiles.
func (l TileLayout) fits(cols, rows int) bool {
	return cols%l.Width == 0 && rows%l.Height == 0
}
