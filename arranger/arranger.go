/*
Package arranger implements the grids which place graphic elements in pixel
space and tie each of them to a location in a data source.

An arranger is a grid of element cells, each of which is empty or holds one
Element. A Scattered arranger has independently placed elements. A
Sequential arranger derives its elements by walking one data source from a
file address with one codec, following a TileLayout.

Coordinates named x, y, width and height are in elements unless the function
says otherwise. Pixel coordinates are the element coordinate multiplied by
the element size.

Arrangers are not safe for concurrent mutation. Concurrent reads, for
example rendering every element in parallel, are safe.
*/
package arranger

import (
	"errors"
	"fmt"
	"image"
	"iter"

	"github.com/bodgit/tilekit/codec"
	"github.com/bodgit/tilekit/palette"
	"github.com/npillmayer/schuko/tracing"
)

var (
	// ErrOutOfRange is returned for coordinates outside an arranger.
	ErrOutOfRange = errors.New("arranger: out of range")
	// ErrTypeMismatch is returned when an element does not match the
	// color type or element size of an arranger.
	ErrTypeMismatch = errors.New("arranger: type mismatch")
	// ErrInvalidOperation is returned when an operation is not allowed for
	// the kind or layout of an arranger.
	ErrInvalidOperation = errors.New("arranger: invalid operation")
)

// tracer writes to trace with key 'tilekit.arranger'
func tracer() tracing.Trace {
	return tracing.Select("tilekit.arranger")
}

// Arranger is implemented by *Scattered and *Sequential.
type Arranger interface {
	Name() string
	SetName(name string)
	ColorType() codec.ColorType
	Layout() codec.Layout

	// GridSize is the number of element columns and rows.
	GridSize() (width, height int)
	// ElementSize is the size of every element in pixels.
	ElementSize() (width, height int)
	// Bounds is the pixel rectangle covered by the arranger.
	Bounds() image.Rectangle

	// DefaultPalette is used for elements with no palette of their own.
	DefaultPalette() *palette.Palette
	SetDefaultPalette(p *palette.Palette)

	ElementAt(x, y int) (*Element, error)
	SetElement(e *Element, x, y int) error
	ResetElement(x, y int) error
	ElementAtPixel(px, py int) (*Element, error)

	// Elements yields every element with its grid position in row-major
	// order. Empty cells are skipped.
	Elements() iter.Seq2[image.Point, *Element]
	// ElementsByPixel yields every element intersecting the pixel
	// rectangle r in row-major order. Empty cells are skipped.
	ElementsByPixel(r image.Rectangle) iter.Seq2[image.Point, *Element]

	// Clone returns a scattered arranger holding copies of the elements of
	// the given rectangle, moved so the rectangle starts at the origin.
	Clone(x, y, width, height int) (*Scattered, error)
	// CopyElements returns a detached copy of the given rectangle.
	CopyElements(x, y, width, height int) (*ElementCopy, error)
	Resize(width, height int) error
	// UnlinkResource clears every reference to the palette or data source
	// with the given key and reports whether anything changed.
	UnlinkResource(key string) bool
}

// grid is the element storage shared by both arranger kinds. Cells are
// stored row-major.
type grid struct {
	name       string
	colorType  codec.ColorType
	layout     codec.Layout
	cols, rows int
	elemW      int
	elemH      int
	cells      []*Element
	pal        *palette.Palette
}

func newGrid(name string, ct codec.ColorType, layout codec.Layout, cols, rows, elemW, elemH int) grid {
	return grid{
		name:      name,
		colorType: ct,
		layout:    layout,
		cols:      cols,
		rows:      rows,
		elemW:     elemW,
		elemH:     elemH,
		cells:     make([]*Element, cols*rows),
	}
}

func (g *grid) Name() string { return g.name }

func (g *grid) SetName(name string) { g.name = name }

func (g *grid) ColorType() codec.ColorType { return g.colorType }

func (g *grid) Layout() codec.Layout { return g.layout }

func (g *grid) GridSize() (int, int) { return g.cols, g.rows }

func (g *grid) ElementSize() (int, int) { return g.elemW, g.elemH }

func (g *grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.cols*g.elemW, g.rows*g.elemH)
}

func (g *grid) DefaultPalette() *palette.Palette { return g.pal }

func (g *grid) SetDefaultPalette(p *palette.Palette) { g.pal = p }

func (g *grid) contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.cols && y < g.rows
}

func (g *grid) checkRect(x, y, w, h int) error {
	if w < 1 || h < 1 || !g.contains(x, y) || !g.contains(x+w-1, y+h-1) {
		return fmt.Errorf("%w: %dx%d at (%d,%d) in a %dx%d grid", ErrOutOfRange, w, h, x, y, g.cols, g.rows)
	}
	return nil
}

func (g *grid) ElementAt(x, y int) (*Element, error) {
	if !g.contains(x, y) {
		return nil, fmt.Errorf("%w: element (%d,%d) in a %dx%d grid", ErrOutOfRange, x, y, g.cols, g.rows)
	}
	return g.cells[y*g.cols+x], nil
}

func (g *grid) ElementAtPixel(px, py int) (*Element, error) {
	if !image.Pt(px, py).In(g.Bounds()) {
		return nil, fmt.Errorf("%w: pixel (%d,%d) outside %v", ErrOutOfRange, px, py, g.Bounds())
	}
	return g.cells[(py/g.elemH)*g.cols+px/g.elemW], nil
}

// check validates e for the cell at x, y and returns it positioned there.
func (g *grid) check(e *Element, x, y int) (*Element, error) {
	if !g.contains(x, y) {
		return nil, fmt.Errorf("%w: element (%d,%d) in a %dx%d grid", ErrOutOfRange, x, y, g.cols, g.rows)
	}
	if e.Codec() == nil {
		return nil, fmt.Errorf("%w: element has no codec", ErrInvalidOperation)
	}
	if ct := e.Codec().ColorType(); ct != g.colorType {
		return nil, fmt.Errorf("%w: %s element in a %s arranger", ErrTypeMismatch, ct, g.colorType)
	}
	if e.Width() != g.elemW || e.Height() != g.elemH {
		return nil, fmt.Errorf("%w: %dx%d element in a grid of %dx%d elements", ErrTypeMismatch, e.Width(), e.Height(), g.elemW, g.elemH)
	}
	if e.Rotation() != RotationNone && g.elemW != g.elemH {
		return nil, fmt.Errorf("%w: cannot rotate a %dx%d element", ErrInvalidOperation, g.elemW, g.elemH)
	}
	return e.WithPosition(x*g.elemW, y*g.elemH), nil
}

func (g *grid) rect(x0, y0, x1, y1 int) iter.Seq2[image.Point, *Element] {
	return func(yield func(image.Point, *Element) bool) {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				e := g.cells[y*g.cols+x]
				if e == nil {
					continue
				}
				if !yield(image.Pt(x, y), e) {
					return
				}
			}
		}
	}
}

func (g *grid) Elements() iter.Seq2[image.Point, *Element] {
	return g.rect(0, 0, g.cols, g.rows)
}

func (g *grid) ElementsByPixel(r image.Rectangle) iter.Seq2[image.Point, *Element] {
	r = r.Intersect(g.Bounds())
	if r.Empty() {
		return func(func(image.Point, *Element) bool) {}
	}
	return g.rect(r.Min.X/g.elemW, r.Min.Y/g.elemH, (r.Max.X+g.elemW-1)/g.elemW, (r.Max.Y+g.elemH-1)/g.elemH)
}

func (g *grid) Clone(x, y, w, h int) (*Scattered, error) {
	if err := g.checkRect(x, y, w, h); err != nil {
		return nil, err
	}
	if g.layout == codec.Single && (x != 0 || y != 0 || w != g.cols || h != g.rows) {
		return nil, fmt.Errorf("%w: a single layout arranger can only be cloned whole", ErrInvalidOperation)
	}

	s := &Scattered{
		grid: newGrid(g.name, g.colorType, g.layout, w, h, g.elemW, g.elemH),
	}
	s.pal = g.pal
	for p, e := range g.rect(x, y, x+w, y+h) {
		cx, cy := p.X-x, p.Y-y
		s.cells[cy*w+cx] = e.WithPosition(cx*g.elemW, cy*g.elemH)
	}
	return s, nil
}

// ElementCopy is a detached rectangle of elements taken from an arranger.
type ElementCopy struct {
	Width, Height               int
	ElementWidth, ElementHeight int
	ColorType                   codec.ColorType
	Layout                      codec.Layout
	// Elements is indexed [y][x]; empty cells are nil.
	Elements [][]*Element
}

func (g *grid) CopyElements(x, y, w, h int) (*ElementCopy, error) {
	if err := g.checkRect(x, y, w, h); err != nil {
		return nil, err
	}
	c := &ElementCopy{
		Width:         w,
		Height:        h,
		ElementWidth:  g.elemW,
		ElementHeight: g.elemH,
		ColorType:     g.colorType,
		Layout:        g.layout,
		Elements:      make([][]*Element, h),
	}
	for row := range c.Elements {
		c.Elements[row] = make([]*Element, w)
	}
	for p, e := range g.rect(x, y, x+w, y+h) {
		c.Elements[p.Y-y][p.X-x] = e.clone()
	}
	return c, nil
}

func (g *grid) UnlinkResource(key string) bool {
	if key == "" {
		return false
	}
	changed := false
	for i, e := range g.cells {
		if e == nil {
			continue
		}
		if paletteKey(e.palette) == key {
			e = e.WithPalette(nil)
			changed = true
		}
		if sourceKey(e.source) == key {
			e = e.WithSource(nil)
			changed = true
		}
		g.cells[i] = e
	}
	if paletteKey(g.pal) == key {
		g.pal = nil
		changed = true
	}
	if changed {
		tracer().Debugf("unlinked %q from arranger %q", key, g.name)
	}
	return changed
}
