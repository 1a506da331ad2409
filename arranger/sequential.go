package arranger

import (
	"fmt"
	"strings"

	"github.com/bodgit/tilekit/bitaddr"
	"github.com/bodgit/tilekit/codec"
	"github.com/bodgit/tilekit/datasource"
	"github.com/bodgit/tilekit/palette"
)

// MoveType is a relative move of a sequential arranger.
type MoveType int

const (
	ByteDown MoveType = iota
	ByteUp
	RowDown
	RowUp
	ColRight
	ColLeft
	PageDown
	PageUp
	Home
	End
	// Absolute is not a relative move, use MoveTo instead.
	Absolute
)

var moveNames = []string{"byte-down", "byte-up", "row-down", "row-up", "col-right", "col-left", "page-down", "page-up", "home", "end", "absolute"}

func (m MoveType) String() string {
	if m >= 0 && int(m) < len(moveNames) {
		return moveNames[m]
	}
	return fmt.Sprintf("MoveType(%d)", int(m))
}

// ParseMoveType is the inverse of MoveType.String.
func ParseMoveType(s string) (MoveType, error) {
	for i, name := range moveNames {
		if strings.EqualFold(name, s) {
			return MoveType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: move %q", ErrInvalidOperation, s)
}

// Sequential is an arranger whose elements are laid out one after another
// in a single data source. The elements are derived from the file address,
// codec and tile layout and cannot be set individually.
type Sequential struct {
	grid

	source  *datasource.DataSource
	factory codec.Factory
	codec   codec.Codec
	tiles   TileLayout
	address bitaddr.Address
}

// shape is everything a layout walk depends on.
type shape struct {
	codec      codec.Codec
	tiles      TileLayout
	cols, rows int
	address    bitaddr.Address
}

// NewSequential returns an arranger of width by height elements decoding
// src from the start with c. A Single layout codec makes a 1x1 arranger
// whatever the size asked for.
func NewSequential(width, height int, src *datasource.DataSource, pal *palette.Palette, factory codec.Factory, c codec.Codec) (*Sequential, error) {
	if src == nil || factory == nil || c == nil {
		return nil, fmt.Errorf("%w: sequential arranger needs a source, codec factory and codec", ErrInvalidOperation)
	}
	s := &Sequential{
		source:  src,
		factory: factory,
	}
	s.name = src.Name()
	s.pal = pal
	if err := s.apply(shape{codec: c, tiles: Standard, cols: width, rows: height}); err != nil {
		return nil, err
	}
	return s, nil
}

// Source is the data source every element decodes.
func (s *Sequential) Source() *datasource.DataSource { return s.source }

// Codec is the codec every element uses.
func (s *Sequential) Codec() codec.Codec { return s.codec }

// TileLayout is the current tile layout.
func (s *Sequential) TileLayout() TileLayout { return s.tiles }

// FileAddress is the address of the first element.
func (s *Sequential) FileAddress() bitaddr.Address { return s.address }

// ArrangerBitSize is the number of bits covered by all elements.
func (s *Sequential) ArrangerBitSize() int64 {
	return int64(s.cols*s.rows) * int64(s.codec.StorageSize())
}

func (s *Sequential) sourceBits() (int64, error) {
	if s.source == nil {
		return 0, fmt.Errorf("%w: arranger %q has no data source", ErrInvalidOperation, s.name)
	}
	size, err := s.source.Len()
	if err != nil {
		return 0, err
	}
	return size * 8, nil
}

// clamp limits bits so an arranger of size bits fits in the source.
func (s *Sequential) clamp(bits, size int64) (int64, error) {
	fileBits, err := s.sourceBits()
	if err != nil {
		return 0, err
	}
	return min(max(bits, 0), max(fileBits-size, 0)), nil
}

// prepare checks sh can be laid out and returns it normalised.
func (s *Sequential) prepare(sh shape) (shape, error) {
	if sh.codec == nil {
		return shape{}, fmt.Errorf("%w: no codec", ErrInvalidOperation)
	}
	if sh.codec.Layout() == codec.Single {
		sh.cols, sh.rows = 1, 1
		sh.tiles = Standard
	}
	if sh.cols < 1 || sh.rows < 1 {
		return shape{}, fmt.Errorf("%w: %dx%d grid", ErrOutOfRange, sh.cols, sh.rows)
	}
	if err := sh.tiles.Validate(); err != nil {
		return shape{}, err
	}
	if !sh.tiles.fits(sh.cols, sh.rows) {
		return shape{}, fmt.Errorf("%w: %dx%d grid is not made of %dx%d %s tiles", ErrInvalidOperation, sh.cols, sh.rows, sh.tiles.Width, sh.tiles.Height, sh.tiles.Name)
	}
	bits, err := s.clamp(sh.address.Bits(), int64(sh.cols*sh.rows)*int64(sh.codec.StorageSize()))
	if err != nil {
		return shape{}, err
	}
	sh.address = bitaddr.FromBits(bits)
	return sh, nil
}

func (s *Sequential) apply(sh shape) error {
	sh, err := s.prepare(sh)
	if err != nil {
		return err
	}
	s.codec, s.tiles, s.address = sh.codec, sh.tiles, sh.address
	s.colorType, s.layout = sh.codec.ColorType(), sh.codec.Layout()
	s.cols, s.rows = sh.cols, sh.rows
	s.elemW, s.elemH = sh.codec.Width(), sh.codec.Height()
	s.cells = make([]*Element, s.cols*s.rows)
	s.performLayout()
	return nil
}

// performLayout derives every element by walking the pattern tiles in
// row-major order, advancing through the source one element at a time.
func (s *Sequential) performLayout() {
	cursor := s.address
	bits := int64(s.codec.StorageSize())
	for ty := 0; ty < s.rows; ty += s.tiles.Height {
		for tx := 0; tx < s.cols; tx += s.tiles.Width {
			for _, p := range s.tiles.Pattern {
				x, y := tx+p.X, ty+p.Y
				s.cells[y*s.cols+x] = &Element{
					source:  s.source,
					address: cursor,
					codec:   s.codec,
					palette: s.pal,
					x:       x * s.elemW,
					y:       y * s.elemH,
				}
				cursor = cursor.AddBits(bits)
			}
		}
	}
}

func (s *Sequential) current() shape {
	return shape{codec: s.codec, tiles: s.tiles, cols: s.cols, rows: s.rows, address: s.address}
}

// SetElement always fails, the elements of a sequential arranger are
// derived.
func (s *Sequential) SetElement(*Element, int, int) error {
	return fmt.Errorf("%w: cannot set elements of sequential arranger %q", ErrInvalidOperation, s.name)
}

// ResetElement always fails, the elements of a sequential arranger are
// derived.
func (s *Sequential) ResetElement(int, int) error {
	return fmt.Errorf("%w: cannot reset elements of sequential arranger %q", ErrInvalidOperation, s.name)
}

// Resize changes the grid to width by height elements, or for a Single
// layout codec resizes the codec to width by height pixels, and lays the
// elements out again.
func (s *Sequential) Resize(width, height int) error {
	sh := s.current()
	if s.layout == codec.Single {
		c, err := s.factory.Codec(s.codec.Name(), width, height)
		if err != nil {
			return err
		}
		sh.codec = c
	} else {
		sh.cols, sh.rows = width, height
	}
	return s.apply(sh)
}

// ChangeCodec switches every element to a clone of c. Switching between
// Tiled and Single codecs resets the tile layout and sizes the grid to cover
// about the same pixels.
func (s *Sequential) ChangeCodec(c codec.Codec) error {
	if c == nil {
		return fmt.Errorf("%w: no codec", ErrInvalidOperation)
	}
	sh := s.current()
	sh.codec = s.factory.Clone(c)
	if c.Layout() != s.layout {
		sh.tiles = Standard
		if c.Layout() == codec.Tiled {
			sh.cols = max(s.cols*s.elemW/c.Width(), 1)
			sh.rows = max(s.rows*s.elemH/c.Height(), 1)
		}
	}
	return s.apply(sh)
}

// ChangeCodecAndResize switches every element to c and resizes the
// arranger in one step. Width and height are as for Resize.
func (s *Sequential) ChangeCodecAndResize(c codec.Codec, width, height int) error {
	if c == nil {
		return fmt.Errorf("%w: no codec", ErrInvalidOperation)
	}
	sh := s.current()
	if c.Layout() == codec.Single {
		resized, err := s.factory.Codec(c.Name(), width, height)
		if err != nil {
			return err
		}
		sh.codec = resized
	} else {
		sh.codec = s.factory.Clone(c)
		sh.cols, sh.rows = width, height
		if s.layout != codec.Tiled {
			sh.tiles = Standard
		}
	}
	return s.apply(sh)
}

// ChangePalette switches every element and the default to pal.
func (s *Sequential) ChangePalette(pal *palette.Palette) {
	s.pal = pal
	for i, e := range s.cells {
		if e != nil {
			s.cells[i] = e.WithPalette(pal)
		}
	}
}

// ChangeElementLayout lays the elements out again following l. The grid
// must be made of whole pattern tiles.
func (s *Sequential) ChangeElementLayout(l TileLayout) error {
	if s.layout == codec.Single {
		return fmt.Errorf("%w: single layout arranger %q has no tile layout", ErrInvalidOperation, s.name)
	}
	sh := s.current()
	sh.tiles = l
	return s.apply(sh)
}

// UnlinkResource clears references to the palette or data source with the
// given key. An arranger whose source is unlinked can no longer move.
func (s *Sequential) UnlinkResource(key string) bool {
	changed := s.grid.UnlinkResource(key)
	if s.source != nil && s.source.Key() == key {
		s.source = nil
		changed = true
	}
	return changed
}

// MoveTo moves the first element to addr, clamped so the arranger stays
// within the source, and returns the address used. Every element moves by
// the same amount.
func (s *Sequential) MoveTo(addr bitaddr.Address) (bitaddr.Address, error) {
	bits, err := s.clamp(addr.Bits(), s.ArrangerBitSize())
	if err != nil {
		return s.address, err
	}
	delta := bits - s.address.Bits()
	if delta == 0 {
		return s.address, nil
	}
	for i, e := range s.cells {
		if e != nil {
			s.cells[i] = e.WithAddress(e.address.AddBits(delta))
		}
	}
	s.address = bitaddr.FromBits(bits)
	tracer().Debugf("arranger %q moved to %s", s.name, s.address)
	return s.address, nil
}

// moveDelta returns the number of bits a relative move covers.
func (s *Sequential) moveDelta(m MoveType) (int64, error) {
	storage := int64(s.codec.StorageSize())
	single := s.layout == codec.Single

	var delta int64
	switch m {
	case ByteDown, ByteUp:
		delta = 8
	case RowDown, RowUp:
		if single {
			delta = int64(s.codec.RowStride())
		} else {
			delta = int64(s.cols*s.tiles.Height) * storage
		}
	case ColRight, ColLeft:
		if single {
			delta = int64(s.codec.ColorDepth())
		} else {
			delta = int64(s.tiles.Width*s.tiles.Height) * storage
		}
	case PageDown, PageUp:
		if single {
			delta = int64(s.codec.RowStride()) * int64(max(s.codec.Height()/2, 1))
		} else {
			rows := max(s.rows/2/s.tiles.Height*s.tiles.Height, s.tiles.Height)
			delta = int64(s.cols*rows) * storage
		}
	default:
		return 0, fmt.Errorf("%w: %s is not a relative move", ErrInvalidOperation, m)
	}

	switch m {
	case ByteUp, RowUp, ColLeft, PageUp:
		delta = -delta
	}
	return delta, nil
}

// Move moves the arranger by m and returns the new address. Moves are
// clamped to the source rather than failing.
func (s *Sequential) Move(m MoveType) (bitaddr.Address, error) {
	switch m {
	case Home:
		return s.MoveTo(bitaddr.Zero)
	case End:
		fileBits, err := s.sourceBits()
		if err != nil {
			return s.address, err
		}
		return s.MoveTo(bitaddr.FromBits(fileBits))
	}
	delta, err := s.moveDelta(m)
	if err != nil {
		return s.address, err
	}
	return s.MoveTo(s.address.AddBits(delta))
}
