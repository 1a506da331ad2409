/*
Package codec implements the graphics codecs which turn the bits of one
element into pixels and back.

A codec decodes exactly StorageSize bits into one foreign value per pixel, in
row-major order: a palette index for Indexed codecs or a packed color for
Direct codecs. The pipeline functions in this package take care of reading
those bits from a data source, looking values up in a palette and writing
encoded elements back.

Codecs are described by a Format. Planar formats store each bit of a pixel in
a separate bit-plane, packed formats store the bits of a pixel next to each
other and direct formats store a packed color per pixel. A Registry holds the
known formats and creates codecs from them on demand.
*/
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bodgit/tilekit/bitstream"
	"github.com/bodgit/tilekit/colors"
	"github.com/npillmayer/schuko/tracing"
)

var (
	// ErrUnsupportedFormat is returned for an unknown codec name.
	ErrUnsupportedFormat = errors.New("codec: unsupported format")
	// ErrInvalidFormat is returned when a format definition is
	// inconsistent.
	ErrInvalidFormat = errors.New("codec: invalid format")
	// ErrInvalidSize is returned when a codec cannot be sized as asked.
	ErrInvalidSize = errors.New("codec: invalid size")
	// ErrPixelCount is returned when the number of pixels handed to Encode
	// does not match the codec.
	ErrPixelCount = errors.New("codec: wrong number of pixels")
	// ErrValueRange is returned when a value handed to Encode does not fit
	// in the color depth of the codec.
	ErrValueRange = errors.New("codec: value out of range")
	// ErrNoPalette is returned when an indexed element has no palette.
	ErrNoPalette = errors.New("codec: indexed element has no palette")
)

// tracer writes to trace with key 'tilekit.codec'
func tracer() tracing.Trace {
	return tracing.Select("tilekit.codec")
}

// ColorType says how decoded values become colors.
type ColorType int

const (
	// Indexed values are palette indices.
	Indexed ColorType = iota
	// Direct values are packed colors.
	Direct
)

func (c ColorType) String() string {
	switch c {
	case Indexed:
		return "indexed"
	case Direct:
		return "direct"
	}
	return fmt.Sprintf("ColorType(%d)", int(c))
}

// ParseColorType is the inverse of ColorType.String.
func ParseColorType(s string) (ColorType, error) {
	switch strings.ToLower(s) {
	case "indexed":
		return Indexed, nil
	case "direct":
		return Direct, nil
	}
	return 0, fmt.Errorf("%w: color type %q", ErrInvalidFormat, s)
}

// Layout says whether a codec describes one tile of a grid or a whole image.
type Layout int

const (
	// Tiled codecs describe fixed size elements arranged in a grid.
	Tiled Layout = iota
	// Single codecs describe one image filling the arranger.
	Single
)

func (l Layout) String() string {
	switch l {
	case Tiled:
		return "tiled"
	case Single:
		return "single"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// ParseLayout is the inverse of Layout.String.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(s) {
	case "tiled":
		return Tiled, nil
	case "single":
		return Single, nil
	}
	return 0, fmt.Errorf("%w: layout %q", ErrInvalidFormat, s)
}

// Codec converts between the stored bits of an element and its pixels.
type Codec interface {
	Name() string
	Width() int
	Height() int
	ColorType() ColorType
	Layout() Layout
	// ColorDepth is the number of bits per pixel.
	ColorDepth() int
	// RowStride is the number of bits one row of pixels occupies.
	RowStride() int
	// StorageSize is the number of bits one element occupies.
	StorageSize() int

	CanResize() bool
	WidthResizeIncrement() int
	HeightResizeIncrement() int

	// Decode reads StorageSize bits and returns Width*Height values.
	Decode(bs *bitstream.Stream) ([]uint32, error)
	// Encode writes Width*Height values as StorageSize bits.
	Encode(bs *bitstream.Stream, values []uint32) error
}

// DirectCodec is a Codec whose values are packed colors.
type DirectCodec interface {
	Codec
	ColorModel() colors.Model
}

// Factory creates codecs by name.
type Factory interface {
	// Codec returns the named codec sized width by height pixels. A zero
	// width or height selects the format default.
	Codec(name string, width, height int) (Codec, error)
	// Clone returns an independent copy of c.
	Clone(c Codec) Codec
}
