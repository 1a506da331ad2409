package arranger

import (
	"fmt"
	"image"
	"strings"

	"github.com/bodgit/tilekit/bitaddr"
	"github.com/bodgit/tilekit/codec"
	"github.com/bodgit/tilekit/datasource"
	"github.com/bodgit/tilekit/palette"
)

// Mirror flips an element when it is drawn.
type Mirror int

const (
	MirrorNone Mirror = iota
	MirrorHorizontal
	MirrorVertical
	MirrorBoth
)

var mirrorNames = []string{"none", "horizontal", "vertical", "both"}

func (m Mirror) String() string {
	if m >= 0 && int(m) < len(mirrorNames) {
		return mirrorNames[m]
	}
	return fmt.Sprintf("Mirror(%d)", int(m))
}

// ParseMirror is the inverse of Mirror.String. An empty string is
// MirrorNone.
func ParseMirror(s string) (Mirror, error) {
	if s == "" {
		return MirrorNone, nil
	}
	for i, name := range mirrorNames {
		if strings.EqualFold(name, s) {
			return Mirror(i), nil
		}
	}
	return 0, fmt.Errorf("%w: mirror %q", ErrInvalidOperation, s)
}

// Rotation turns an element when it is drawn. Only square elements can be
// rotated.
type Rotation int

const (
	RotationNone Rotation = iota
	// RotationLeft is a quarter turn anticlockwise.
	RotationLeft
	// RotationTurn is a half turn.
	RotationTurn
	// RotationRight is a quarter turn clockwise.
	RotationRight
)

var rotationNames = []string{"none", "left", "turn", "right"}

func (r Rotation) String() string {
	if r >= 0 && int(r) < len(rotationNames) {
		return rotationNames[r]
	}
	return fmt.Sprintf("Rotation(%d)", int(r))
}

// ParseRotation is the inverse of Rotation.String. An empty string is
// RotationNone.
func ParseRotation(s string) (Rotation, error) {
	if s == "" {
		return RotationNone, nil
	}
	for i, name := range rotationNames {
		if strings.EqualFold(name, s) {
			return Rotation(i), nil
		}
	}
	return 0, fmt.Errorf("%w: rotation %q", ErrInvalidOperation, s)
}

// Element is one placed graphic within an arranger. Elements are never
// modified, the With methods return changed copies.
type Element struct {
	source   *datasource.DataSource
	address  bitaddr.Address
	codec    codec.Codec
	palette  *palette.Palette
	x, y     int
	mirror   Mirror
	rotation Rotation
}

// NewElement returns an element at the origin decoding src at addr with c.
// A nil palette means the arranger default is used.
func NewElement(src *datasource.DataSource, addr bitaddr.Address, c codec.Codec, pal *palette.Palette) *Element {
	return &Element{
		source:  src,
		address: addr,
		codec:   c,
		palette: pal,
	}
}

func (e *Element) Source() *datasource.DataSource { return e.source }
func (e *Element) Address() bitaddr.Address { return e.address }
func (e *Element) Codec() codec.Codec { return e.codec }
func (e *Element) Palette() *palette.Palette { return e.palette }
func (e *Element) X() int { return e.x }
func (e *Element) Y() int { return e.y }
func (e *Element) Mirror() Mirror { return e.mirror }
func (e *Element) Rotation() Rotation { return e.rotation }

// Width is the width of the codec in pixels.
func (e *Element) Width() int {
	if e.codec == nil {
		return 0
	}
	return e.codec.Width()
}

// Height is the height of the codec in pixels.
func (e *Element) Height() int {
	if e.codec == nil {
		return 0
	}
	return e.codec.Height()
}

// Bounds returns the pixel rectangle the element covers in its arranger.
func (e *Element) Bounds() image.Rectangle {
	return image.Rect(e.x, e.y, e.x+e.Width(), e.y+e.Height())
}

func (e *Element) clone() *Element {
	n := *e
	return &n
}

func (e *Element) WithSource(src *datasource.DataSource) *Element {
	n := e.clone()
	n.source = src
	return n
}

func (e *Element) WithAddress(addr bitaddr.Address) *Element {
	n := e.clone()
	n.address = addr
	return n
}

func (e *Element) WithCodec(c codec.Codec) *Element {
	n := e.clone()
	n.codec = c
	return n
}

func (e *Element) WithPalette(pal *palette.Palette) *Element {
	n := e.clone()
	n.palette = pal
	return n
}

func (e *Element) WithPosition(x, y int) *Element {
	n := e.clone()
	n.x, n.y = x, y
	return n
}

func (e *Element) WithMirror(m Mirror) *Element {
	n := e.clone()
	n.mirror = m
	return n
}

func (e *Element) WithRotation(r Rotation) *Element {
	n := e.clone()
	n.rotation = r
	return n
}

func sourceKey(ds *datasource.DataSource) string {
	if ds == nil {
		return ""
	}
	return ds.Key()
}

func paletteKey(p *palette.Palette) string {
	if p == nil {
		return ""
	}
	return p.Key()
}

func sameCodec(a, b codec.Codec) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name() == b.Name() && a.Width() == b.Width() && a.Height() == b.Height()
}

// Equal reports whether e and o describe the same element. Sources and
// palettes compare by key, codecs by name and size.
func (e *Element) Equal(o *Element) bool {
	if e == nil || o == nil {
		return e == o
	}
	return sourceKey(e.source) == sourceKey(o.source) &&
		e.address == o.address &&
		sameCodec(e.codec, o.codec) &&
		paletteKey(e.palette) == paletteKey(o.palette) &&
		e.x == o.x && e.y == o.y &&
		e.mirror == o.mirror &&
		e.rotation == o.rotation
}
