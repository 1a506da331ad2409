/*
Package colors implements the packed color encodings used by console
palettes and direct color graphics.

A foreign color is the packed value as the console stores it, right aligned
in a uint32. A native color is a color.NRGBA with eight bits per channel.
Channels narrower than eight bits are expanded by replicating their high bits
so converting a foreign color to native and back is lossless.
*/
package colors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"strings"
)

// ErrUnsupportedFormat is returned for an unknown color model.
var ErrUnsupportedFormat = errors.New("colors: unsupported color model")

// Model identifies a packed color encoding.
type Model int

// Supported models.
const (
	// BGR15 is 0BBBBBGGGGGRRRRR stored little endian, as used by the SNES
	// and GBA.
	BGR15 Model = iota + 1
	// RGB15 is 0RRRRRGGGGGBBBBB stored little endian.
	RGB15
	// ABGR16 is BGR15 with bit 15 used as a one bit alpha channel.
	ABGR16
	// BGR9 is 0000BBB0GGG0RRR0 stored big endian, as used by the Genesis.
	BGR9
	// RGB24 is RRGGBB stored big endian.
	RGB24
	// ARGB32 is AARRGGBB stored big endian.
	ARGB32
)

type channel struct {
	shift, bits uint
}

type layout struct {
	name    string
	size    int
	order   binary.ByteOrder
	r, g, b channel
	a       channel // bits == 0 means opaque
}

var layouts = map[Model]layout{
	BGR15:  {"BGR15", 2, binary.LittleEndian, channel{0, 5}, channel{5, 5}, channel{10, 5}, channel{}},
	RGB15:  {"RGB15", 2, binary.LittleEndian, channel{10, 5}, channel{5, 5}, channel{0, 5}, channel{}},
	ABGR16: {"ABGR16", 2, binary.LittleEndian, channel{0, 5}, channel{5, 5}, channel{10, 5}, channel{15, 1}},
	BGR9:   {"BGR9", 2, binary.BigEndian, channel{1, 3}, channel{5, 3}, channel{9, 3}, channel{}},
	RGB24:  {"RGB24", 3, binary.BigEndian, channel{16, 8}, channel{8, 8}, channel{0, 8}, channel{}},
	ARGB32: {"ARGB32", 4, binary.BigEndian, channel{16, 8}, channel{8, 8}, channel{0, 8}, channel{24, 8}},
}

// Models returns every supported model.
func Models() []Model {
	return []Model{BGR15, RGB15, ABGR16, BGR9, RGB24, ARGB32}
}

// ParseModel returns the model called name, ignoring case.
func ParseModel(name string) (Model, error) {
	for m, l := range layouts {
		if strings.EqualFold(l.name, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

func (m Model) layout() (layout, error) {
	l, ok := layouts[m]
	if !ok {
		return layout{}, fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(m))
	}
	return l, nil
}

func (m Model) String() string {
	if l, ok := layouts[m]; ok {
		return l.name
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// Size returns the number of bytes a packed color occupies, or zero for an
// unknown model.
func (m Model) Size() int {
	return layouts[m].size
}

// HasAlpha reports whether the model stores an alpha channel.
func (m Model) HasAlpha() bool {
	return layouts[m].a.bits > 0
}

// expand widens a bits wide value to eight bits by repeating its pattern.
func expand(v uint32, bits uint) uint8 {
	if bits == 0 {
		return 0xff
	}
	var out uint32
	for n := uint(0); n < 8; n += bits {
		out = out<<bits | v
	}
	return uint8(out >> (uint(8+bits-1)/bits*bits - 8))
}

func (c channel) get(v uint32) uint32 {
	return v >> c.shift & (1<<c.bits - 1)
}

func (c channel) put(v uint8) uint32 {
	if c.bits == 0 {
		return 0
	}
	return uint32(v) >> (8 - c.bits) << c.shift
}

// ToNative converts a packed foreign color to native.
func (m Model) ToNative(foreign uint32) (color.NRGBA, error) {
	l, err := m.layout()
	if err != nil {
		return color.NRGBA{}, err
	}
	return color.NRGBA{
		R: expand(l.r.get(foreign), l.r.bits),
		G: expand(l.g.get(foreign), l.g.bits),
		B: expand(l.b.get(foreign), l.b.bits),
		A: expand(l.a.get(foreign), l.a.bits),
	}, nil
}

// ToForeign packs a native color, truncating each channel to the width the
// model stores.
func (m Model) ToForeign(c color.NRGBA) (uint32, error) {
	l, err := m.layout()
	if err != nil {
		return 0, err
	}
	return l.r.put(c.R) | l.g.put(c.G) | l.b.put(c.B) | l.a.put(c.A), nil
}

// Unpack decodes a packed color from the first Size() bytes of b.
func (m Model) Unpack(b []byte) (uint32, error) {
	l, err := m.layout()
	if err != nil {
		return 0, err
	}
	if len(b) < l.size {
		return 0, fmt.Errorf("colors: %s needs %d bytes, have %d", l.name, l.size, len(b))
	}
	var tmp [4]byte
	if l.order == binary.BigEndian {
		copy(tmp[4-l.size:], b[:l.size])
	} else {
		copy(tmp[:], b[:l.size])
	}
	return l.order.Uint32(tmp[:]), nil
}

// Pack encodes a foreign color into Size() bytes.
func (m Model) Pack(foreign uint32) ([]byte, error) {
	l, err := m.layout()
	if err != nil {
		return nil, err
	}
	var tmp [4]byte
	l.order.PutUint32(tmp[:], foreign)
	if l.order == binary.BigEndian {
		return tmp[4-l.size:], nil
	}
	return tmp[:l.size], nil
}

// ColorModel returns a color.Model which snaps colors to the nearest value
// representable in m.
func (m Model) ColorModel() color.Model {
	return color.ModelFunc(func(c color.Color) color.Color {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		f, err := m.ToForeign(n)
		if err != nil {
			return n
		}
		out, _ := m.ToNative(f)
		return out
	})
}
