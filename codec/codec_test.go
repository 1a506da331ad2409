package codec

import (
	"image/color"
	"strings"
	"testing"

	"github.com/bodgit/tilekit/bitaddr"
	"github.com/bodgit/tilekit/bitstream"
	"github.com/bodgit/tilekit/colors"
	"github.com/bodgit/tilekit/datasource"
	"github.com/bodgit/tilekit/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, c Codec, b []byte) []uint32 {
	t.Helper()
	bs, err := bitstream.NewReader(b, 8, int64(c.StorageSize()))
	require.NoError(t, err)
	values, err := c.Decode(bs)
	require.NoError(t, err)
	require.Len(t, values, c.Width()*c.Height())
	return values
}

func TestDecode(t *testing.T) {
	r := NewRegistry()

	tables := map[string]struct {
		name  string
		size  int
		set   map[int]byte
		first []uint32
	}{
		"planar": {
			name:  "NES 2bpp",
			size:  16,
			set:   map[int]byte{0: 0x80, 8: 0xc0},
			first: []uint32{3, 2, 0},
		},
		"interlaced": {
			name:  "GB 2bpp",
			size:  16,
			set:   map[int]byte{0: 0x80, 1: 0xc0},
			first: []uint32{3, 2, 0},
		},
		"mixed": {
			name:  "SNES 3bpp",
			size:  24,
			set:   map[int]byte{0: 0x40, 16: 0x80},
			first: []uint32{4, 1, 0},
		},
		"packed": {
			name:  "Genesis 4bpp",
			size:  32,
			set:   map[int]byte{0: 0x12, 1: 0xf0},
			first: []uint32{1, 2, 15, 0},
		},
		"pattern": {
			name:  "GBA 4bpp",
			size:  32,
			set:   map[int]byte{0: 0x12, 1: 0xf0},
			first: []uint32{2, 1, 0, 15},
		},
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			c, err := r.Codec(table.name, 0, 0)
			require.NoError(t, err)
			assert.Equal(t, table.size*8, c.StorageSize())

			b := make([]byte, table.size)
			for i, v := range table.set {
				b[i] = v
			}
			values := decode(t, c, b)
			assert.Equal(t, table.first, values[:len(table.first)])

			bs, err := bitstream.NewWriter(int64(c.StorageSize()), 8)
			require.NoError(t, err)
			require.NoError(t, c.Encode(bs, values))
			assert.Equal(t, b, bs.Bytes())
		})
	}
}

func TestDirect(t *testing.T) {
	r := NewRegistry()

	c, err := r.Codec("BGR15 Direct", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, Direct, c.ColorType())
	assert.Equal(t, 32, c.StorageSize())
	assert.Equal(t, 32, c.RowStride())

	values := decode(t, c, []byte{0x1f, 0x00, 0x00, 0x7c})
	assert.Equal(t, []uint32{0x001f, 0x7c00}, values)
}

func TestEncodeRejects(t *testing.T) {
	r := NewRegistry()

	tables := map[string]struct {
		name   string
		values []uint32
		err    error
	}{
		"count": {
			name:   "NES 1bpp",
			values: make([]uint32, 10),
			err:    ErrPixelCount,
		},
		"planar range": {
			name:   "NES 2bpp",
			values: append(make([]uint32, 63), 4),
			err:    ErrValueRange,
		},
		"packed range": {
			name:   "Genesis 4bpp",
			values: append([]uint32{16}, make([]uint32, 63)...),
			err:    ErrValueRange,
		},
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			c, err := r.Codec(table.name, 0, 0)
			require.NoError(t, err)

			b := make([]byte, c.StorageSize()/8)
			b[len(b)-1] = 0xaa
			want := append([]byte(nil), b...)

			ds := datasource.NewMemory("rom", "rom", b)
			assert.ErrorIs(t, WriteElement(c, ds, bitaddr.Zero, table.values), table.err)

			got := make([]byte, len(want))
			_, err = ds.ReadAt(got, 0)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Contains(t, r.Names(), "SNES 4bpp")

	_, err := r.Codec("Atari 2bpp", 0, 0)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = r.Codec("SNES 4bpp", 16, 16)
	assert.ErrorIs(t, err, ErrInvalidSize)

	c, err := r.Codec("Linear 8bpp", 64, 32)
	require.NoError(t, err)
	assert.True(t, c.CanResize())
	assert.Equal(t, 64*32*8, c.StorageSize())
	assert.Equal(t, 64*8, c.RowStride())

	_, err = r.Codec("Linear 8bpp", -8, 32)
	assert.ErrorIs(t, err, ErrInvalidSize)

	clone := r.Clone(c)
	assert.NotSame(t, c, clone)
	assert.Equal(t, c.Name(), clone.Name())
	assert.Equal(t, c.Width(), clone.Width())
	assert.Equal(t, c.Height(), clone.Height())
}

func TestLoadFormats(t *testing.T) {
	r := NewRegistry()

	err := r.LoadFormats(strings.NewReader(`
formats:
  - name: Swapped 2bpp
    kind: planar
    width: 8
    height: 8
    fixedSize: true
    depth: 2
    images:
      - planes: 2
        rowInterlace: true
    mergePriority: [1, 0]
`))
	require.NoError(t, err)

	c, err := r.Codec("Swapped 2bpp", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, Tiled, c.Layout())

	b := make([]byte, 16)
	b[0] = 0x80
	assert.Equal(t, uint32(2), decode(t, c, b)[0])

	tables := map[string]string{
		"planes": `
formats:
  - name: Good 1bpp
    kind: planar
    width: 8
    height: 8
    depth: 1
  - name: Bad 3bpp
    kind: planar
    width: 8
    height: 8
    depth: 3
    images:
      - planes: 2
`,
		"field": `
formats:
  - name: Good 1bpp
    kind: planar
    width: 8
    height: 8
    depth: 1
    colour: red
`,
		"kind": `
formats:
  - name: Good 1bpp
    kind: chunky
    width: 8
    height: 8
    depth: 1
`,
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, r.LoadFormats(strings.NewReader(table)))
			_, err := r.Format("Good 1bpp")
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestReadElementPastEnd(t *testing.T) {
	c, err := NewRegistry().Codec("NES 1bpp", 0, 0)
	require.NoError(t, err)

	ds := datasource.NewMemory("rom", "rom", []byte{0xff, 0xff, 0xff, 0xff})
	values, err := ReadElement(c, ds, bitaddr.Zero)
	require.NoError(t, err)
	assert.Equal(t, make([]uint32, 64), values)
}

func TestWriteElementUnaligned(t *testing.T) {
	c, err := NewRegistry().Codec("NES 1bpp", 0, 0)
	require.NoError(t, err)

	b := make([]byte, 9)
	for i := range b {
		b[i] = 0xff
	}
	ds := datasource.NewMemory("rom", "rom", b)
	addr, err := bitaddr.New(0, 4)
	require.NoError(t, err)

	values, err := ReadElement(c, ds, addr)
	require.NoError(t, err)
	for _, v := range values {
		require.Equal(t, uint32(1), v)
	}

	require.NoError(t, WriteElement(c, ds, addr, make([]uint32, 64)))

	got := make([]byte, 9)
	_, err = ds.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xf0, 0, 0, 0, 0, 0, 0, 0, 0x0f}, got)
}

func TestNative(t *testing.T) {
	r := NewRegistry()

	nes, err := r.Codec("NES 1bpp", 0, 0)
	require.NoError(t, err)

	b := make([]byte, 8)
	b[0] = 0x80
	ds := datasource.NewMemory("rom", "rom", b)

	_, err = DecodeNative(nes, ds, bitaddr.Zero, nil)
	assert.ErrorIs(t, err, ErrNoPalette)

	pal, err := palette.New("pal", "Two", colors.BGR15, false, palette.ForeignSource{0x0000, 0x001f})
	require.NoError(t, err)

	pixels, err := DecodeNative(nes, ds, bitaddr.Zero, pal)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0xff, 0, 0, 0xff}, pixels[0])
	assert.Equal(t, color.NRGBA{0, 0, 0, 0xff}, pixels[1])

	short, err := palette.New("pal", "One", colors.BGR15, false, palette.ForeignSource{0x0000})
	require.NoError(t, err)

	pixels, err = DecodeNative(nes, ds, bitaddr.Zero, short)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{}, pixels[0])

	pixels[1] = color.NRGBA{0xff, 0, 0, 0xff}
	require.NoError(t, EncodeNative(nes, ds, bitaddr.Zero, pal, pixels))
	got := make([]byte, 1)
	_, err = ds.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(0x40), got[0])

	direct, err := r.Codec("BGR15 Direct", 2, 1)
	require.NoError(t, err)

	rgb := datasource.NewMemory("vram", "vram", make([]byte, 4))
	want := []color.NRGBA{{0xff, 0, 0, 0xff}, {0, 0, 0xff, 0xff}}
	require.NoError(t, EncodeNative(direct, rgb, bitaddr.Zero, nil, want))

	raw := make([]byte, 4)
	_, err = rgb.ReadAt(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x00, 0x00, 0x7c}, raw)

	pixels, err = DecodeNative(direct, rgb, bitaddr.Zero, nil)
	require.NoError(t, err)
	assert.Equal(t, want, pixels)
}

func TestNativeLargePalette(t *testing.T) {
	nes, err := NewRegistry().Codec("NES 2bpp", 0, 0)
	require.NoError(t, err)

	reds := make(palette.ForeignSource, 32)
	for i := range reds {
		reds[i] = uint32(i)
	}
	pal, err := palette.New("pal", "Reds", colors.BGR15, false, reds)
	require.NoError(t, err)

	far, err := pal.NativeColor(5)
	require.NoError(t, err)
	near, err := pal.NativeColor(3)
	require.NoError(t, err)

	ds := datasource.NewMemory("rom", "rom", make([]byte, 16))
	pixels := make([]color.NRGBA, 64)
	for i := range pixels {
		pixels[i] = far
	}
	require.NoError(t, EncodeNative(nes, ds, bitaddr.Zero, pal, pixels))

	values, err := ReadElement(nes, ds, bitaddr.Zero)
	require.NoError(t, err)
	for _, v := range values {
		assert.Equal(t, uint32(3), v)
	}

	pixels, err = DecodeNative(nes, ds, bitaddr.Zero, pal)
	require.NoError(t, err)
	assert.Equal(t, near, pixels[0])
	assert.Equal(t, 4, Colors(nes))
}
