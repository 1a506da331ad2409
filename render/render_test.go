package render

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/bodgit/tilekit/arranger"
	"github.com/bodgit/tilekit/bitaddr"
	"github.com/bodgit/tilekit/codec"
	"github.com/bodgit/tilekit/colors"
	"github.com/bodgit/tilekit/datasource"
	"github.com/bodgit/tilekit/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	black = color.NRGBA{0, 0, 0, 0xff}
	red   = color.NRGBA{0xff, 0, 0, 0xff}
)

func redBlack(t *testing.T) *palette.Palette {
	t.Helper()
	p, err := palette.New("pal", "Red", colors.BGR15, false, palette.ForeignSource{0x0000, 0x001f})
	require.NoError(t, err)
	return p
}

// tiles returns a 3x1 arranger of NES 1bpp tiles over a source whose first
// tile has only its top left pixel set. The third cell is empty.
func tiles(t *testing.T, mirror arranger.Mirror, rotation arranger.Rotation) (*arranger.Scattered, *datasource.DataSource) {
	t.Helper()

	b := make([]byte, 16)
	b[0] = 0x80
	src := datasource.NewMemory("rom", "rom", b)

	c, err := codec.NewRegistry().Codec("NES 1bpp", 0, 0)
	require.NoError(t, err)

	a, err := arranger.NewScattered("Tiles", codec.Indexed, codec.Tiled, 3, 1, 8, 8)
	require.NoError(t, err)
	a.SetDefaultPalette(redBlack(t))

	require.NoError(t, a.SetElement(arranger.NewElement(src, bitaddr.Zero, c, nil), 0, 0))
	e := arranger.NewElement(src, bitaddr.Zero, c, nil).WithMirror(mirror).WithRotation(rotation)
	require.NoError(t, a.SetElement(e, 1, 0))

	return a, src
}

func TestImage(t *testing.T) {
	tables := map[string]struct {
		mirror   arranger.Mirror
		rotation arranger.Rotation
		want     image.Point
	}{
		"plain":      {arranger.MirrorNone, arranger.RotationNone, image.Pt(8, 0)},
		"horizontal": {arranger.MirrorHorizontal, arranger.RotationNone, image.Pt(15, 0)},
		"vertical":   {arranger.MirrorVertical, arranger.RotationNone, image.Pt(8, 7)},
		"both":       {arranger.MirrorBoth, arranger.RotationNone, image.Pt(15, 7)},
		"left":       {arranger.MirrorNone, arranger.RotationLeft, image.Pt(8, 7)},
		"right":      {arranger.MirrorNone, arranger.RotationRight, image.Pt(15, 0)},
		"turn":       {arranger.MirrorNone, arranger.RotationTurn, image.Pt(15, 7)},
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			a, _ := tiles(t, table.mirror, table.rotation)

			m, err := Image(context.Background(), a, a.Bounds())
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 24, 8), m.Bounds())

			assert.Equal(t, red, m.NRGBAAt(0, 0))
			assert.Equal(t, black, m.NRGBAAt(1, 0))
			for y := 0; y < 8; y++ {
				for x := 8; x < 16; x++ {
					want := black
					if image.Pt(x, y) == table.want {
						want = red
					}
					require.Equal(t, want, m.NRGBAAt(x, y), "pixel (%d,%d)", x, y)
				}
			}
			assert.Equal(t, color.NRGBA{}, m.NRGBAAt(20, 4))
		})
	}
}

func TestImageRegion(t *testing.T) {
	a, _ := tiles(t, arranger.MirrorNone, arranger.RotationNone)

	m, err := Image(context.Background(), a, image.Rect(4, 0, 12, 4))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(4, 0, 12, 4), m.Bounds())
	assert.Equal(t, black, m.NRGBAAt(4, 0))
	assert.Equal(t, red, m.NRGBAAt(8, 0))
}

func TestImageErrors(t *testing.T) {
	a, _ := tiles(t, arranger.MirrorNone, arranger.RotationNone)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Image(ctx, a, a.Bounds())
	assert.ErrorIs(t, err, context.Canceled)

	a.SetDefaultPalette(nil)
	_, err = Image(context.Background(), a, a.Bounds())
	assert.ErrorIs(t, err, codec.ErrNoPalette)

	_, err = Paletted(context.Background(), a, a.Bounds())
	assert.ErrorIs(t, err, codec.ErrNoPalette)

	direct, err := arranger.NewScattered("Direct", codec.Direct, codec.Tiled, 1, 1, 8, 8)
	require.NoError(t, err)
	_, err = Paletted(context.Background(), direct, direct.Bounds())
	assert.ErrorIs(t, err, ErrNotIndexed)
}

func TestPaletted(t *testing.T) {
	a, _ := tiles(t, arranger.MirrorBoth, arranger.RotationNone)

	m, err := Paletted(context.Background(), a, a.Bounds())
	require.NoError(t, err)
	assert.Len(t, m.Palette, 2)
	assert.Equal(t, uint8(1), m.ColorIndexAt(0, 0))
	assert.Equal(t, uint8(0), m.ColorIndexAt(8, 0))
	assert.Equal(t, uint8(1), m.ColorIndexAt(15, 7))
}

func TestImport(t *testing.T) {
	a, src := tiles(t, arranger.MirrorNone, arranger.RotationNone)
	e, err := a.ElementAt(1, 0)
	require.NoError(t, err)
	require.NoError(t, a.SetElement(e.WithAddress(bitaddr.FromByte(8)).WithMirror(arranger.MirrorHorizontal), 1, 0))

	m := image.NewNRGBA(image.Rect(100, 100, 124, 108))
	for y := 100; y < 108; y++ {
		for x := 100; x < 124; x++ {
			m.SetNRGBA(x, y, black)
		}
	}
	m.SetNRGBA(103, 103, red)
	m.SetNRGBA(108, 100, red)

	require.NoError(t, Import(a, m))

	got := make([]byte, 16)
	_, err = src.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0x10, 0, 0, 0, 0, 0x01, 0, 0, 0, 0, 0, 0, 0}, got)

	out, err := Image(context.Background(), a, a.Bounds())
	require.NoError(t, err)
	assert.Equal(t, red, out.NRGBAAt(3, 3))
	assert.Equal(t, red, out.NRGBAAt(8, 0))

	assert.ErrorIs(t, Import(a, image.NewNRGBA(image.Rect(0, 0, 8, 8))), ErrSize)
}

func TestColorLimit(t *testing.T) {
	a, _ := tiles(t, arranger.MirrorNone, arranger.RotationNone)
	assert.Equal(t, 2, colorLimit(a))

	wide, err := palette.New("pal", "Wide", colors.BGR15, false, palette.ForeignSource{0x0000, 0x001f, 0x03e0, 0x7c00})
	require.NoError(t, err)
	a.SetDefaultPalette(wide)
	assert.Equal(t, 2, colorLimit(a))

	a.SetDefaultPalette(nil)
	assert.Equal(t, 0, colorLimit(a))
}

func TestReduce(t *testing.T) {
	m := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	m.SetNRGBA(0, 0, red)
	m.SetNRGBA(1, 0, black)
	m.SetNRGBA(2, 0, color.NRGBA{0, 0, 0xff, 0xff})
	m.SetNRGBA(3, 0, color.NRGBA{0, 0xff, 0, 0xff})

	pm := Reduce(m, 2)
	assert.LessOrEqual(t, len(pm.Palette), 2)
	assert.Equal(t, m.Bounds(), pm.Bounds())

	p := image.NewPaletted(m.Bounds(), color.Palette{black, red})
	assert.Same(t, p, Reduce(p, 2))
}

func TestScale(t *testing.T) {
	m := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	m.SetNRGBA(1, 1, red)

	s, err := Scale(m, 3)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 6), s.Bounds())
	assert.Equal(t, red, s.NRGBAAt(5, 5))
	assert.Equal(t, red, s.NRGBAAt(3, 3))
	assert.Equal(t, color.NRGBA{}, s.NRGBAAt(2, 2))

	_, err = Scale(m, 0)
	assert.Error(t, err)
}

func TestSwatch(t *testing.T) {
	p := redBlack(t)

	s, err := Swatch(p, 4)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 4), s.Bounds())
	assert.Equal(t, black, s.NRGBAAt(1, 1))
	assert.Equal(t, red, s.NRGBAAt(5, 1))
	assert.Equal(t, color.NRGBA{}, s.NRGBAAt(9, 1))

	s, err = Swatch(p, 32)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 512, 32), s.Bounds())
	assert.Equal(t, red, s.NRGBAAt(62, 30))
}
