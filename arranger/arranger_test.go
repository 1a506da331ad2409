package arranger

import (
	"image"
	"testing"

	"github.com/bodgit/tilekit/bitaddr"
	"github.com/bodgit/tilekit/bitstream"
	"github.com/bodgit/tilekit/codec"
	"github.com/bodgit/tilekit/colors"
	"github.com/bodgit/tilekit/datasource"
	"github.com/bodgit/tilekit/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCodec is an 8x8 indexed codec taking 32 bits per element.
type fakeCodec struct{}

func (fakeCodec) Name() string { return "Fake" }
func (fakeCodec) Width() int { return 8 }
func (fakeCodec) Height() int { return 8 }
func (fakeCodec) ColorType() codec.ColorType { return codec.Indexed }
func (fakeCodec) Layout() codec.Layout { return codec.Tiled }
func (fakeCodec) ColorDepth() int { return 1 }
func (fakeCodec) RowStride() int { return 4 }
func (fakeCodec) StorageSize() int { return 32 }
func (fakeCodec) CanResize() bool { return false }
func (fakeCodec) WidthResizeIncrement() int { return 1 }
func (fakeCodec) HeightResizeIncrement() int { return 1 }
func (fakeCodec) Encode(*bitstream.Stream, []uint32) error { return nil }

func (fakeCodec) Decode(*bitstream.Stream) ([]uint32, error) {
	return make([]uint32, 64), nil
}

func addresses(a Arranger) []int64 {
	var out []int64
	for _, e := range a.Elements() {
		out = append(out, e.Address().Bits())
	}
	return out
}

func TestSequentialScenario(t *testing.T) {
	src := datasource.NewMemory("rom", "Game", make([]byte, 1024))

	s, err := NewSequential(2, 2, src, nil, codec.NewRegistry(), fakeCodec{})
	require.NoError(t, err)
	assert.Equal(t, "Game", s.Name())
	assert.Equal(t, int64(128), s.ArrangerBitSize())

	positions := map[image.Point]image.Point{
		{0, 0}: {0, 0},
		{1, 0}: {8, 0},
		{0, 1}: {0, 8},
		{1, 1}: {8, 8},
	}
	for p, e := range s.Elements() {
		assert.Equal(t, positions[p], e.Bounds().Min)
		assert.Equal(t, 8, e.Width())
	}
	assert.Equal(t, []int64{0, 32, 64, 96}, addresses(s))

	addr, err := s.Move(RowDown)
	require.NoError(t, err)
	assert.Equal(t, int64(64), addr.Bits())
	assert.Equal(t, []int64{64, 96, 128, 160}, addresses(s))

	addr, err = s.Move(RowDown)
	require.NoError(t, err)
	_, err = s.Move(RowDown)
	require.NoError(t, err)
	addr2, err := s.Move(RowUp)
	require.NoError(t, err)
	assert.Equal(t, addr, addr2)
}

func TestSequentialMove(t *testing.T) {
	src := datasource.NewMemory("rom", "Game", make([]byte, 1024))

	s, err := NewSequential(2, 2, src, nil, codec.NewRegistry(), fakeCodec{})
	require.NoError(t, err)

	tables := []struct {
		name string
		move MoveType
		want int64
	}{
		{"end", End, 8192 - 128},
		{"past end", ByteDown, 8192 - 128},
		{"byte up", ByteUp, 8192 - 136},
		{"col left", ColLeft, 8192 - 168},
		{"col right", ColRight, 8192 - 136},
		{"page up", PageUp, 8192 - 200},
		{"home", Home, 0},
		{"before start", RowUp, 0},
		{"page down", PageDown, 64},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			addr, err := s.Move(table.move)
			require.NoError(t, err)
			assert.Equal(t, table.want, addr.Bits())
			assert.Equal(t, table.want, s.FileAddress().Bits())
			assert.Equal(t, table.want, addresses(s)[0])
		})
	}

	_, err = s.Move(Absolute)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	addr, err := s.MoveTo(bitaddr.FromBits(9000))
	require.NoError(t, err)
	assert.Equal(t, int64(8192-128), addr.Bits())

	addr, err = s.MoveTo(bitaddr.FromBits(-24))
	require.NoError(t, err)
	assert.Equal(t, int64(0), addr.Bits())

	addr, err = s.MoveTo(bitaddr.FromBits(1027))
	require.NoError(t, err)
	assert.Equal(t, []int64{1027, 1059, 1091, 1123}, addresses(s))
	assert.Equal(t, 3, addr.BitOffset())
}

func TestSequentialTileLayout(t *testing.T) {
	src := datasource.NewMemory("rom", "Game", make([]byte, 1024))

	s, err := NewSequential(4, 2, src, nil, codec.NewRegistry(), fakeCodec{})
	require.NoError(t, err)

	require.NoError(t, s.ChangeElementLayout(Tiled2x2Row))
	assert.Equal(t, []int64{0, 32, 128, 160, 64, 96, 192, 224}, addresses(s))

	addr, err := s.Move(RowDown)
	require.NoError(t, err)
	assert.Equal(t, int64(256), addr.Bits())

	require.NoError(t, s.ChangeElementLayout(Tiled2x2Column))
	assert.Equal(t, []int64{256, 320, 384, 448, 288, 352, 416, 480}, addresses(s))

	err = s.Resize(3, 2)
	assert.ErrorIs(t, err, ErrInvalidOperation)
	w, h := s.GridSize()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)

	require.NoError(t, s.ChangeElementLayout(Standard))
	require.NoError(t, s.Resize(3, 1))
	assert.Equal(t, []int64{256, 288, 320}, addresses(s))

	_, err = TileLayoutByName("Tiled 1x2")
	assert.NoError(t, err)
	_, err = TileLayoutByName("Diagonal")
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Error(t, TileLayout{Name: "Broken", Width: 2, Height: 1, Pattern: []image.Point{{0, 0}, {0, 0}}}.Validate())
}

func TestSequentialSingle(t *testing.T) {
	r := codec.NewRegistry()
	c, err := r.Codec("Linear 8bpp", 0, 0)
	require.NoError(t, err)

	src := datasource.NewMemory("rom", "Game", make([]byte, 32768))
	s, err := NewSequential(4, 4, src, nil, r, c)
	require.NoError(t, err)

	w, h := s.GridSize()
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
	assert.Equal(t, codec.Single, s.Layout())

	for _, table := range []struct {
		move MoveType
		want int64
	}{
		{RowDown, 1024},
		{ColRight, 1032},
		{PageDown, 1032 + 65536},
		{End, 131072},
	} {
		addr, err := s.Move(table.move)
		require.NoError(t, err)
		assert.Equal(t, table.want, addr.Bits(), table.move.String())
	}

	require.NoError(t, s.Resize(64, 32))
	pw, ph := s.ElementSize()
	assert.Equal(t, 64, pw)
	assert.Equal(t, 32, ph)
	assert.Equal(t, int64(64*32*8), s.ArrangerBitSize())
	assert.Equal(t, int64(131072), s.FileAddress().Bits())

	assert.ErrorIs(t, s.ChangeElementLayout(Tiled2x2Row), ErrInvalidOperation)

	_, err = s.Clone(0, 0, 1, 1)
	assert.NoError(t, err)

	tiled, err := r.Codec("NES 1bpp", 0, 0)
	require.NoError(t, err)
	require.NoError(t, s.ChangeCodec(tiled))
	assert.NotSame(t, tiled, s.Codec())
	assert.Equal(t, tiled.Name(), s.Codec().Name())
	w, h = s.GridSize()
	assert.Equal(t, 8, w)
	assert.Equal(t, 4, h)
	assert.Equal(t, codec.Tiled, s.Layout())

	require.NoError(t, s.ChangeCodecAndResize(tiled, 2, 2))
	assert.NotSame(t, tiled, s.Codec())
	w, h = s.GridSize()
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)
}

func TestSequentialRejectsElements(t *testing.T) {
	src := datasource.NewMemory("rom", "Game", make([]byte, 1024))
	s, err := NewSequential(2, 2, src, nil, codec.NewRegistry(), fakeCodec{})
	require.NoError(t, err)

	e, err := s.ElementAt(0, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, s.SetElement(e, 1, 1), ErrInvalidOperation)
	assert.ErrorIs(t, s.ResetElement(1, 1), ErrInvalidOperation)
}

func TestSequentialPalette(t *testing.T) {
	src := datasource.NewMemory("rom", "Game", make([]byte, 1024))
	pal, err := palette.New("pal", "Grey", colors.BGR15, false, palette.ForeignSource{0x0000, 0x7fff})
	require.NoError(t, err)

	s, err := NewSequential(2, 2, src, pal, codec.NewRegistry(), fakeCodec{})
	require.NoError(t, err)
	for _, e := range s.Elements() {
		assert.Same(t, pal, e.Palette())
	}

	assert.True(t, s.UnlinkResource("pal"))
	assert.Nil(t, s.DefaultPalette())
	for _, e := range s.Elements() {
		assert.Nil(t, e.Palette())
	}
	assert.False(t, s.UnlinkResource("pal"))

	s.ChangePalette(pal)
	for _, e := range s.Elements() {
		assert.Same(t, pal, e.Palette())
	}

	assert.True(t, s.UnlinkResource("rom"))
	_, err = s.Move(RowDown)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func newTiles(t *testing.T, src *datasource.DataSource) (*Scattered, codec.Codec) {
	t.Helper()

	c, err := codec.NewRegistry().Codec("NES 1bpp", 0, 0)
	require.NoError(t, err)

	s, err := NewScattered("Tiles", codec.Indexed, codec.Tiled, 4, 4, 8, 8)
	require.NoError(t, err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			e := NewElement(src, bitaddr.FromByte(int64(y*4+x)*8), c, nil)
			require.NoError(t, s.SetElement(e, x, y))
		}
	}
	return s, c
}

func TestScatteredResize(t *testing.T) {
	src := datasource.NewMemory("rom", "Game", make([]byte, 128))
	s, _ := newTiles(t, src)

	before, err := s.CopyElements(0, 0, 4, 2)
	require.NoError(t, err)

	require.NoError(t, s.Resize(6, 2))
	require.NoError(t, s.Resize(4, 4))

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			e, err := s.ElementAt(x, y)
			require.NoError(t, err)
			if y < 2 {
				assert.True(t, e.Equal(before.Elements[y][x]), "element (%d,%d)", x, y)
			} else {
				assert.Nil(t, e, "element (%d,%d)", x, y)
			}
		}
	}

	assert.ErrorIs(t, s.Resize(0, 4), ErrOutOfRange)
}

func TestScatteredSetElement(t *testing.T) {
	src := datasource.NewMemory("rom", "Game", make([]byte, 128))
	s, c := newTiles(t, src)

	r := codec.NewRegistry()
	direct, err := r.Codec("BGR15 Direct", 8, 8)
	require.NoError(t, err)
	big, err := r.Codec("Linear 8bpp", 16, 16)
	require.NoError(t, err)

	tables := []struct {
		name string
		e    *Element
		x, y int
		err  error
	}{
		{"direct", NewElement(src, bitaddr.Zero, direct, nil), 0, 0, ErrTypeMismatch},
		{"size", NewElement(src, bitaddr.Zero, big, nil), 0, 0, ErrTypeMismatch},
		{"outside", NewElement(src, bitaddr.Zero, c, nil), 4, 0, ErrOutOfRange},
		{"negative", NewElement(src, bitaddr.Zero, c, nil), 0, -1, ErrOutOfRange},
		{"codec", NewElement(src, bitaddr.Zero, nil, nil), 0, 0, ErrInvalidOperation},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			before, err := s.ElementAt(0, 0)
			require.NoError(t, err)
			assert.ErrorIs(t, s.SetElement(table.e, table.x, table.y), table.err)
			after, err := s.ElementAt(0, 0)
			require.NoError(t, err)
			assert.Same(t, before, after)
		})
	}

	e := NewElement(src, bitaddr.FromByte(3), c, nil).WithPosition(100, 100).WithMirror(MirrorBoth)
	require.NoError(t, s.SetElement(e, 2, 3))
	got, err := s.ElementAt(2, 3)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(16, 24), got.Bounds().Min)
	assert.Equal(t, MirrorBoth, got.Mirror())
	assert.Equal(t, image.Pt(100, 100), e.Bounds().Min, "original element is unchanged")

	require.NoError(t, s.ResetElement(2, 3))
	got, err = s.ElementAt(2, 3)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = NewScattered("Single", codec.Indexed, codec.Single, 2, 1, 64, 64)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestElementsByPixel(t *testing.T) {
	src := datasource.NewMemory("rom", "Game", make([]byte, 128))
	s, _ := newTiles(t, src)

	var got []image.Point
	for p := range s.ElementsByPixel(image.Rect(4, 4, 12, 9)) {
		got = append(got, p)
	}
	assert.Equal(t, []image.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, got)

	got = got[:0]
	for p := range s.ElementsByPixel(image.Rect(24, 24, 100, 100)) {
		got = append(got, p)
	}
	assert.Equal(t, []image.Point{{3, 3}}, got)

	n := 0
	for range s.ElementsByPixel(image.Rect(40, 40, 80, 80)) {
		n++
	}
	assert.Equal(t, 0, n)

	n = 0
	for range s.Elements() {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)

	e, err := s.ElementAtPixel(31, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(7*8), e.Address().ByteOffset())

	_, err = s.ElementAtPixel(32, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestClone(t *testing.T) {
	src := datasource.NewMemory("rom", "Game", make([]byte, 128))
	s, _ := newTiles(t, src)

	c, err := s.Clone(1, 2, 2, 2)
	require.NoError(t, err)
	w, h := c.GridSize()
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)

	e, err := c.ElementAt(1, 1)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 8), e.Bounds().Min)
	assert.Equal(t, int64((3*4+2)*8), e.Address().ByteOffset())

	require.NoError(t, c.ResetElement(0, 0))
	orig, err := s.ElementAt(1, 2)
	require.NoError(t, err)
	assert.NotNil(t, orig)

	_, err = s.Clone(3, 3, 2, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestCopy(t *testing.T) {
	src := datasource.NewMemory("rom", "Game", make([]byte, 128))
	s, _ := newTiles(t, src)

	dst, err := NewScattered("Dest", codec.Indexed, codec.Tiled, 3, 3, 8, 8)
	require.NoError(t, err)
	big, err := NewScattered("Big", codec.Indexed, codec.Tiled, 3, 3, 16, 16)
	require.NoError(t, err)
	direct, err := NewScattered("Direct", codec.Direct, codec.Tiled, 3, 3, 8, 8)
	require.NoError(t, err)
	single, err := NewScattered("Single", codec.Indexed, codec.Single, 1, 1, 8, 8)
	require.NoError(t, err)
	seq, err := NewSequential(3, 3, datasource.NewMemory("vram", "VRAM", make([]byte, 256)), nil, codec.NewRegistry(), fakeCodec{})
	require.NoError(t, err)

	tables := []struct {
		name     string
		dst      Arranger
		from, to image.Point
		w, h     int
		err      error
	}{
		{"source extent", dst, image.Pt(3, 3), image.Pt(0, 0), 2, 2, ErrOutOfRange},
		{"destination extent", dst, image.Pt(0, 0), image.Pt(2, 2), 2, 2, ErrOutOfRange},
		{"element size", big, image.Pt(0, 0), image.Pt(0, 0), 2, 2, ErrTypeMismatch},
		{"single", single, image.Pt(0, 0), image.Pt(0, 0), 2, 2, ErrOutOfRange},
		{"color type", direct, image.Pt(0, 0), image.Pt(0, 0), 2, 2, ErrTypeMismatch},
		{"sequential", seq, image.Pt(0, 0), image.Pt(0, 0), 2, 2, ErrInvalidOperation},
		{"empty", dst, image.Pt(0, 0), image.Pt(0, 0), 0, 2, ErrOutOfRange},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			assert.ErrorIs(t, CanCopy(s, table.dst, table.from, table.to, table.w, table.h), table.err)
			assert.ErrorIs(t, Copy(s, table.dst, table.from, table.to, table.w, table.h), table.err)
		})
	}

	for range dst.Elements() {
		t.Fatal("failed copy changed the destination")
	}
	for range big.Elements() {
		t.Fatal("failed copy changed the destination")
	}
	assert.Equal(t, []int64{0, 32, 64, 96, 128, 160, 192, 224, 256}, addresses(seq))

	require.NoError(t, Copy(s, dst, image.Pt(2, 1), image.Pt(1, 1), 2, 2))
	e, err := dst.ElementAt(2, 2)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(16, 16), e.Bounds().Min)
	assert.Equal(t, int64((2*4+3)*8), e.Address().ByteOffset())

	require.NoError(t, s.ResetElement(2, 1))
	e, err = dst.ElementAt(1, 1)
	require.NoError(t, err)
	assert.NotNil(t, e, "copied elements are detached from the source")

	require.NoError(t, Copy(s, single, image.Pt(0, 0), image.Pt(0, 0), 1, 1))
	require.NoError(t, Copy(s, dst, image.Pt(2, 1), image.Pt(1, 1), 1, 1))
	e, err = dst.ElementAt(1, 1)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestParse(t *testing.T) {
	m, err := ParseMirror("Vertical")
	require.NoError(t, err)
	assert.Equal(t, MirrorVertical, m)

	r, err := ParseRotation("")
	require.NoError(t, err)
	assert.Equal(t, RotationNone, r)

	mt, err := ParseMoveType(PageUp.String())
	require.NoError(t, err)
	assert.Equal(t, PageUp, mt)

	_, err = ParseRotation("sideways")
	assert.ErrorIs(t, err, ErrInvalidOperation)
}
