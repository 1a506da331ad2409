package codec

import (
	"fmt"

	"github.com/bodgit/tilekit/bitstream"
	"github.com/bodgit/tilekit/colors"
)

// base carries the metadata shared by every generic codec.
type base struct {
	f Format
}

func (b *base) Name() string { return b.f.Name }
func (b *base) Width() int { return b.f.Width }
func (b *base) Height() int { return b.f.Height }
func (b *base) ColorType() ColorType { return b.f.ColorType() }
func (b *base) Layout() Layout { return b.f.Layout }
func (b *base) ColorDepth() int { return b.f.depth() }
func (b *base) RowStride() int { return b.f.Width * b.f.depth() }
func (b *base) StorageSize() int { return b.f.Width * b.f.Height * b.f.depth() }
func (b *base) CanResize() bool { return !b.f.FixedSize }
func (b *base) Format() Format { return b.f }
func (b *base) pixels() int { return b.f.Width * b.f.Height }
func (b *base) String() string { return fmt.Sprintf("%s %dx%d", b.f.Name, b.f.Width, b.f.Height) }

func (b *base) WidthResizeIncrement() int {
	return max(b.f.WidthIncrement, 1)
}

func (b *base) HeightResizeIncrement() int {
	return max(b.f.HeightIncrement, 1)
}

// column returns the x position of the n'th pixel stored in a row.
func (b *base) column(n int) int {
	p := b.f.RowPixelPattern
	if len(p) == 0 {
		return n
	}
	return n - n%len(p) + p[n%len(p)]
}

// each calls fn with the index of every pixel in storage order.
func (b *base) each(fn func(i int) error) error {
	w := b.f.Width
	for y := 0; y < b.f.Height; y++ {
		for n := 0; n < w; n++ {
			if err := fn(y*w + b.column(n)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *base) checkCount(values []uint32) error {
	if len(values) != b.pixels() {
		return fmt.Errorf("%w: have %d, %s needs %d", ErrPixelCount, len(values), b.f.Name, b.pixels())
	}
	return nil
}

// checkIndices is checkCount plus every value fitting in ColorDepth bits.
func (b *base) checkIndices(values []uint32) error {
	if err := b.checkCount(values); err != nil {
		return err
	}
	if b.f.ColorDepth >= 32 {
		return nil
	}
	for i, v := range values {
		if v >= 1<<b.f.ColorDepth {
			return fmt.Errorf("%w: pixel %d is %d, %s holds %d bits", ErrValueRange, i, v, b.f.Name, b.f.ColorDepth)
		}
	}
	return nil
}

type planarCodec struct {
	base
}

// deinterlace calls fn for every stored bit with the plane it belongs to and
// the index of its pixel.
func (c *planarCodec) deinterlace(fn func(plane, i int) error) error {
	w, h := c.f.Width, c.f.Height
	visitRow := func(plane, y int) error {
		for n := 0; n < w; n++ {
			if err := fn(plane, y*w+c.column(n)); err != nil {
				return err
			}
		}
		return nil
	}

	first := 0
	for _, img := range c.f.images() {
		if img.RowInterlace {
			for y := 0; y < h; y++ {
				for p := 0; p < img.Planes; p++ {
					if err := visitRow(first+p, y); err != nil {
						return err
					}
				}
			}
		} else {
			for p := 0; p < img.Planes; p++ {
				for y := 0; y < h; y++ {
					if err := visitRow(first+p, y); err != nil {
						return err
					}
				}
			}
		}
		first += img.Planes
	}
	return nil
}

func (c *planarCodec) Decode(bs *bitstream.Stream) ([]uint32, error) {
	planes := make([][]uint8, c.f.ColorDepth)
	for p := range planes {
		planes[p] = make([]uint8, c.pixels())
	}

	if err := c.deinterlace(func(plane, i int) error {
		bit, err := bs.ReadBit()
		planes[plane][i] = bit
		return err
	}); err != nil {
		return nil, err
	}

	merge := c.f.merge()
	out := make([]uint32, c.pixels())
	for p, plane := range planes {
		for i, bit := range plane {
			out[i] |= uint32(bit) << merge[p]
		}
	}
	return out, nil
}

func (c *planarCodec) Encode(bs *bitstream.Stream, values []uint32) error {
	if err := c.checkIndices(values); err != nil {
		return err
	}
	merge := c.f.merge()
	return c.deinterlace(func(plane, i int) error {
		return bs.WriteBit(uint8(values[i] >> merge[plane] & 1))
	})
}

type packedCodec struct {
	base
}

func (c *packedCodec) Decode(bs *bitstream.Stream) ([]uint32, error) {
	out := make([]uint32, c.pixels())
	err := c.each(func(i int) (err error) {
		out[i], err = bs.ReadBits(c.f.ColorDepth)
		return
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *packedCodec) Encode(bs *bitstream.Stream, values []uint32) error {
	if err := c.checkIndices(values); err != nil {
		return err
	}
	return c.each(func(i int) error {
		return bs.WriteBits(values[i], c.f.ColorDepth)
	})
}

type directCodec struct {
	base
}

func (c *directCodec) ColorModel() colors.Model { return c.f.ColorModel }

func (c *directCodec) Decode(bs *bitstream.Stream) ([]uint32, error) {
	size := c.f.ColorModel.Size()
	tmp := make([]byte, size)
	out := make([]uint32, c.pixels())
	err := c.each(func(i int) error {
		for j := range tmp {
			b, err := bs.ReadByte()
			if err != nil {
				return err
			}
			tmp[j] = b
		}
		v, err := c.f.ColorModel.Unpack(tmp)
		out[i] = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *directCodec) Encode(bs *bitstream.Stream, values []uint32) error {
	if err := c.checkCount(values); err != nil {
		return err
	}
	return c.each(func(i int) error {
		b, err := c.f.ColorModel.Pack(values[i])
		if err != nil {
			return err
		}
		for _, x := range b {
			if err := bs.WriteByte(x); err != nil {
				return err
			}
		}
		return nil
	})
}

// New returns a codec for f.
func New(f Format) (Codec, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	switch f.Kind {
	case Planar:
		return &planarCodec{base{f}}, nil
	case Packed:
		return &packedCodec{base{f}}, nil
	default:
		return &directCodec{base{f}}, nil
	}
}
