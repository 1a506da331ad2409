package codec

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/bodgit/tilekit/bitaddr"
	"github.com/bodgit/tilekit/bitstream"
	"github.com/bodgit/tilekit/datasource"
	"github.com/bodgit/tilekit/palette"
)

func stream(buf []byte, addr bitaddr.Address, bits int) (*bitstream.Stream, error) {
	return bitstream.NewReader(buf, 8-addr.BitOffset(), int64(bits))
}

// ReadElement decodes the element stored in src at addr. An element which
// extends past the end of src decodes as all zeroes.
func ReadElement(c Codec, src *datasource.DataSource, addr bitaddr.Address) ([]uint32, error) {
	buf, err := src.ReadUnshifted(addr, int64(c.StorageSize()))
	if err != nil {
		if errors.Is(err, datasource.ErrPastEnd) {
			tracer().Debugf("%s element at %s in %q is past the end, blanking", c.Name(), addr, src.Key())
			return make([]uint32, c.Width()*c.Height()), nil
		}
		return nil, err
	}
	bs, err := stream(buf, addr, c.StorageSize())
	if err != nil {
		return nil, err
	}
	return c.Decode(bs)
}

// WriteElement encodes values into src at addr. Bits sharing a byte with the
// element but outside it are preserved.
func WriteElement(c Codec, src *datasource.DataSource, addr bitaddr.Address, values []uint32) error {
	buf, err := src.ReadUnshifted(addr, int64(c.StorageSize()))
	if err != nil {
		return err
	}
	bs, err := stream(buf, addr, c.StorageSize())
	if err != nil {
		return err
	}
	if err := c.Encode(bs, values); err != nil {
		return err
	}
	_, err = src.WriteAt(buf, addr.ByteOffset())
	return err
}

// DecodeNative decodes the element stored in src at addr to native colors.
// Indexed codecs look each value up in pal; indices beyond the end of pal
// decode as transparent. Direct codecs convert through their color model and
// ignore pal.
func DecodeNative(c Codec, src *datasource.DataSource, addr bitaddr.Address, pal *palette.Palette) ([]color.NRGBA, error) {
	if c.ColorType() == Indexed && pal == nil {
		return nil, ErrNoPalette
	}

	values, err := ReadElement(c, src, addr)
	if err != nil {
		return nil, err
	}

	out := make([]color.NRGBA, len(values))
	switch c.ColorType() {
	case Indexed:
		for i, v := range values {
			if int(v) < pal.Len() {
				out[i], _ = pal.NativeColor(int(v))
			}
		}
	case Direct:
		dc, ok := c.(DirectCodec)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no color model", ErrUnsupportedFormat, c.Name())
		}
		for i, v := range values {
			if out[i], err = dc.ColorModel().ToNative(v); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Colors returns the number of distinct values an element of c can hold.
func Colors(c Codec) int {
	if d := c.ColorDepth(); d < 31 {
		return 1 << d
	}
	return math.MaxInt32
}

// EncodeNative is the inverse of DecodeNative. Indexed codecs map each color
// to the closest of the palette entries the codec can address.
func EncodeNative(c Codec, src *datasource.DataSource, addr bitaddr.Address, pal *palette.Palette, pixels []color.NRGBA) error {
	values := make([]uint32, len(pixels))
	switch c.ColorType() {
	case Indexed:
		if pal == nil {
			return ErrNoPalette
		}
		n := min(pal.Len(), Colors(c))
		for i, p := range pixels {
			values[i] = uint32(pal.IndexIn(p, n))
		}
	case Direct:
		dc, ok := c.(DirectCodec)
		if !ok {
			return fmt.Errorf("%w: %s has no color model", ErrUnsupportedFormat, c.Name())
		}
		for i, p := range pixels {
			v, err := dc.ColorModel().ToForeign(p)
			if err != nil {
				return err
			}
			values[i] = v
		}
	}
	return WriteElement(c, src, addr, values)
}
