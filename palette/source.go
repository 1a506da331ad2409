package palette

import (
	"fmt"
	"image/color"

	"github.com/bodgit/tilekit/bitaddr"
	"github.com/bodgit/tilekit/colors"
	"github.com/bodgit/tilekit/datasource"
)

// Source supplies a run of palette entries as foreign colors.
type Source interface {
	Len() int
	Load(model colors.Model) ([]uint32, error)
}

// FileSource is a run of Entries packed colors stored in Source at Address.
type FileSource struct {
	Source  *datasource.DataSource
	Address bitaddr.Address
	Entries int
}

// Len returns the number of entries.
func (fs FileSource) Len() int { return fs.Entries }

// Load reads and unpacks the entries.
func (fs FileSource) Load(model colors.Model) ([]uint32, error) {
	size := model.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", colors.ErrUnsupportedFormat, model)
	}
	if fs.Entries < 0 || fs.Entries > MaxEntries {
		return nil, fmt.Errorf("%w: %d", ErrTooManyEntries, fs.Entries)
	}

	bits := int64(fs.Entries * size * 8)
	buf, err := fs.Source.ReadUnshifted(fs.Address, bits)
	if err != nil {
		return nil, err
	}
	if shift := fs.Address.BitOffset(); shift > 0 {
		for i := 0; i < len(buf)-1; i++ {
			buf[i] = buf[i]<<shift | buf[i+1]>>(8-shift)
		}
	}

	out := make([]uint32, fs.Entries)
	for i := range out {
		if out[i], err = model.Unpack(buf[i*size:]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (fs FileSource) store(model colors.Model, foreign []uint32) error {
	if !fs.Address.IsByteAligned() {
		return fmt.Errorf("palette: cannot store at unaligned address %s", fs.Address)
	}
	size := model.Size()
	buf := make([]byte, 0, len(foreign)*size)
	for _, f := range foreign {
		b, err := model.Pack(f)
		if err != nil {
			return err
		}
		buf = append(buf, b...)
	}
	_, err := fs.Source.WriteAt(buf, fs.Address.ByteOffset())
	return err
}

// ForeignSource is a run of literal packed colors.
type ForeignSource []uint32

// Len returns the number of entries.
func (f ForeignSource) Len() int { return len(f) }

// Load returns a copy of the colors.
func (f ForeignSource) Load(colors.Model) ([]uint32, error) {
	return append([]uint32(nil), f...), nil
}

// NativeSource is a run of literal native colors, packed through the
// palette's model when loaded.
type NativeSource []color.NRGBA

// Len returns the number of entries.
func (n NativeSource) Len() int { return len(n) }

// Load packs the colors.
func (n NativeSource) Load(model colors.Model) ([]uint32, error) {
	out := make([]uint32, len(n))
	for i, c := range n {
		f, err := model.ToForeign(c)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
