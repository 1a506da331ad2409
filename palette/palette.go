/*
Package palette implements indexed color palettes.

A Palette keeps two tables of the same length: the foreign colors, packed as
the console stores them, and the native colors derived from them through the
palette's color model. The native table is never changed directly; every
update goes through the foreign table and the affected native entry is
re-derived.
*/
package palette

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/bodgit/tilekit/bitaddr"
	"github.com/bodgit/tilekit/colors"
	"github.com/bodgit/tilekit/datasource"
	"github.com/npillmayer/schuko/tracing"
)

// MaxEntries is the largest number of colors a palette can hold.
const MaxEntries = 256

var (
	// ErrOutOfRange is returned for an index beyond the palette.
	ErrOutOfRange = errors.New("palette: index out of range")
	// ErrTooManyEntries is returned when the sources hold more than
	// MaxEntries colors.
	ErrTooManyEntries = errors.New("palette: too many entries")
)

// tracer writes to trace with key 'tilekit.palette'
func tracer() tracing.Trace {
	return tracing.Select("tilekit.palette")
}

// Palette is a loaded palette.
type Palette struct {
	key                  string
	name                 string
	model                colors.Model
	zeroIndexTransparent bool
	sources              []Source

	foreign []uint32
	native  []color.NRGBA
}

// New returns a palette whose entries are the concatenation of sources.
func New(key, name string, model colors.Model, zeroIndexTransparent bool, sources ...Source) (*Palette, error) {
	p := &Palette{
		key:                  key,
		name:                 name,
		model:                model,
		zeroIndexTransparent: zeroIndexTransparent,
		sources:              sources,
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// FromSource returns a palette of entries colors read from ds at addr.
func FromSource(key, name string, ds *datasource.DataSource, addr bitaddr.Address, entries int, model colors.Model, zeroIndexTransparent bool) (*Palette, error) {
	return New(key, name, model, zeroIndexTransparent, FileSource{
		Source:  ds,
		Address: addr,
		Entries: entries,
	})
}

// Reload re-reads every source and derives both tables again. On error the
// existing tables are kept.
func (p *Palette) Reload() error {
	var foreign []uint32
	for _, s := range p.sources {
		f, err := s.Load(p.model)
		if err != nil {
			return fmt.Errorf("palette: load %s: %w", p.key, err)
		}
		foreign = append(foreign, f...)
	}
	if len(foreign) > MaxEntries {
		return fmt.Errorf("%w: %d", ErrTooManyEntries, len(foreign))
	}

	native := make([]color.NRGBA, len(foreign))
	for i, f := range foreign {
		c, err := p.model.ToNative(f)
		if err != nil {
			return err
		}
		native[i] = c
	}

	p.foreign, p.native = foreign, native
	p.fixTransparency(0)

	tracer().Debugf("loaded palette %q with %d %s entries", p.key, len(foreign), p.model)

	return nil
}

func (p *Palette) fixTransparency(i int) {
	if i == 0 && p.zeroIndexTransparent && len(p.native) > 0 {
		p.native[0].A = 0
	}
}

// Key returns the stable identifier of the palette.
func (p *Palette) Key() string { return p.key }

// Name returns the display name of the palette.
func (p *Palette) Name() string { return p.name }

// Model returns the color model of the foreign table.
func (p *Palette) Model() colors.Model { return p.model }

// ZeroIndexTransparent reports whether index 0 is always transparent.
func (p *Palette) ZeroIndexTransparent() bool { return p.zeroIndexTransparent }

// Sources returns the color sources the palette was built from.
func (p *Palette) Sources() []Source { return append([]Source(nil), p.sources...) }

// Len returns the number of entries.
func (p *Palette) Len() int { return len(p.foreign) }

func (p *Palette) check(i int) error {
	if i < 0 || i >= len(p.foreign) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(p.foreign))
	}
	return nil
}

// ForeignColor returns entry i as a packed foreign color.
func (p *Palette) ForeignColor(i int) (uint32, error) {
	if err := p.check(i); err != nil {
		return 0, err
	}
	return p.foreign[i], nil
}

// NativeColor returns entry i as a native color.
func (p *Palette) NativeColor(i int) (color.NRGBA, error) {
	if err := p.check(i); err != nil {
		return color.NRGBA{}, err
	}
	return p.native[i], nil
}

// SetForeignColor replaces entry i and re-derives its native color.
func (p *Palette) SetForeignColor(i int, foreign uint32) error {
	if err := p.check(i); err != nil {
		return err
	}
	c, err := p.model.ToNative(foreign)
	if err != nil {
		return err
	}
	p.foreign[i], p.native[i] = foreign, c
	p.fixTransparency(i)
	return nil
}

// SetNativeColor replaces entry i with the closest color the model can
// represent.
func (p *Palette) SetNativeColor(i int, c color.NRGBA) error {
	f, err := p.model.ToForeign(c)
	if err != nil {
		return err
	}
	return p.SetForeignColor(i, f)
}

// Index returns the index of the entry matching c exactly or, failing that,
// the closest entry. Fully transparent colors map to index 0 when it is
// transparent.
func (p *Palette) Index(c color.Color) int {
	return p.IndexIn(c, len(p.native))
}

// IndexIn is like Index but only considers the first n entries.
func (p *Palette) IndexIn(c color.Color, n int) int {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	if p.zeroIndexTransparent && nc.A == 0 {
		return 0
	}
	n = max(0, min(n, len(p.native)))
	for i, v := range p.native[:n] {
		if v == nc {
			return i
		}
	}
	if n == 0 {
		return 0
	}
	return p.ColorPalette()[:n].Index(nc)
}

// ColorPalette returns the native table as a color.Palette.
func (p *Palette) ColorPalette() color.Palette {
	cp := make(color.Palette, len(p.native))
	for i, c := range p.native {
		cp[i] = c
	}
	return cp
}

// Save writes the foreign table back to the file backed sources.
func (p *Palette) Save() error {
	var i int
	for _, s := range p.sources {
		n := s.Len()
		if fs, ok := s.(FileSource); ok {
			if err := fs.store(p.model, p.foreign[i:i+n]); err != nil {
				return fmt.Errorf("palette: save %s: %w", p.key, err)
			}
		}
		i += n
	}
	return nil
}
