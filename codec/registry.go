package codec

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/bodgit/tilekit/colors"
	"gopkg.in/yaml.v3"
)

func tile(name string, kind Kind, depth int, images ...PlaneImage) Format {
	return Format{
		Name:       name,
		Kind:       kind,
		Layout:     Tiled,
		Width:      8,
		Height:     8,
		FixedSize:  true,
		ColorDepth: depth,
		Images:     images,
	}
}

func interlaced(planes int) PlaneImage { return PlaneImage{Planes: planes, RowInterlace: true} }

// Builtin returns the formats every Registry starts with.
func Builtin() []Format {
	gba4 := tile("GBA 4bpp", Packed, 4)
	gba4.RowPixelPattern = []int{1, 0}

	return []Format{
		tile("NES 1bpp", Planar, 1),
		tile("NES 2bpp", Planar, 2, PlaneImage{Planes: 2}),
		tile("GB 2bpp", Planar, 2, interlaced(2)),
		tile("SNES 3bpp", Planar, 3, interlaced(2), PlaneImage{Planes: 1}),
		tile("SNES 4bpp", Planar, 4, interlaced(2), interlaced(2)),
		tile("SNES 8bpp", Planar, 8, interlaced(2), interlaced(2), interlaced(2), interlaced(2)),
		tile("Genesis 4bpp", Packed, 4),
		gba4,
		tile("GBA 8bpp", Packed, 8),
		{
			Name:       "Linear 8bpp",
			Kind:       Packed,
			Layout:     Single,
			Width:      128,
			Height:     128,
			ColorDepth: 8,
		},
		{
			Name:       "BGR15 Direct",
			Kind:       DirectColor,
			Layout:     Single,
			Width:      64,
			Height:     64,
			ColorModel: colors.BGR15,
		},
		{
			Name:       "RGB24 Direct",
			Kind:       DirectColor,
			Layout:     Single,
			Width:      64,
			Height:     64,
			ColorModel: colors.RGB24,
		},
	}
}

// Registry is a Factory holding a set of named formats. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]Format
}

// NewRegistry returns a Registry holding the builtin formats.
func NewRegistry() *Registry {
	r := &Registry{
		formats: make(map[string]Format),
	}
	for _, f := range Builtin() {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds f, replacing any format with the same name.
func (r *Registry) Register(f Format) error {
	if err := f.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formats[f.Name] = f
	return nil
}

// Format returns the named format.
func (r *Registry) Format(name string) (Format, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[name]
	if !ok {
		return Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	return f, nil
}

// Names returns the sorted names of every format.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Codec implements Factory.
func (r *Registry) Codec(name string, width, height int) (Codec, error) {
	f, err := r.Format(name)
	if err != nil {
		return nil, err
	}
	if f, err = f.sized(width, height); err != nil {
		return nil, err
	}
	return New(f)
}

// Clone implements Factory. Codecs not created by a Registry are returned as
// they are.
func (r *Registry) Clone(c Codec) Codec {
	g, ok := c.(interface{ Format() Format })
	if !ok {
		return c
	}
	f := g.Format()
	f.Images = append([]PlaneImage(nil), f.Images...)
	f.RowPixelPattern = append([]int(nil), f.RowPixelPattern...)
	f.MergePriority = append([]int(nil), f.MergePriority...)
	clone, err := New(f)
	if err != nil {
		return c
	}
	return clone
}

type yamlPlaneImage struct {
	Planes       int  `yaml:"planes"`
	RowInterlace bool `yaml:"rowInterlace"`
}

type yamlFormat struct {
	Name            string           `yaml:"name"`
	Kind            string           `yaml:"kind"`
	Layout          string           `yaml:"layout"`
	Width           int              `yaml:"width"`
	Height          int              `yaml:"height"`
	FixedSize       bool             `yaml:"fixedSize"`
	WidthIncrement  int              `yaml:"widthIncrement"`
	HeightIncrement int              `yaml:"heightIncrement"`
	ColorDepth      int              `yaml:"depth"`
	Images          []yamlPlaneImage `yaml:"images"`
	RowPixelPattern []int            `yaml:"rowPixelPattern"`
	MergePriority   []int            `yaml:"mergePriority"`
	ColorModel      string           `yaml:"colorModel"`
}

type yamlFormats struct {
	Formats []yamlFormat `yaml:"formats"`
}

func (y yamlFormat) format() (f Format, err error) {
	f = Format{
		Name:            y.Name,
		Width:           y.Width,
		Height:          y.Height,
		FixedSize:       y.FixedSize,
		WidthIncrement:  y.WidthIncrement,
		HeightIncrement: y.HeightIncrement,
		ColorDepth:      y.ColorDepth,
		RowPixelPattern: y.RowPixelPattern,
		MergePriority:   y.MergePriority,
	}
	if f.Kind, err = ParseKind(y.Kind); err != nil {
		return
	}
	if y.Layout != "" {
		if f.Layout, err = ParseLayout(y.Layout); err != nil {
			return
		}
	}
	if y.ColorModel != "" {
		if f.ColorModel, err = colors.ParseModel(y.ColorModel); err != nil {
			return
		}
	}
	for _, img := range y.Images {
		f.Images = append(f.Images, PlaneImage{Planes: img.Planes, RowInterlace: img.RowInterlace})
	}
	return f, f.Validate()
}

// LoadFormats reads format definitions in YAML from rd and registers them.
// Nothing is registered unless every definition is valid.
func (r *Registry) LoadFormats(rd io.Reader) error {
	var doc yamlFormats
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return fmt.Errorf("codec: parse formats: %w", err)
	}

	formats := make([]Format, 0, len(doc.Formats))
	for _, y := range doc.Formats {
		f, err := y.format()
		if err != nil {
			return err
		}
		formats = append(formats, f)
	}

	for _, f := range formats {
		if err := r.Register(f); err != nil {
			return err
		}
		tracer().Infof("registered codec %q", f.Name)
	}
	return nil
}
