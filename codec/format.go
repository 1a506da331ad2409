package codec

import (
	"fmt"

	"github.com/bodgit/tilekit/colors"
)

// Kind selects how a Format stores pixel bits.
type Kind int

const (
	// Planar stores one bit of every pixel per bit-plane.
	Planar Kind = iota
	// Packed stores all bits of a pixel together.
	Packed
	// DirectColor stores a packed color per pixel.
	DirectColor
)

var kindNames = map[Kind]string{
	Planar:      "planar",
	Packed:      "packed",
	DirectColor: "direct",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: kind %q", ErrInvalidFormat, s)
}

// PlaneImage is a group of consecutive bit-planes. With RowInterlace set the
// rows of the planes alternate, otherwise every plane is stored in full
// before the next.
type PlaneImage struct {
	Planes       int
	RowInterlace bool
}

// Format describes a codec.
type Format struct {
	Name   string
	Kind   Kind
	Layout Layout

	Width, Height   int
	FixedSize       bool
	WidthIncrement  int
	HeightIncrement int

	// ColorDepth is the number of bits per pixel for Planar and Packed
	// formats. Direct formats take theirs from ColorModel.
	ColorDepth int

	// Images lists the plane groups of a Planar format in storage order.
	// An empty list means one non-interlaced group of ColorDepth planes.
	Images []PlaneImage

	// RowPixelPattern maps the n'th stored pixel of each run of
	// len(RowPixelPattern) pixels in a row to its column within that run.
	// An empty pattern stores pixels left to right.
	RowPixelPattern []int

	// MergePriority gives the bit of the pixel value each plane supplies.
	// An empty list makes plane 0 the least significant bit.
	MergePriority []int

	// ColorModel is the packed color encoding of a Direct format.
	ColorModel colors.Model
}

// ColorType returns Direct for direct color formats and Indexed otherwise.
func (f Format) ColorType() ColorType {
	if f.Kind == DirectColor {
		return Direct
	}
	return Indexed
}

func (f Format) depth() int {
	if f.Kind == DirectColor {
		return f.ColorModel.Size() * 8
	}
	return f.ColorDepth
}

func (f Format) images() []PlaneImage {
	if len(f.Images) == 0 {
		return []PlaneImage{{Planes: f.ColorDepth}}
	}
	return f.Images
}

func (f Format) merge() []int {
	if len(f.MergePriority) == 0 {
		m := make([]int, f.ColorDepth)
		for i := range m {
			m[i] = i
		}
		return m
	}
	return f.MergePriority
}

func isPermutation(p []int) bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func (f Format) invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidFormat, f.Name, fmt.Sprintf(format, args...))
}

// Validate checks the format is self consistent.
func (f Format) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidFormat)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return f.invalid("size %dx%d", f.Width, f.Height)
	}
	if f.WidthIncrement < 0 || f.HeightIncrement < 0 {
		return f.invalid("negative resize increment")
	}
	if f.Layout != Tiled && f.Layout != Single {
		return f.invalid("unknown layout %s", f.Layout)
	}

	switch f.Kind {
	case Planar, Packed:
		if f.ColorDepth < 1 || f.ColorDepth > 8 {
			return f.invalid("color depth %d", f.ColorDepth)
		}
	case DirectColor:
		if f.ColorModel.Size() == 0 {
			return f.invalid("unknown color model %s", f.ColorModel)
		}
	default:
		return f.invalid("unknown kind %s", f.Kind)
	}

	if f.Kind == Planar {
		var planes int
		for _, img := range f.images() {
			if img.Planes < 1 {
				return f.invalid("empty plane image")
			}
			planes += img.Planes
		}
		if planes != f.ColorDepth {
			return f.invalid("plane images hold %d planes, color depth is %d", planes, f.ColorDepth)
		}
		if m := f.merge(); len(m) != f.ColorDepth || !isPermutation(m) {
			return f.invalid("merge priority %v", m)
		}
	} else if len(f.Images) > 0 || len(f.MergePriority) > 0 {
		return f.invalid("plane images and merge priority only apply to planar formats")
	}

	if n := len(f.RowPixelPattern); n > 0 {
		if !isPermutation(f.RowPixelPattern) {
			return f.invalid("row pixel pattern %v", f.RowPixelPattern)
		}
		if f.Width%n != 0 {
			return f.invalid("width %d is not a multiple of the row pixel pattern", f.Width)
		}
	}

	return nil
}

// sized returns a copy of f resized to width by height pixels.
func (f Format) sized(width, height int) (Format, error) {
	if width == 0 {
		width = f.Width
	}
	if height == 0 {
		height = f.Height
	}
	if width == f.Width && height == f.Height {
		return f, nil
	}
	if f.FixedSize {
		return Format{}, fmt.Errorf("%w: %s is fixed at %dx%d", ErrInvalidSize, f.Name, f.Width, f.Height)
	}
	if width <= 0 || height <= 0 {
		return Format{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if f.WidthIncrement > 0 && width%f.WidthIncrement != 0 {
		return Format{}, fmt.Errorf("%w: width %d is not a multiple of %d", ErrInvalidSize, width, f.WidthIncrement)
	}
	if f.HeightIncrement > 0 && height%f.HeightIncrement != 0 {
		return Format{}, fmt.Errorf("%w: height %d is not a multiple of %d", ErrInvalidSize, height, f.HeightIncrement)
	}
	if n := len(f.RowPixelPattern); n > 0 && width%n != 0 {
		return Format{}, fmt.Errorf("%w: width %d is not a multiple of %d", ErrInvalidSize, width, n)
	}
	f.Width, f.Height = width, height
	return f, nil
}
