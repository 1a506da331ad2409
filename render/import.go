package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/bodgit/tilekit/arranger"
	"github.com/bodgit/tilekit/codec"
	"github.com/ericpauley/go-quantize/quantize"
)

func countColors(m image.Image) int {
	b := m.Bounds()
	colors := make(map[color.NRGBA]struct{})
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			colors[color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)] = struct{}{}
		}
	}
	return len(colors)
}

// Reduce returns m as a paletted image of no more than n colors. Images
// with too many colors are quantized using median cut.
func Reduce(m image.Image, n int) *image.Paletted {
	b := m.Bounds()

	pm, _ := m.(*image.Paletted)
	if pm == nil {
		if cp, ok := m.ColorModel().(color.Palette); ok {
			pm = image.NewPaletted(b, cp)
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					pm.Set(x, y, cp.Convert(m.At(x, y)))
				}
			}
		}
	}

	if pm == nil || len(pm.Palette) > n {
		tracer().Debugf("quantizing %v image to %d colors", b, n)
		q := quantize.MedianCutQuantizer{}
		pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, n), m))
		draw.Draw(pm, b, m, b.Min, draw.Src)
	}

	return pm
}

// colorLimit returns how many entries of the default palette of a every
// element can address, or 0 without a default palette.
func colorLimit(a arranger.Arranger) int {
	pal := a.DefaultPalette()
	if pal == nil {
		return 0
	}
	n := pal.Len()
	for _, e := range a.Elements() {
		n = min(n, codec.Colors(e.Codec()))
	}
	return n
}

// Import encodes m into the data sources of a. The image must be the same
// size as the arranger. Colors of indexed arrangers map to the closest
// palette entry, quantizing first when m has more colors than the elements
// can address in the default palette. Empty cells and elements without a
// data source are skipped.
func Import(a arranger.Arranger, m image.Image) error {
	ab := a.Bounds()
	if m.Bounds().Size() != ab.Size() {
		return fmt.Errorf("%w: %v image for %v arranger %q", ErrSize, m.Bounds().Size(), ab.Size(), a.Name())
	}

	// Adjust image so that top-left corner matches the arranger
	offset := m.Bounds().Min.Sub(ab.Min)

	if a.ColorType() == codec.Indexed {
		if n := colorLimit(a); n > 0 && countColors(m) > n {
			m = Reduce(m, n)
		}
	}

	for _, e := range a.Elements() {
		if e.Source() == nil {
			continue
		}
		pixels := make([]color.NRGBA, e.Width()*e.Height())
		forEachPixel(e, func(i int, p image.Point) {
			pixels[i] = color.NRGBAModel.Convert(m.At(p.X+offset.X, p.Y+offset.Y)).(color.NRGBA)
		})
		if err := codec.EncodeNative(e.Codec(), e.Source(), e.Address(), paletteFor(a, e), pixels); err != nil {
			return fmt.Errorf("render: element at %s in %s: %w", e.Address(), e.Source().Name(), err)
		}
	}

	return nil
}
