/*
Package render turns arrangers into images and images back into arranger
data.

Elements are decoded in parallel by a small pool of workers, each element
writing only its own pixels of the destination image. Mirror and rotation
are applied while drawing, rotation only ever being applied to square
elements. Elements without a palette of their own use the default palette of
their arranger.
*/
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/bodgit/tilekit/arranger"
	"github.com/bodgit/tilekit/codec"
	"github.com/bodgit/tilekit/palette"
	"github.com/npillmayer/schuko/tracing"
)

var (
	// ErrNotIndexed is returned when an indexed image is asked of a direct
	// color arranger.
	ErrNotIndexed = errors.New("render: arranger is not indexed")
	// ErrSize is returned when an image does not match the size of an
	// arranger.
	ErrSize = errors.New("render: image is wrong size")
)

// tracer writes to trace with key 'tilekit.render'
func tracer() tracing.Trace {
	return tracing.Select("tilekit.render")
}

// place returns where the pixel at x, y of a w by h element is drawn.
func place(x, y, w, h int, m arranger.Mirror, r arranger.Rotation) (int, int) {
	if m == arranger.MirrorHorizontal || m == arranger.MirrorBoth {
		x = w - 1 - x
	}
	if m == arranger.MirrorVertical || m == arranger.MirrorBoth {
		y = h - 1 - y
	}
	if w != h {
		return x, y
	}
	switch r {
	case arranger.RotationLeft:
		return y, w - 1 - x
	case arranger.RotationTurn:
		return w - 1 - x, h - 1 - y
	case arranger.RotationRight:
		return h - 1 - y, x
	}
	return x, y
}

// forEachPixel calls fn with the index of every decoded pixel of e and the
// point it is drawn at.
func forEachPixel(e *arranger.Element, fn func(i int, p image.Point)) {
	w, h := e.Width(), e.Height()
	origin := e.Bounds().Min
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := place(x, y, w, h, e.Mirror(), e.Rotation())
			fn(y*w+x, origin.Add(image.Pt(dx, dy)))
		}
	}
}

func paletteFor(a arranger.Arranger, e *arranger.Element) *palette.Palette {
	if p := e.Palette(); p != nil {
		return p
	}
	return a.DefaultPalette()
}

// Image renders the pixels r of a. Empty cells are left transparent.
func Image(ctx context.Context, a arranger.Arranger, r image.Rectangle) (*image.NRGBA, error) {
	dst := image.NewNRGBA(r)
	err := each(ctx, a, r, func(e *arranger.Element) error {
		pixels, err := codec.DecodeNative(e.Codec(), e.Source(), e.Address(), paletteFor(a, e))
		if err != nil {
			return fmt.Errorf("render: element at %s in %s: %w", e.Address(), e.Source().Name(), err)
		}
		forEachPixel(e, func(i int, p image.Point) {
			dst.SetNRGBA(p.X, p.Y, pixels[i])
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// Paletted renders the pixels r of an indexed arranger keeping the raw
// palette indices. The image uses the default palette of the arranger or,
// failing that, the palette of the first element which has one. Indices
// beyond the end of that palette are drawn as index 0.
func Paletted(ctx context.Context, a arranger.Arranger, r image.Rectangle) (*image.Paletted, error) {
	if a.ColorType() != codec.Indexed {
		return nil, fmt.Errorf("%w: %q", ErrNotIndexed, a.Name())
	}

	pal := a.DefaultPalette()
	if pal == nil {
		for _, e := range a.Elements() {
			if pal = e.Palette(); pal != nil {
				break
			}
		}
	}
	if pal == nil {
		return nil, fmt.Errorf("%w: arranger %q", codec.ErrNoPalette, a.Name())
	}

	cp := pal.ColorPalette()
	if len(cp) == 0 {
		cp = color.Palette{color.Transparent}
	}
	dst := image.NewPaletted(r, cp)
	err := each(ctx, a, r, func(e *arranger.Element) error {
		values, err := codec.ReadElement(e.Codec(), e.Source(), e.Address())
		if err != nil {
			return fmt.Errorf("render: element at %s in %s: %w", e.Address(), e.Source().Name(), err)
		}
		forEachPixel(e, func(i int, p image.Point) {
			if int(values[i]) < len(cp) {
				dst.SetColorIndex(p.X, p.Y, uint8(values[i]))
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}
