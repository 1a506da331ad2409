package render

import (
	"fmt"
	"image"

	"github.com/bodgit/tilekit/palette"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// Scale enlarges m by factor without smoothing.
func Scale(m image.Image, factor int) (*image.NRGBA, error) {
	if factor < 1 {
		return nil, fmt.Errorf("render: scale factor %d", factor)
	}
	b := m.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), m, b, draw.Src, nil)
	return dst, nil
}

const swatchColumns = 16

// Swatch draws every entry of p as a cell pixel square, sixteen to a row.
// Cells large enough to hold it are labelled with the entry index.
func Swatch(p *palette.Palette, cell int) (*image.NRGBA, error) {
	if cell < 1 {
		return nil, fmt.Errorf("render: swatch cell size %d", cell)
	}
	n := p.Len()
	rows := max((n+swatchColumns-1)/swatchColumns, 1)
	dst := image.NewNRGBA(image.Rect(0, 0, swatchColumns*cell, rows*cell))

	face := inconsolata.Regular8x16
	labels := cell >= 3*face.Advance && cell >= face.Height

	for i := 0; i < n; i++ {
		c, err := p.NativeColor(i)
		if err != nil {
			return nil, err
		}
		x, y := i%swatchColumns*cell, i/swatchColumns*cell
		r := image.Rect(x, y, x+cell, y+cell)
		draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)

		if !labels {
			continue
		}
		ink := image.White
		if c.A > 0x7f && int(c.R)*299+int(c.G)*587+int(c.B)*114 > 128000 {
			ink = image.Black
		}
		d := font.Drawer{
			Dst:  dst,
			Src:  ink,
			Face: face,
			Dot:  fixed.Point26_6{X: fixed.I(x + 1), Y: fixed.I(y + face.Ascent + 1)},
		}
		d.DrawString(fmt.Sprintf("%d", i))
	}
	return dst, nil
}
