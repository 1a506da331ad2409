package arranger

import (
	"fmt"
	"image"

	"github.com/bodgit/tilekit/codec"
)

var (
	_ Arranger = (*Scattered)(nil)
	_ Arranger = (*Sequential)(nil)
)

// CanCopy checks a width by height block of elements can be copied from src
// starting at from into dst starting at to. The first failed check is
// returned.
func CanCopy(src, dst Arranger, from, to image.Point, width, height int) error {
	if width < 1 || height < 1 {
		return fmt.Errorf("%w: cannot copy %dx%d elements", ErrOutOfRange, width, height)
	}

	sw, sh := src.GridSize()
	if from.X < 0 || from.Y < 0 || from.X+width > sw || from.Y+height > sh {
		return fmt.Errorf("%w: source %q has no %dx%d elements at %v", ErrOutOfRange, src.Name(), width, height, from)
	}

	dw, dh := dst.GridSize()
	if to.X < 0 || to.Y < 0 || to.X+width > dw || to.Y+height > dh {
		return fmt.Errorf("%w: destination %q has no %dx%d cells at %v", ErrOutOfRange, dst.Name(), width, height, to)
	}

	sew, seh := src.ElementSize()
	dew, deh := dst.ElementSize()
	if sew != dew || seh != deh {
		return fmt.Errorf("%w: %dx%d elements cannot be copied into a grid of %dx%d elements", ErrTypeMismatch, sew, seh, dew, deh)
	}

	if dst.Layout() != codec.Tiled && (width != 1 || height != 1) {
		return fmt.Errorf("%w: only one element can be copied into %s layout arranger %q", ErrInvalidOperation, dst.Layout(), dst.Name())
	}

	if src.ColorType() != dst.ColorType() {
		return fmt.Errorf("%w: cannot copy %s elements into %s arranger %q", ErrTypeMismatch, src.ColorType(), dst.ColorType(), dst.Name())
	}

	if _, ok := dst.(*Sequential); ok {
		return fmt.Errorf("%w: cannot copy into sequential arranger %q", ErrInvalidOperation, dst.Name())
	}

	return nil
}

// Copy copies a width by height block of elements from src into dst after
// checking it with CanCopy. Nothing is changed if the check fails. Empty
// source cells empty the matching destination cell.
func Copy(src, dst Arranger, from, to image.Point, width, height int) error {
	if err := CanCopy(src, dst, from, to, width, height); err != nil {
		return err
	}

	block, err := src.CopyElements(from.X, from.Y, width, height)
	if err != nil {
		return err
	}

	for y, row := range block.Elements {
		for x, e := range row {
			if err := dst.SetElement(e, to.X+x, to.Y+y); err != nil {
				return err
			}
		}
	}
	return nil
}
