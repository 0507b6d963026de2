package renderer

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Copy frame into the top-left corner of dst, magnified by scale using
// nearest neighbour sampling.
func Present(frame *image.RGBA, dst draw.Image, scale uint32) error {
	if scale == 0 {
		return ErrInvalidScale
	}

	src := frame.Bounds()
	target := image.Rect(0, 0, src.Dx()*int(scale), src.Dy()*int(scale)).Add(dst.Bounds().Min)
	if !target.In(dst.Bounds()) {
		return fmt.Errorf("%w: need %dx%d; got %dx%d", ErrTargetTooSmall, target.Dx(), target.Dy(), dst.Bounds().Dx(), dst.Bounds().Dy())
	}

	if scale == 1 {
		draw.Draw(dst, target, frame, src.Min, draw.Src)
		return nil
	}

	draw.NearestNeighbor.Scale(dst, target, frame, src, draw.Src, nil)
	return nil
}
