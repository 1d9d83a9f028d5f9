package imageproc

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"sketchtex/internal/geometry"
)

// Crop copies the pixels under box into a fresh image. The box must
// already be validated against the image extent; Crop does not re-check.
func Crop(src image.Image, box geometry.BoundingBox) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, box.Width, box.Height))
	srcPt := src.Bounds().Min.Add(image.Pt(box.X, box.Y))
	xdraw.Draw(dst, dst.Rect, src, srcPt, xdraw.Src)
	return dst
}
