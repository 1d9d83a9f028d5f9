package geometry

import "fmt"

// BoundingBox is an axis-aligned pixel rectangle. After Validate all
// fields are non-negative, Width/Height positive, and the box lies
// within the source image extent.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DegenerateBoxError reports a perception box that, after clamping,
// has no area. Such boxes lie entirely outside the image and must not
// be silently accepted.
type DegenerateBoxError struct {
	Box         BoundingBox
	ImageWidth  int
	ImageHeight int
}

func (e *DegenerateBoxError) Error() string {
	return fmt.Sprintf("degenerate bounding box %+v for %dx%d image", e.Box, e.ImageWidth, e.ImageHeight)
}

// ValidateBox clamps box into [0,imageWidth)x[0,imageHeight) and fails
// with DegenerateBoxError when nothing remains.
func ValidateBox(box BoundingBox, imageWidth, imageHeight int) (BoundingBox, error) {
	// Shift negative origins inward, shrinking the box accordingly.
	if box.X < 0 {
		box.Width += box.X
		box.X = 0
	}
	if box.Y < 0 {
		box.Height += box.Y
		box.Y = 0
	}
	if box.X+box.Width > imageWidth {
		box.Width = imageWidth - box.X
	}
	if box.Y+box.Height > imageHeight {
		box.Height = imageHeight - box.Y
	}
	if box.X >= imageWidth || box.Y >= imageHeight || box.Width <= 0 || box.Height <= 0 {
		return BoundingBox{}, &DegenerateBoxError{Box: box, ImageWidth: imageWidth, ImageHeight: imageHeight}
	}
	return box, nil
}
