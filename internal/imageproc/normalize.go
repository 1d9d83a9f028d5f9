package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
)

const (
	// maxDimension caps the working size; larger inputs are downscaled
	// before binarization to keep perception payloads small.
	maxDimension = 1600

	// thresholdFactor scales the image's mean brightness into the
	// adaptive ink threshold.
	thresholdFactor = 0.72

	// maxDashGap is the longest run of unlit pixels still treated as
	// part of a continuous frame line (tolerates dashed borders).
	maxDashGap = 12

	// frameCoverage is the lit fraction a row/column needs to count as
	// a frame line.
	frameCoverage = 0.82

	// frameSearchFrac bounds how deep from each side frame lines are
	// searched for.
	frameSearchFrac = 0.15

	// marginFrac pads the detected content box so geometry touching the
	// frame is not clipped.
	marginFrac = 0.03
	marginMin  = 8
)

// DecodeError reports input bytes that cannot be decoded as an image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode image: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// Normalized is the perception-ready form of an input image: single
// channel, geometry bright on a dark field, frame removed.
type Normalized struct {
	Image *image.Gray
	PNG   []byte
	MIME  string
}

func (n *Normalized) Width() int  { return n.Image.Rect.Dx() }
func (n *Normalized) Height() int { return n.Image.Rect.Dy() }

// Normalize converts raw image bytes into a high-contrast inverted
// binarization with any enclosing frame cropped away. Deterministic,
// no network.
func Normalize(raw []byte) (*Normalized, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	gray := toGray(scaleDown(src))
	binary := binarizeInverted(gray)
	content := cropFrame(binary)

	var buf bytes.Buffer
	if err := png.Encode(&buf, content); err != nil {
		return nil, fmt.Errorf("encode normalized image: %w", err)
	}
	return &Normalized{Image: content, PNG: buf.Bytes(), MIME: "image/png"}, nil
}

// scaleDown shrinks images whose longest side exceeds maxDimension,
// preserving aspect ratio.
func scaleDown(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxDimension {
		return src
	}
	scale := float64(maxDimension) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Rect, src, b, xdraw.Over, nil)
	return dst
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Rect, src, b.Min, xdraw.Src)
	return dst
}

// binarizeInverted thresholds against the image's own mean brightness so
// the transform holds up across lighting conditions. Ink (darker than
// the threshold) becomes white, paper becomes black.
func binarizeInverted(gray *image.Gray) *image.Gray {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	var sum uint64
	for i := range gray.Pix {
		sum += uint64(gray.Pix[i])
	}
	mean := float64(sum) / float64(len(gray.Pix))
	threshold := uint8(mean * thresholdFactor)

	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, p := range gray.Pix {
		if p < threshold {
			out.Pix[i] = 0xff
		} else {
			out.Pix[i] = 0x00
		}
	}
	return out
}

// cropFrame strips an enclosing border if one is detected, then crops to
// the lit content box with a safety margin. Operates on the inverted
// binarization, where lit pixels are geometry.
func cropFrame(img *image.Gray) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return img
	}

	top, bottom := 0, h-1
	left, right := 0, w-1

	depthY := int(float64(h) * frameSearchFrac)
	depthX := int(float64(w) * frameSearchFrac)

	// Innermost frame line per side wins; everything outside it is
	// discarded along with the line itself.
	for y := 0; y <= depthY && y < h; y++ {
		if rowCoverage(img, y) >= frameCoverage {
			top = y + 1
		}
	}
	for y := h - 1; y >= h-1-depthY && y >= 0; y-- {
		if rowCoverage(img, y) >= frameCoverage {
			bottom = y - 1
		}
	}
	for x := 0; x <= depthX && x < w; x++ {
		if colCoverage(img, x) >= frameCoverage {
			left = x + 1
		}
	}
	for x := w - 1; x >= w-1-depthX && x >= 0; x-- {
		if colCoverage(img, x) >= frameCoverage {
			right = x - 1
		}
	}
	if top >= bottom || left >= right {
		return img
	}

	// Tight content box inside the deframed region.
	minX, minY, maxX, maxY := right, bottom, left, top
	found := false
	for y := top; y <= bottom; y++ {
		for x := left; x <= right; x++ {
			if img.GrayAt(img.Rect.Min.X+x, img.Rect.Min.Y+y).Y > 0 {
				found = true
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if !found {
		return copyRegion(img, left, top, right-left+1, bottom-top+1)
	}

	margin := int(float64(max(w, h)) * marginFrac)
	if margin < marginMin {
		margin = marginMin
	}
	minX = max(minX-margin, left)
	minY = max(minY-margin, top)
	maxX = min(maxX+margin, right)
	maxY = min(maxY+margin, bottom)

	return copyRegion(img, minX, minY, maxX-minX+1, maxY-minY+1)
}

// rowCoverage returns the lit fraction of a row, with unlit gaps up to
// maxDashGap between lit runs counted as lit.
func rowCoverage(img *image.Gray, y int) float64 {
	w := img.Rect.Dx()
	lit := 0
	gap := 0
	inRun := false
	for x := 0; x < w; x++ {
		if img.GrayAt(img.Rect.Min.X+x, img.Rect.Min.Y+y).Y > 0 {
			if inRun && gap > 0 && gap <= maxDashGap {
				lit += gap
			}
			lit++
			gap = 0
			inRun = true
		} else if inRun {
			gap++
		}
	}
	return float64(lit) / float64(w)
}

func colCoverage(img *image.Gray, x int) float64 {
	h := img.Rect.Dy()
	lit := 0
	gap := 0
	inRun := false
	for y := 0; y < h; y++ {
		if img.GrayAt(img.Rect.Min.X+x, img.Rect.Min.Y+y).Y > 0 {
			if inRun && gap > 0 && gap <= maxDashGap {
				lit += gap
			}
			lit++
			gap = 0
			inRun = true
		} else if inRun {
			gap++
		}
	}
	return float64(lit) / float64(h)
}

func copyRegion(img *image.Gray, x, y, w, h int) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, w, h))
	for row := 0; row < h; row++ {
		srcOff := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y+row)
		copy(out.Pix[row*out.Stride:row*out.Stride+w], img.Pix[srcOff:srcOff+w])
	}
	return out
}
