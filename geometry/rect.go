package geometry

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"gocv.io/x/gocv"
)

// RotatedRect is a rectangle at an arbitrary rotation.
//
// Width, Height and Angle follow OpenCV's RotatedRect convention: the angle is
// in degrees and describes the rotation of the Width edge.
type RotatedRect struct {
	Center gocv.Point2f
	Width  float32
	Height float32
	Angle  float64
}

// String formats the rectangle for logging.
func (r RotatedRect) String() string {
	return fmt.Sprintf("center=(%.1f, %.1f) size=(%.1f x %.1f) angle=%.2f",
		r.Center.X, r.Center.Y, r.Width, r.Height, r.Angle)
}

// Size returns the integer (truncated) width and height of the rectangle.
func (r RotatedRect) Size() (int, int) {
	return int(r.Width), int(r.Height)
}

// MinAreaRect fits the minimum-area rotated rectangle enclosing a contour.
//
// Arguments:
//   - contour: The contour points.
//
// Returns:
//   - RotatedRect: The enclosing rectangle.
//   - error: ErrNoContourFound if the contour is empty.
func MinAreaRect(contour []image.Point) (RotatedRect, error) {
	if len(contour) == 0 {
		return RotatedRect{}, ErrNoContourFound
	}

	pv := gocv.NewPointVectorFromPoints(contour)
	defer pv.Close()

	fit := gocv.MinAreaRect2f(pv)

	return RotatedRect{
		Center: fit.Center,
		Width:  fit.Width,
		Height: fit.Height,
		Angle:  fit.Angle,
	}, nil
}

// Shrink scales the shorter side of the rectangle by ratio and leaves the longer
// side untouched. The scaled side is truncated to whole pixels. When both sides
// are equal the width is scaled.
//
// The detector masks are dilated before the rectangle is fitted, so the short
// axis is over-estimated; shrinking it tightens the crop to the object.
func Shrink(r RotatedRect, ratio float64) RotatedRect {
	out := r
	if r.Width > r.Height {
		out.Height = float32(int(float64(r.Height) * ratio))
	} else {
		out.Width = float32(int(float64(r.Width) * ratio))
	}
	return out
}

// AspectRatio returns min(w, h) / max(w, h) of the truncated rectangle size.
// A zero-sized rectangle yields 0.
func AspectRatio(r RotatedRect) float64 {
	w, h := r.Size()
	long, short := w, h
	if h > w {
		long, short = h, w
	}
	if long == 0 {
		return 0
	}
	return float64(short) / float64(long)
}

// Corners holds the four corners of a rotated rectangle, named in the
// rectangle's own frame (before rotation by Angle): Top is the -Height side and
// Left is the -Width side.
type Corners struct {
	BottomLeft  image.Point
	TopLeft     image.Point
	TopRight    image.Point
	BottomRight image.Point
}

// Points returns the corners in winding order BottomLeft, TopLeft, TopRight,
// BottomRight. This is the order cv::boxPoints enumerates them in.
func (c Corners) Points() [4]image.Point {
	return [4]image.Point{c.BottomLeft, c.TopLeft, c.TopRight, c.BottomRight}
}

// Distinct reports whether no two corners coincide.
func (c Corners) Distinct() bool {
	pts := c.Points()
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			if pts[i] == pts[j] {
				return false
			}
		}
	}
	return true
}

// RectCorners computes the corners of r, truncated toward zero to whole pixels.
func RectCorners(r RotatedRect) Corners {
	angle := float32(r.Angle) * math32.Pi / 180
	b := math32.Cos(angle) * 0.5
	a := math32.Sin(angle) * 0.5

	cx, cy := r.Center.X, r.Center.Y

	bl := gocv.Point2f{
		X: cx - a*r.Height - b*r.Width,
		Y: cy + b*r.Height - a*r.Width,
	}
	tl := gocv.Point2f{
		X: cx + a*r.Height - b*r.Width,
		Y: cy - b*r.Height - a*r.Width,
	}
	tr := gocv.Point2f{X: 2*cx - bl.X, Y: 2*cy - bl.Y}
	br := gocv.Point2f{X: 2*cx - tl.X, Y: 2*cy - tl.Y}

	return Corners{
		BottomLeft:  truncate(bl),
		TopLeft:     truncate(tl),
		TopRight:    truncate(tr),
		BottomRight: truncate(br),
	}
}

func truncate(p gocv.Point2f) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}
