// Package geometry - Contour and rotated-rectangle operations used to rectify
// segmented instances.
package geometry

import "image"

// Box is an axis-aligned detector box.
//
// The field order follows the detector's roi layout (y1, x1, y2, x2). X2 and Y2
// are exclusive, like image.Rectangle.
type Box struct {
	Y1, X1, Y2, X2 int
}

// BoxFromROI converts a detector roi row into a Box.
func BoxFromROI(roi [4]int) Box {
	return Box{Y1: roi[0], X1: roi[1], Y2: roi[2], X2: roi[3]}
}

// Rect returns the box as a canonical image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2).Canon()
}

// Area returns the area of the box in pixels.
func (b Box) Area() int {
	size := b.Rect().Size()
	return size.X * size.Y
}

// IoU returns the intersection over union of two boxes.
//
// Degenerate (zero area) boxes always yield 0.
//
// Arguments:
//   - o: The box to compare against.
//
// Returns:
//   - float32: A value in [0, 1].
func (b Box) IoU(o Box) float32 {
	r1, r2 := b.Rect(), o.Rect()

	inter := r1.Intersect(r2)
	if inter.Empty() {
		return 0
	}

	interArea := inter.Dx() * inter.Dy()
	union := b.Area() + o.Area() - interArea
	if union <= 0 {
		return 0
	}

	return float32(interArea) / float32(union)
}
