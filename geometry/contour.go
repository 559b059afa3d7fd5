package geometry

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// LargestExternalContour extracts the outer boundary of a binary mask.
//
// Only external contours are retrieved (holes are discarded) and collinear
// points are compressed away. When the mask splits into several regions the one
// enclosing the largest area is returned; ties keep the first found.
//
// Arguments:
//   - mask: A single channel 8-bit mask, foreground is any nonzero value.
//
// Returns:
//   - []image.Point: The contour polygon.
//   - error: ErrNoContourFound if the mask is empty.
func LargestExternalContour(mask gocv.Mat) ([]image.Point, error) {
	if mask.Empty() || gocv.CountNonZero(mask) == 0 {
		return nil, ErrNoContourFound
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return nil, ErrNoContourFound
	}

	best := 0
	bestArea := -1.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > bestArea {
			best = i
			bestArea = area
		}
	}

	return contours.At(best).ToPoints(), nil
}

// FillContour rasterizes a closed contour into a new single channel mask of the
// given size. Pixels inside the polygon are 255, all others 0.
func FillContour(contour []image.Point, rows, cols int) (gocv.Mat, error) {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1)

	if len(contour) == 0 {
		return mask, nil
	}

	pts := gocv.NewPointsVectorFromPoints([][]image.Point{contour})
	defer pts.Close()

	if err := gocv.FillPoly(&mask, pts, color.RGBA{R: 255, G: 255, B: 255, A: 0}); err != nil {
		mask.Close()
		return gocv.NewMat(), errors.Wrap(err, "fill contour")
	}

	return mask, nil
}
