package geometry

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultOutputScale is the downsampling factor applied to every rectified crop
// so crops from images of different resolutions end up at comparable sizes.
const DefaultOutputScale = 0.6

// Rectify unwarps the region of src covered by r into an axis-aligned image of
// r's truncated size.
//
// The correspondence is fixed:
//
//	TopLeft     -> (0, 0)
//	TopRight    -> (w, 0)
//	BottomLeft  -> (0, h)
//	BottomRight -> (w, h)
//
// Arguments:
//   - src: The source image.
//   - r: The rectangle to unwarp.
//
// Returns:
//   - gocv.Mat: The rectified crop. The caller owns it.
//   - error: ErrDegenerateCrop if r has no area or its corners collapse, or
//     the warp error.
func Rectify(src gocv.Mat, r RotatedRect) (gocv.Mat, error) {
	w, h := r.Size()
	if w <= 0 || h <= 0 {
		return gocv.NewMat(), errors.Wrapf(ErrDegenerateCrop, "rectangle size %dx%d", w, h)
	}

	c := RectCorners(r)
	if !c.Distinct() {
		return gocv.NewMat(), errors.Wrapf(ErrDegenerateCrop, "corners collapse for %s", r)
	}

	from := gocv.NewPointVectorFromPoints([]image.Point{c.TopLeft, c.TopRight, c.BottomLeft, c.BottomRight})
	defer from.Close()

	to := gocv.NewPointVectorFromPoints([]image.Point{{0, 0}, {w, 0}, {0, h}, {w, h}})
	defer to.Close()

	m := gocv.GetPerspectiveTransform(from, to)
	defer m.Close()

	dst := gocv.NewMat()
	if err := gocv.WarpPerspective(src, &dst, m, image.Pt(w, h)); err != nil {
		dst.Close()
		return gocv.NewMat(), errors.Wrapf(err, "warp %s", r)
	}
	if dst.Empty() {
		dst.Close()
		return gocv.NewMat(), errors.Wrap(ErrDegenerateCrop, "perspective warp produced an empty image")
	}

	return dst, nil
}

// NormalizeOrientation rescales a rectified crop by scale and turns portrait
// crops into landscape ones.
//
// Portrait crops (h > w) are resized to a height of int(h*scale) and then
// rotated 90 degrees counter-clockwise so the long axis is horizontal. All
// other crops are resized to a width of int(w*scale). The aspect ratio is kept
// in both cases.
//
// Arguments:
//   - crop: The rectified crop. It is not modified.
//   - scale: The downsampling factor, usually DefaultOutputScale.
//
// Returns:
//   - gocv.Mat: The normalized crop. The caller owns it.
//   - error: ErrDegenerateCrop if the scaled size has no area, or the resize
//     or rotate error.
func NormalizeOrientation(crop gocv.Mat, scale float64) (gocv.Mat, error) {
	w, h := crop.Cols(), crop.Rows()
	if w <= 0 || h <= 0 {
		return gocv.NewMat(), errors.Wrap(ErrDegenerateCrop, "empty crop")
	}

	portrait := h > w

	var size image.Point
	if portrait {
		th := int(float64(h) * scale)
		size = image.Pt(int(float64(w)*float64(th)/float64(h)), th)
	} else {
		tw := int(float64(w) * scale)
		size = image.Pt(tw, int(float64(h)*float64(tw)/float64(w)))
	}
	if size.X <= 0 || size.Y <= 0 {
		return gocv.NewMat(), errors.Wrapf(ErrDegenerateCrop, "scaled size %dx%d", size.X, size.Y)
	}

	resized := gocv.NewMat()
	if err := gocv.Resize(crop, &resized, size, 0, 0, gocv.InterpolationArea); err != nil {
		resized.Close()
		return gocv.NewMat(), errors.Wrapf(err, "resize crop to %dx%d", size.X, size.Y)
	}
	if !portrait {
		return resized, nil
	}
	defer resized.Close()

	rotated := gocv.NewMat()
	if err := gocv.Rotate(resized, &rotated, gocv.Rotate90CounterClockwise); err != nil {
		rotated.Close()
		return gocv.NewMat(), errors.Wrap(err, "rotate crop")
	}

	return rotated, nil
}
