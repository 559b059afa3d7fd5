// Package postprocess - Reconciles raw instance-segmentation output into
// ranked, deduplicated and rectified crossarm crops.
package postprocess

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-crossarm/detection"
	"github.com/nvr-ai/go-crossarm/geometry"
	"github.com/nvr-ai/go-crossarm/images"
)

// Instance is one detected object together with everything derived from it.
type Instance struct {
	// Box is the detector box.
	Box geometry.Box
	// Mask is the detector mask scaled to 0/255 and dilated.
	Mask gocv.Mat
	// ClassID is the detector class index.
	ClassID int
	// Label is the class name ClassID resolves to.
	Label string
	// Score is the detector confidence.
	Score float32
	// PixelCount is the number of nonzero pixels in Mask.
	PixelCount int
	// DetectorIndex is the position of the detection in the detector output.
	DetectorIndex int
	// Unique is false once the instance has been found to duplicate a
	// higher-ranked one.
	Unique bool
	// Ratio is the overlap percentage measured by deduplication.
	Ratio float64
	// Contour is the outer boundary of Mask.
	Contour []image.Point
	// Rect is the minimum-area rectangle enclosing Contour.
	Rect geometry.RotatedRect
	// Shrunk is Rect after its short side was scaled by the cropping ratio.
	Shrunk geometry.RotatedRect
	// Crop is the rectified, orientation-normalized crop. It stays empty when
	// the instance is a duplicate or failed a geometry stage.
	Crop gocv.Mat
	// Err records why the instance has no crop.
	Err error
}

// NewInstance builds an Instance from one detection tuple.
//
// Arguments:
//   - index: The position of the detection in the detector output.
//   - det: The detection tuple.
//   - classes: The class table the detector indexes into.
//   - dilation: The mask dilation parameters.
//
// Returns:
//   - *Instance: The instance. The caller must Close it.
//   - error: ErrInvalidClassIndex if det.ClassID is out of range.
func NewInstance(index int, det detection.Raw, classes detection.ClassSet, dilation Dilation) (*Instance, error) {
	label, err := classes.Name(det.ClassID)
	if err != nil {
		return nil, err
	}

	mask, err := images.MaskFromPlane(det.Mask.Width, det.Mask.Height, det.Mask.Data)
	if err != nil {
		return nil, errors.Wrapf(detection.ErrMalformedDetections, "instance %d: %v", index, err)
	}

	if dilation.Iterations > 0 && dilation.KernelSize > 0 {
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(dilation.KernelSize, dilation.KernelSize))
		defer kernel.Close()

		for i := 0; i < dilation.Iterations; i++ {
			if err := gocv.Dilate(mask, &mask, kernel); err != nil {
				mask.Close()
				return nil, errors.Wrapf(err, "dilate mask of instance %d", index)
			}
		}
	}

	return &Instance{
		Box:           geometry.BoxFromROI(det.ROI),
		Mask:          mask,
		ClassID:       det.ClassID,
		Label:         label,
		Score:         det.Score,
		PixelCount:    gocv.CountNonZero(mask),
		DetectorIndex: index,
		Unique:        true,
		Crop:          gocv.NewMat(),
	}, nil
}

// HasCrop reports whether the instance produced a crop.
func (i *Instance) HasCrop() bool {
	return !i.Crop.Empty()
}

// ApplyMask returns a copy of img with every pixel outside the processed mask
// set to zero.
func (i *Instance) ApplyMask(img gocv.Mat) (gocv.Mat, error) {
	return keepInside(img, i.Mask)
}

// ApplyContour returns a copy of img with every pixel outside the filled
// contour polygon set to zero. An instance without a contour yields a black
// image.
func (i *Instance) ApplyContour(img gocv.Mat) (gocv.Mat, error) {
	filled, err := geometry.FillContour(i.Contour, img.Rows(), img.Cols())
	if err != nil {
		return gocv.NewMat(), err
	}
	defer filled.Close()

	return keepInside(img, filled)
}

func keepInside(img, mask gocv.Mat) (gocv.Mat, error) {
	dst := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), img.Rows(), img.Cols(), img.Type())
	if err := img.CopyToWithMask(&dst, mask); err != nil {
		dst.Close()
		return gocv.NewMat(), errors.Wrap(err, "apply mask")
	}
	return dst, nil
}

// Close releases the native matrices held by the instance.
func (i *Instance) Close() {
	i.Mask.Close()
	i.Crop.Close()
}

// String implements fmt.Stringer.
func (i *Instance) String() string {
	return fmt.Sprintf("%s score=%.2f box=%v pixels=%d", i.Label, i.Score, i.Box.Rect(), i.PixelCount)
}
