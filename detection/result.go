// Package detection - Raw instance-segmentation output consumed by the crossarm
// post-processing pipeline.
package detection

import "github.com/pkg/errors"

// Mask is one binary mask plane at the source image resolution.
type Mask struct {
	// Width of the plane in pixels.
	Width int
	// Height of the plane in pixels.
	Height int
	// Data holds Width*Height row-major values, 0 for background and 1 for
	// foreground. Any nonzero value is treated as foreground.
	Data []uint8
}

// Result is the detector output for one image: four parallel collections with
// one entry per detected instance. A Result with no entries is valid.
type Result struct {
	// ROIs holds one (y1, x1, y2, x2) box per instance.
	ROIs [][4]int
	// Masks holds one plane per instance.
	Masks []Mask
	// ClassIDs holds the class index of every instance.
	ClassIDs []int
	// Scores holds the confidence of every instance, in [0, 1].
	Scores []float32
}

// Len returns the number of instances.
func (r Result) Len() int {
	return len(r.ROIs)
}

// Instance returns the i-th detection tuple.
func (r Result) Instance(i int) Raw {
	return Raw{
		ROI:     r.ROIs[i],
		Mask:    r.Masks[i],
		ClassID: r.ClassIDs[i],
		Score:   r.Scores[i],
	}
}

// Validate checks that the collections are parallel and that every mask plane
// matches the image size.
//
// Arguments:
//   - width: The source image width.
//   - height: The source image height.
//
// Returns:
//   - error: ErrMalformedDetections describing the first problem found.
func (r Result) Validate(width, height int) error {
	n := len(r.ROIs)
	if len(r.Masks) != n || len(r.ClassIDs) != n || len(r.Scores) != n {
		return errors.Wrapf(ErrMalformedDetections,
			"length mismatch: rois=%d masks=%d class_ids=%d scores=%d",
			n, len(r.Masks), len(r.ClassIDs), len(r.Scores))
	}

	for i, m := range r.Masks {
		if m.Width != width || m.Height != height {
			return errors.Wrapf(ErrMalformedDetections,
				"mask %d is %dx%d, image is %dx%d", i, m.Width, m.Height, width, height)
		}
		if len(m.Data) != m.Width*m.Height {
			return errors.Wrapf(ErrMalformedDetections,
				"mask %d holds %d values, expected %d", i, len(m.Data), m.Width*m.Height)
		}
	}

	return nil
}

// Raw is a single detection tuple as produced by the detector.
type Raw struct {
	ROI     [4]int
	Mask    Mask
	ClassID int
	Score   float32
}
