package geometry

import "github.com/pkg/errors"

var (
	// ErrNoContourFound is returned when a mask has no foreground region.
	ErrNoContourFound = errors.New("no contour found")
	// ErrDegenerateCrop is returned when a rectified crop would be empty or too small.
	ErrDegenerateCrop = errors.New("degenerate crop")
)
