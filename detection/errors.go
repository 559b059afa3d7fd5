package detection

import "github.com/pkg/errors"

var (
	// ErrMalformedDetections is returned when the parallel detection arrays
	// disagree in length or a mask does not match the image size.
	ErrMalformedDetections = errors.New("malformed detections")
	// ErrInvalidClassIndex is returned when a class id does not index into the
	// class table.
	ErrInvalidClassIndex = errors.New("invalid class index")
)
