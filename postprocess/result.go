package postprocess

import "gocv.io/x/gocv"

// Crop is one rectified crossarm handed to downstream consumers.
type Crop struct {
	// Index is the position of the source instance in the ranked instance list.
	Index int
	// DetectorIndex is the position of the source detection in the detector
	// output.
	DetectorIndex int
	// Label is the class name of the source instance.
	Label string
	// Score is the detector confidence of the source instance.
	Score float32
	// Source is the path of the image the crop was taken from.
	Source string
	// Image is the crop itself. It is owned by the InstanceSet.
	Image gocv.Mat
}

// Stats counts how many instances each stage let through or rejected.
type Stats struct {
	Detected     int `json:"detected"`
	InvalidClass int `json:"invalid_class"`
	Duplicates   int `json:"duplicates"`
	NoContour    int `json:"no_contour"`
	RemovedShort int `json:"removed_short"`
	Degenerate   int `json:"degenerate"`
	Failed       int `json:"failed"`
	Cropped      int `json:"cropped"`
}
