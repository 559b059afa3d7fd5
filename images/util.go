package images

import (
	"crypto/md5"
	"fmt"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ComputeMatChecksum generates a deterministic checksum for a Mat to verify idempotency.
//
// Arguments:
// - mat: The Mat to compute checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	checksum := ComputeMatChecksum(crop)
//	fmt.Printf("Crop checksum: %s\n", checksum)
//
// ```
func ComputeMatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	data, err := mat.DataPtrUint8()
	if err != nil {
		return "invalid"
	}

	hash := md5.New()
	fmt.Fprintf(hash, "%dx%dx%d:", mat.Rows(), mat.Cols(), mat.Channels())
	hash.Write(data)
	return fmt.Sprintf("%x", hash.Sum(nil))
}

// MaskFromPlane converts a row-major binary plane into a single channel 8-bit
// Mat. Nonzero values become 255.
//
// Arguments:
//   - width: Plane width in pixels.
//   - height: Plane height in pixels.
//   - data: width*height values.
//
// Returns:
//   - gocv.Mat: The mask. The caller owns it.
//   - error: An error if the buffer does not match the size.
func MaskFromPlane(width, height int, data []uint8) (gocv.Mat, error) {
	if width <= 0 || height <= 0 || len(data) != width*height {
		return gocv.NewMat(), errors.Errorf("plane of %d values does not fit %dx%d", len(data), width, height)
	}

	scaled := make([]byte, len(data))
	for i, v := range data {
		if v != 0 {
			scaled[i] = 255
		}
	}

	m, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, scaled)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "create mask mat")
	}
	defer m.Close()

	return m.Clone(), nil
}
