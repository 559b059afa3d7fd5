package images

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is the quality used when none is configured.
const DefaultJPEGQuality = 95

// CropWriter saves rectified crops as <image_stem>_i<index><ext> files in Dir.
type CropWriter struct {
	// Dir is the output directory. It is created on first save.
	Dir string `json:"dir" yaml:"dir"`
	// Format selects the encoder. Defaults to JPEG.
	Format ImageFormat `json:"format" yaml:"format"`
	// Quality is the JPEG quality, 1-100.
	Quality int `json:"quality" yaml:"quality"`
}

// NewCropWriter returns a JPEG writer for dir.
func NewCropWriter(dir string) *CropWriter {
	return &CropWriter{Dir: dir, Format: FormatJPEG, Quality: DefaultJPEGQuality}
}

// Path returns the file a crop of imagePath with the given index is written to.
func (w *CropWriter) Path(imagePath string, index int) string {
	return w.named(imagePath, fmt.Sprintf("_i%d", index))
}

// AnnotatedPath returns the file the annotated copy of imagePath is written to.
func (w *CropWriter) AnnotatedPath(imagePath string) string {
	return w.named(imagePath, "_contours")
}

func (w *CropWriter) named(imagePath, suffix string) string {
	base := filepath.Base(imagePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(w.Dir, stem+suffix+w.Format.Extension())
}

// Save writes one crop.
//
// Arguments:
//   - imagePath: The source image path. Only its stem is used.
//   - index: The crop's position in the instance list.
//   - crop: The crop to encode.
//
// Returns:
//   - string: The written file path.
//   - error: An error if the directory cannot be created or encoding fails.
func (w *CropWriter) Save(imagePath string, index int, crop gocv.Mat) (string, error) {
	if crop.Empty() {
		return "", errors.Errorf("crop %d of %s is empty", index, imagePath)
	}
	return w.write(w.Path(imagePath, index), crop)
}

// SaveAnnotated writes the annotated copy of imagePath.
func (w *CropWriter) SaveAnnotated(imagePath string, img gocv.Mat) (string, error) {
	if img.Empty() {
		return "", errors.Errorf("annotated image of %s is empty", imagePath)
	}
	return w.write(w.AnnotatedPath(imagePath), img)
}

func (w *CropWriter) write(path string, img gocv.Mat) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create output directory %s", w.Dir)
	}

	params := []int{}
	if w.Format.Extension() == ".JPG" {
		q := w.Quality
		if q <= 0 || q > 100 {
			q = DefaultJPEGQuality
		}
		params = append(params, int(gocv.IMWriteJpegQuality), q)
	}

	if ok := gocv.IMWriteWithParams(path, img, params); !ok {
		return "", errors.Errorf("failed to encode %s", path)
	}

	return path, nil
}
