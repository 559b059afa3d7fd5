package detection

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// File is the on-disk layout of a detection dump. Masks are stored as
// single-channel PNG files next to the JSON document; their paths are relative
// to the document's directory.
type File struct {
	ROIs     [][4]int  `json:"rois"`
	ClassIDs []int     `json:"class_ids"`
	Scores   []float32 `json:"scores"`
	Masks    []string  `json:"masks"`
}

// Load reads a detection dump written by Save or by the segmentation runner.
//
// Arguments:
//   - path: Path to the JSON document.
//
// Returns:
//   - Result: The detections. Sizes are not validated against an image here.
//   - error: ErrMalformedDetections if the document or a mask cannot be decoded.
func Load(path string) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, errors.Wrapf(err, "read detections %s", path)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return Result{}, errors.Wrapf(ErrMalformedDetections, "decode %s: %v", path, err)
	}

	r := Result{
		ROIs:     f.ROIs,
		ClassIDs: f.ClassIDs,
		Scores:   f.Scores,
		Masks:    make([]Mask, len(f.Masks)),
	}

	dir := filepath.Dir(path)
	for i, name := range f.Masks {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		m, err := loadMask(name)
		if err != nil {
			return Result{}, errors.Wrapf(ErrMalformedDetections, "mask %d: %v", i, err)
		}
		r.Masks[i] = m
	}

	return r, nil
}

func loadMask(path string) (Mask, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return Mask{}, err
	}

	b := img.Bounds()
	m := Mask{Width: b.Dx(), Height: b.Dy(), Data: make([]uint8, b.Dx()*b.Dy())}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y > 0 {
				m.Data[y*m.Width+x] = 1
			}
		}
	}

	return m, nil
}

// Save writes r as a JSON document at path and one PNG per mask next to it,
// named <stem>_mask<i>.png.
func Save(path string, r Result) error {
	stem := filepath.Base(path)
	stem = stem[:len(stem)-len(filepath.Ext(stem))]
	dir := filepath.Dir(path)

	f := File{
		ROIs:     r.ROIs,
		ClassIDs: r.ClassIDs,
		Scores:   r.Scores,
		Masks:    make([]string, len(r.Masks)),
	}

	for i, m := range r.Masks {
		name := fmt.Sprintf("%s_mask%d.png", stem, i)
		if err := imaging.Save(maskImage(m), filepath.Join(dir, name)); err != nil {
			return errors.Wrapf(err, "save mask %d", i)
		}
		f.Masks[i] = name
	}

	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode detections")
	}

	return errors.Wrapf(os.WriteFile(path, raw, 0o644), "write detections %s", path)
}

func maskImage(m Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Data {
		if v != 0 {
			img.Pix[i] = 255
		}
	}
	return img
}
