package images

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestCropWriterPath(t *testing.T) {
	w := NewCropWriter("/data/out")

	assert.Equal(t, "/data/out/DSC_0042_i0.JPG", w.Path("/images/DSC_0042.jpg", 0))
	assert.Equal(t, "/data/out/pole.v2_i3.JPG", w.Path("pole.v2.png", 3))

	w.Format = FormatPNG
	assert.Equal(t, "/data/out/pole_i1.png", w.Path("pole.jpg", 1))
}

func TestCropWriterSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := NewCropWriter(dir)

	crop := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0), 30, 90, gocv.MatTypeCV8UC3)
	defer crop.Close()

	path, err := w.Save("frame_7.jpg", 2, crop)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "frame_7_i2.JPG"), path)
	assert.FileExists(t, path)

	back := gocv.IMRead(path, gocv.IMReadColor)
	defer back.Close()

	assert.Equal(t, 30, back.Rows())
	assert.Equal(t, 90, back.Cols())
}

func TestCropWriterSave_Empty(t *testing.T) {
	w := NewCropWriter(t.TempDir())

	empty := gocv.NewMat()
	defer empty.Close()

	_, err := w.Save("frame.jpg", 0, empty)
	assert.Error(t, err)
}

func TestCropWriterSaveAnnotated(t *testing.T) {
	dir := t.TempDir()
	w := &CropWriter{Dir: dir, Format: FormatPNG}

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 255, 0, 0), 20, 20, gocv.MatTypeCV8UC3)
	defer img.Close()

	path, err := w.SaveAnnotated("/in/pole.jpg", img)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pole_contours.png"), path)
	assert.FileExists(t, path)
}
