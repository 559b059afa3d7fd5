package postprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-crossarm/detection"
)

// rectPlane returns a w x h plane with the pixels of every rectangle set.
func rectPlane(w, h int, rects ...image.Rectangle) detection.Mask {
	m := detection.Mask{Width: w, Height: h, Data: make([]uint8, w*h)}
	for _, r := range rects {
		r = r.Intersect(image.Rect(0, 0, w, h))
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				m.Data[y*w+x] = 1
			}
		}
	}
	return m
}

// roi converts a rectangle into a detector (y1, x1, y2, x2) box.
func roi(r image.Rectangle) [4]int {
	return [4]int{r.Min.Y, r.Min.X, r.Max.Y, r.Max.X}
}

// detections builds a Result with one crossarm detection per rectangle.
func detections(w, h int, rects ...image.Rectangle) detection.Result {
	var r detection.Result
	for i, rect := range rects {
		r.ROIs = append(r.ROIs, roi(rect))
		r.Masks = append(r.Masks, rectPlane(w, h, rect))
		r.ClassIDs = append(r.ClassIDs, 1)
		r.Scores = append(r.Scores, 0.9-float32(i)*0.1)
	}
	return r
}

// testImage returns a BGR image with a few colored regions so that crops of
// different areas differ.
func testImage(t *testing.T, w, h int) gocv.Mat {
	t.Helper()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(30, 60, 90, 0), h, w, gocv.MatTypeCV8UC3)
	require.False(t, img.Empty())

	gocv.Rectangle(&img, image.Rect(0, 0, w/2, h/3), color.RGBA{R: 200, G: 20, B: 20}, -1)
	gocv.Rectangle(&img, image.Rect(w/3, h/2, w, h), color.RGBA{R: 20, G: 200, B: 120}, -1)
	gocv.Line(&img, image.Pt(0, h-1), image.Pt(w-1, 0), color.RGBA{R: 255, G: 255, B: 255}, 3)

	return img
}

func quietLogger() (logrus.FieldLogger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

// noDilation keeps the masks exactly as drawn so overlap ratios are exact.
func noDilation() Config {
	cfg := DefaultConfig()
	cfg.Dilation = Dilation{KernelSize: 1, Iterations: 0}
	return cfg
}
