package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-crossarm/postprocess"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crossarm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultFile(t *testing.T) {
	f := DefaultFile()

	require.NoError(t, f.Validate())
	assert.Equal(t, postprocess.DefaultConfig(), f.Postprocess)
	assert.Equal(t, []string{"BG", "crossarm"}, f.Classes)
	assert.GreaterOrEqual(t, f.Workers, 1)
	assert.Equal(t, logrus.InfoLevel, f.Level())
	assert.Empty(t, f.Classifier.ModelPath)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
postprocess:
  shared_mask_ratio_threshold: 45
  only_long_crossarms: true
  dedup_policy: union
  dilation:
    iterations: 2
classes: [BG, crossarm, insulator]
output_dir: /tmp/crops
workers: 3
log_level: debug
classifier:
  model_path: models/crack.onnx
`)

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 45.0, f.Postprocess.SharedMaskRatioThreshold)
	assert.True(t, f.Postprocess.OnlyLongCrossarms)
	assert.Equal(t, postprocess.CompareToUnion, f.Postprocess.DedupPolicy)
	assert.Equal(t, 2, f.Postprocess.Dilation.Iterations)
	assert.Equal(t, 3, f.Workers)
	assert.Equal(t, "/tmp/crops", f.OutputDir)
	assert.Equal(t, logrus.DebugLevel, f.Level())
	assert.Equal(t, "models/crack.onnx", f.Classifier.ModelPath)

	// Untouched keys keep their defaults.
	assert.Equal(t, 0.5, f.Postprocess.CroppingRatio)
	assert.Equal(t, 10, f.Postprocess.Dilation.KernelSize)
	assert.Equal(t, 10000, f.Postprocess.MinCropArea)
	assert.Equal(t, 128, f.Classifier.InputSize)

	name, err := f.ClassSet().Name(2)
	require.NoError(t, err)
	assert.Equal(t, "insulator", name)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Cropping ratio out of range", "postprocess:\n  cropping_ratio: 2\n"},
		{"Unknown policy", "postprocess:\n  dedup_policy: sometimes\n"},
		{"No classes", "classes: []\n"},
		{"No workers", "workers: 0\n"},
		{"Bad log level", "log_level: loud\n"},
		{"Not yaml", "postprocess: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.True(t, errors.Is(err, postprocess.ErrInvalidConfiguration), "got %v", err)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
