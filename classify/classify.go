// Package classify - Crack classification of rectified crossarm crops.
package classify

import (
	"context"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Label is the outcome of classifying one crop.
type Label string

const (
	// Cracked marks a crossarm with visible cracks.
	Cracked Label = "Cracked"
	// NotCracked marks a sound crossarm.
	NotCracked Label = "No cracked"
)

// Result is the classification of one crop.
type Result struct {
	Label Label   `json:"label"`
	Score float32 `json:"score"`
}

// Classifier assigns a Label to every crop.
type Classifier interface {
	Classify(ctx context.Context, crops []gocv.Mat) ([]Result, error)
	Close() error
}

// Config configures the ONNX crack classifier.
type Config struct {
	// ModelPath is the ONNX model. Empty disables classification.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// LibraryPath is the onnxruntime shared library. Empty keeps the
	// onnxruntime_go default.
	LibraryPath string `json:"library_path" yaml:"library_path"`
	// InputName and OutputName are the model's tensor names.
	InputName  string `json:"input_name" yaml:"input_name"`
	OutputName string `json:"output_name" yaml:"output_name"`
	// InputSize is the side of the square NHWC input.
	InputSize int `json:"input_size" yaml:"input_size"`
	// Threshold splits the sigmoid output: lower scores are Cracked.
	Threshold float32 `json:"threshold" yaml:"threshold"`
}

// DefaultConfig returns the settings the crack model was trained with.
func DefaultConfig() Config {
	return Config{
		InputName:  "input_1",
		OutputName: "output_1",
		InputSize:  128,
		Threshold:  0.5,
	}
}

// Enabled reports whether a model is configured.
func (c Config) Enabled() bool {
	return c.ModelPath != ""
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.InputSize <= 0 {
		return errors.Errorf("input_size %d must be positive", c.InputSize)
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return errors.Errorf("threshold %v not in (0, 1)", c.Threshold)
	}
	if c.Enabled() && (c.InputName == "" || c.OutputName == "") {
		return errors.New("input_name and output_name are required")
	}
	return nil
}

// Decide maps a sigmoid score to a Label.
func Decide(score, threshold float32) Label {
	if score < threshold {
		return Cracked
	}
	return NotCracked
}
