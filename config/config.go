// Package config - YAML configuration of the crop extraction tool.
package config

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-crossarm/classify"
	"github.com/nvr-ai/go-crossarm/detection"
	"github.com/nvr-ai/go-crossarm/postprocess"
)

// File is the layout of the YAML configuration file. Keys that are absent keep
// their DefaultFile value.
type File struct {
	// Postprocess holds the reconciliation and rectification thresholds.
	Postprocess postprocess.Config `json:"postprocess" yaml:"postprocess"`
	// Classes lists the detector class names in index order.
	Classes []string `json:"classes" yaml:"classes"`
	// OutputDir is where crops are written. Empty disables writing.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	// Annotate also writes the source image with instance contours drawn.
	Annotate bool `json:"annotate" yaml:"annotate"`
	// Classifier configures the optional crack classifier.
	Classifier classify.Config `json:"classifier" yaml:"classifier"`
	// Workers bounds the number of images processed concurrently.
	Workers int `json:"workers" yaml:"workers"`
	// LogLevel is a logrus level name.
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// DefaultFile returns the configuration used when no file is given.
func DefaultFile() File {
	return File{
		Postprocess: postprocess.DefaultConfig(),
		Classes:     detection.CrossarmClasses.Names(),
		Classifier:  classify.DefaultConfig(),
		Workers:     runtime.NumCPU(),
		LogLevel:    logrus.InfoLevel.String(),
	}
}

// Load reads a YAML configuration file on top of DefaultFile and validates it.
//
// Arguments:
//   - path: The file to read.
//
// Returns:
//   - File: The merged configuration.
//   - error: A read or decode error, or postprocess.ErrInvalidConfiguration.
func Load(path string) (File, error) {
	f := DefaultFile()

	raw, err := os.ReadFile(path)
	if err != nil {
		return f, errors.Wrapf(err, "read config %s", path)
	}

	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, errors.Wrapf(postprocess.ErrInvalidConfiguration, "decode %s: %v", path, err)
	}

	return f, f.Validate()
}

// Validate checks the whole file.
func (f File) Validate() error {
	if err := f.Postprocess.Validate(); err != nil {
		return err
	}
	if len(f.Classes) == 0 {
		return errors.Wrap(postprocess.ErrInvalidConfiguration, "classes must not be empty")
	}
	if f.Workers < 1 {
		return errors.Wrapf(postprocess.ErrInvalidConfiguration, "workers %d must be at least 1", f.Workers)
	}
	if _, err := logrus.ParseLevel(f.LogLevel); err != nil {
		return errors.Wrapf(postprocess.ErrInvalidConfiguration, "log_level: %v", err)
	}
	if err := f.Classifier.Validate(); err != nil {
		return errors.Wrapf(postprocess.ErrInvalidConfiguration, "classifier: %v", err)
	}
	return nil
}

// ClassSet returns the configured class table.
func (f File) ClassSet() detection.ClassSet {
	return detection.NewClassSet(f.Classes...)
}

// Level returns the configured log level, defaulting to info.
func (f File) Level() logrus.Level {
	level, err := logrus.ParseLevel(f.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
