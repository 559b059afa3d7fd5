package postprocess

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-crossarm/geometry"
)

// ErrInvalidConfiguration is returned when a threshold or ratio is out of range.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// DedupPolicy selects the reference mask that lower-ranked instances are
// compared against.
type DedupPolicy string

const (
	// CompareToTopOnly compares every instance against the top-ranked mask only.
	// The reference is never updated.
	CompareToTopOnly DedupPolicy = "top_only"
	// CompareToUnion compares every instance against the union of all unique
	// instances kept so far.
	CompareToUnion DedupPolicy = "union"
)

// Dilation configures the morphological dilation applied to every detector
// mask before ranking.
type Dilation struct {
	// KernelSize is the side of the square structuring element.
	KernelSize int `json:"kernel_size" yaml:"kernel_size"`
	// Iterations is the number of times the dilation is applied.
	Iterations int `json:"iterations" yaml:"iterations"`
}

// Config holds the thresholds of the reconciliation and rectification stages.
type Config struct {
	// SharedMaskRatioThreshold is the overlap percentage above which a
	// lower-ranked instance is marked as a duplicate.
	SharedMaskRatioThreshold float64 `json:"shared_mask_ratio_threshold" yaml:"shared_mask_ratio_threshold"`
	// CroppingRatio is the factor applied to the short side of the fitted
	// rectangle before rectification.
	CroppingRatio float64 `json:"cropping_ratio" yaml:"cropping_ratio"`
	// OnlyLongCrossarms enables the aspect ratio filter.
	OnlyLongCrossarms bool `json:"only_long_crossarms" yaml:"only_long_crossarms"`
	// LongCrossarmRatioThreshold is the largest short/long ratio an instance may
	// have to survive the aspect ratio filter.
	LongCrossarmRatioThreshold float64 `json:"long_crossarm_ratio_threshold" yaml:"long_crossarm_ratio_threshold"`
	// DedupPolicy selects the duplicate reference mask.
	DedupPolicy DedupPolicy `json:"dedup_policy" yaml:"dedup_policy"`
	// MinCropArea is the smallest rectified crop, in pixels, that is kept.
	MinCropArea int `json:"min_crop_area" yaml:"min_crop_area"`
	// OutputScale is the downsampling factor applied to every crop.
	OutputScale float64 `json:"output_scale" yaml:"output_scale"`
	// Dilation configures mask dilation.
	Dilation Dilation `json:"dilation" yaml:"dilation"`
}

// DefaultConfig returns the configuration the crossarm dataset was generated
// with.
//
// Returns:
//   - Config: The default configuration.
func DefaultConfig() Config {
	return Config{
		SharedMaskRatioThreshold:   30,
		CroppingRatio:              0.5,
		OnlyLongCrossarms:          false,
		LongCrossarmRatioThreshold: 0.10,
		DedupPolicy:                CompareToTopOnly,
		MinCropArea:                10000,
		OutputScale:                geometry.DefaultOutputScale,
		Dilation: Dilation{
			KernelSize: 10,
			Iterations: 4,
		},
	}
}

// Validate checks every option against its allowed range.
//
// Returns:
//   - error: ErrInvalidConfiguration naming the first offending option.
func (c Config) Validate() error {
	switch {
	case c.SharedMaskRatioThreshold < 0 || c.SharedMaskRatioThreshold > 100:
		return errors.Wrapf(ErrInvalidConfiguration, "shared_mask_ratio_threshold %v not in [0, 100]", c.SharedMaskRatioThreshold)
	case c.CroppingRatio <= 0 || c.CroppingRatio > 1:
		return errors.Wrapf(ErrInvalidConfiguration, "cropping_ratio %v not in (0, 1]", c.CroppingRatio)
	case c.LongCrossarmRatioThreshold <= 0 || c.LongCrossarmRatioThreshold > 1:
		return errors.Wrapf(ErrInvalidConfiguration, "long_crossarm_ratio_threshold %v not in (0, 1]", c.LongCrossarmRatioThreshold)
	case c.DedupPolicy != CompareToTopOnly && c.DedupPolicy != CompareToUnion:
		return errors.Wrapf(ErrInvalidConfiguration, "unknown dedup_policy %q", c.DedupPolicy)
	case c.MinCropArea <= 0:
		return errors.Wrapf(ErrInvalidConfiguration, "min_crop_area %d must be positive", c.MinCropArea)
	case c.OutputScale <= 0:
		return errors.Wrapf(ErrInvalidConfiguration, "output_scale %v must be positive", c.OutputScale)
	case c.Dilation.KernelSize < 1:
		return errors.Wrapf(ErrInvalidConfiguration, "dilation.kernel_size %d must be at least 1", c.Dilation.KernelSize)
	case c.Dilation.Iterations < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "dilation.iterations %d must not be negative", c.Dilation.Iterations)
	}
	return nil
}
