package postprocess

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-crossarm/detection"
	"github.com/nvr-ai/go-crossarm/geometry"
	"github.com/nvr-ai/go-crossarm/profiler"
)

// Option customizes an InstanceSet.
type Option func(*InstanceSet)

// WithClasses sets the class table detections are resolved against.
// detection.CrossarmClasses is used by default.
func WithClasses(classes detection.ClassSet) Option {
	return func(s *InstanceSet) { s.classes = classes }
}

// WithLogger sets the logger. The logrus standard logger is used by default.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *InstanceSet) { s.logger = logger }
}

// WithProfiler times every stage on p.
func WithProfiler(p *profiler.RuntimeProfiler) Option {
	return func(s *InstanceSet) { s.profiler = p }
}

// InstanceSet holds every instance detected in one image and runs them through
// ranking, deduplication, contour extraction, the aspect filter and
// rectification.
//
// An InstanceSet owns a copy of the source image and the matrices of its
// instances; Close releases them. Sets share no mutable state and may be built
// concurrently for different images.
type InstanceSet struct {
	image       gocv.Mat
	path        string
	config      Config
	classes     detection.ClassSet
	logger      logrus.FieldLogger
	profiler    *profiler.RuntimeProfiler
	instances   []*Instance
	noInstances bool
	stats       Stats
}

// NewInstanceSet builds the instances of one image and runs every stage.
//
// Arguments:
//   - img: The source image the detections were computed on. It is copied.
//   - dets: The raw detector output.
//   - path: The source image path, used for logging and crop naming.
//   - cfg: The stage thresholds.
//   - opts: Optional class table, logger and profiler.
//
// Returns:
//   - *InstanceSet: The processed set. The caller must Close it.
//   - error: ErrInvalidConfiguration or detection.ErrMalformedDetections. Per
//     instance failures are recorded on the instances instead.
func NewInstanceSet(img gocv.Mat, dets detection.Result, path string, cfg Config, opts ...Option) (*InstanceSet, error) {
	s := &InstanceSet{
		path:    path,
		config:  cfg,
		classes: detection.CrossarmClasses,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("image", path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if img.Empty() {
		return nil, errors.Errorf("image %s is empty", path)
	}
	if err := dets.Validate(img.Cols(), img.Rows()); err != nil {
		return nil, err
	}

	s.image = img.Clone()
	s.stats.Detected = dets.Len()

	if dets.Len() == 0 {
		s.noInstances = true
		s.logger.Info("no instances detected")
		return s, nil
	}

	if err := s.build(dets); err != nil {
		s.Close()
		return nil, err
	}

	s.Rank()
	if err := s.Deduplicate(); err != nil {
		s.Close()
		return nil, err
	}
	s.GenerateContours()
	if cfg.OnlyLongCrossarms {
		s.FilterLongCrossarms()
	}
	s.CropCrossarms()

	s.logger.WithFields(logrus.Fields{
		"detected":   s.stats.Detected,
		"duplicates": s.stats.Duplicates,
		"cropped":    s.stats.Cropped,
	}).Debug("instance set processed")

	return s, nil
}

func (s *InstanceSet) build(dets detection.Result) error {
	defer s.profiler.StartOperation("build_instances")()

	s.instances = make([]*Instance, 0, dets.Len())
	for i := 0; i < dets.Len(); i++ {
		inst, err := NewInstance(i, dets.Instance(i), s.classes, s.config.Dilation)
		if errors.Is(err, detection.ErrInvalidClassIndex) {
			s.stats.InvalidClass++
			s.logger.WithField("detector_index", i).WithError(err).Warn("instance excluded")
			continue
		}
		if err != nil {
			return err
		}
		s.instances = append(s.instances, inst)
	}

	return nil
}

// Rank sorts the instances by mask pixel count, largest first.
func (s *InstanceSet) Rank() {
	defer s.profiler.StartOperation("rank")()

	Rank(s.instances)
}

// Deduplicate marks instances overlapping the reference mask as not unique.
// Instances whose overlap cannot be measured keep the error and get no crop.
func (s *InstanceSet) Deduplicate() error {
	defer s.profiler.StartOperation("deduplicate")()

	duplicates, err := Deduplicate(s.instances, s.config.SharedMaskRatioThreshold, s.config.DedupPolicy)
	s.stats.Duplicates = duplicates
	if err != nil {
		return errors.Wrapf(err, "deduplicate %s", s.path)
	}
	if len(s.instances) == 0 {
		return nil
	}

	top := s.instances[0]
	for i, inst := range s.instances {
		if i == 0 {
			continue
		}
		entry := s.logger.WithFields(logrus.Fields{
			"index":   i,
			"ratio":   inst.Ratio,
			"box_iou": inst.Box.IoU(top.Box),
		})
		switch {
		case inst.Err != nil:
			s.stats.Failed++
			entry.WithError(inst.Err).Warn("instance skipped")
		case inst.Unique:
			entry.Debug("instance overlap")
		default:
			entry.Info("instance marked as duplicate")
		}
	}

	return nil
}

// GenerateContours fits the contour, the minimum-area rectangle and the shrunk
// rectangle of every instance. Instances with an empty mask get
// geometry.ErrNoContourFound recorded and are skipped by later stages.
func (s *InstanceSet) GenerateContours() {
	defer s.profiler.StartOperation("contours")()

	for i, inst := range s.instances {
		if inst.Err != nil {
			continue
		}

		contour, err := geometry.LargestExternalContour(inst.Mask)
		if err == nil {
			inst.Rect, err = geometry.MinAreaRect(contour)
		}
		if err != nil {
			inst.Err = err
			s.stats.NoContour++
			s.logger.WithField("index", i).WithError(err).Warn("instance skipped")
			continue
		}

		inst.Contour = contour
		inst.Shrunk = geometry.Shrink(inst.Rect, s.config.CroppingRatio)
	}
}

// FilterLongCrossarms removes every instance whose shrunk rectangle is not
// elongated enough. Removed instances are released and no longer listed.
func (s *InstanceSet) FilterLongCrossarms() {
	defer s.profiler.StartOperation("filter_long")()

	kept := s.instances[:0]
	for i, inst := range s.instances {
		if inst.Err != nil {
			kept = append(kept, inst)
			continue
		}

		ratio := geometry.AspectRatio(inst.Shrunk)
		if ratio > s.config.LongCrossarmRatioThreshold {
			s.stats.RemovedShort++
			s.logger.WithFields(logrus.Fields{"index": i, "aspect_ratio": ratio}).Debug("instance removed, not elongated")
			inst.Close()
			continue
		}
		kept = append(kept, inst)
	}

	for i := len(kept); i < len(s.instances); i++ {
		s.instances[i] = nil
	}
	s.instances = kept
}

// CropCrossarms rectifies and normalizes every unique instance with a fitted
// rectangle. Normalized crops smaller than the configured minimum area get
// geometry.ErrDegenerateCrop recorded instead.
func (s *InstanceSet) CropCrossarms() {
	defer s.profiler.StartOperation("crop")()

	for i, inst := range s.instances {
		if !inst.Unique || inst.Err != nil {
			continue
		}

		crop, err := s.crop(inst)
		if err != nil {
			inst.Err = err
			entry := s.logger.WithField("index", i).WithError(err)
			if errors.Is(err, geometry.ErrDegenerateCrop) {
				s.stats.Degenerate++
				entry.Debug("crop discarded")
			} else {
				s.stats.Failed++
				entry.Warn("crop failed")
			}
			continue
		}

		inst.Crop.Close()
		inst.Crop = crop
		s.stats.Cropped++
	}
}

func (s *InstanceSet) crop(inst *Instance) (gocv.Mat, error) {
	rectified, err := geometry.Rectify(s.image, inst.Shrunk)
	if err != nil {
		return rectified, err
	}
	defer rectified.Close()

	out, err := geometry.NormalizeOrientation(rectified, s.config.OutputScale)
	if err != nil {
		return out, err
	}

	if area := out.Rows() * out.Cols(); area < s.config.MinCropArea {
		out.Close()
		return gocv.NewMat(), errors.Wrapf(geometry.ErrDegenerateCrop,
			"crop area %d below minimum %d", area, s.config.MinCropArea)
	}

	return out, nil
}

// Path returns the source image path.
func (s *InstanceSet) Path() string {
	return s.path
}

// NoInstances reports whether the detector found nothing in the image.
func (s *InstanceSet) NoInstances() bool {
	return s.noInstances
}

// Instances returns every listed instance in rank order, duplicates included.
func (s *InstanceSet) Instances() []*Instance {
	return s.instances
}

// Stats returns the per-stage counters.
func (s *InstanceSet) Stats() Stats {
	return s.stats
}

// CrossarmImages returns the crops of the unique instances in rank order.
// The matrices remain owned by the set.
func (s *InstanceSet) CrossarmImages() []gocv.Mat {
	crops := s.Crops()
	out := make([]gocv.Mat, len(crops))
	for i, c := range crops {
		out[i] = c.Image
	}
	return out
}

// Crops returns the crops of the unique instances in rank order along with
// their provenance.
func (s *InstanceSet) Crops() []Crop {
	var out []Crop
	for i, inst := range s.instances {
		if !inst.Unique || !inst.HasCrop() {
			continue
		}
		out = append(out, Crop{
			Index:         i,
			DetectorIndex: inst.DetectorIndex,
			Label:         inst.Label,
			Score:         inst.Score,
			Source:        s.path,
			Image:         inst.Crop,
		})
	}
	return out
}

var (
	uniqueColor    = color.RGBA{G: 255}
	duplicateColor = color.RGBA{R: 255}
)

// Annotate returns a copy of the source image with the contour of every
// instance drawn on it: unique instances in green and duplicates in red.
//
// Arguments:
//   - thickness: Line thickness in pixels.
//
// Returns:
//   - gocv.Mat: The annotated image. The caller owns it.
//   - error: An error if a contour cannot be drawn.
func (s *InstanceSet) Annotate(thickness int) (gocv.Mat, error) {
	out := s.image.Clone()

	for _, inst := range s.instances {
		if len(inst.Contour) == 0 {
			continue
		}

		c := uniqueColor
		if !inst.Unique {
			c = duplicateColor
		}

		pts := gocv.NewPointsVectorFromPoints([][]image.Point{inst.Contour})
		err := gocv.DrawContours(&out, pts, -1, c, thickness)
		pts.Close()
		if err != nil {
			out.Close()
			return gocv.NewMat(), errors.Wrapf(err, "draw contour of %s", inst)
		}
	}

	return out, nil
}

// Close releases the image copy and every instance.
func (s *InstanceSet) Close() {
	for _, inst := range s.instances {
		inst.Close()
	}
	s.instances = nil
	s.image.Close()
}
