// Package pipeline - Drives crop extraction for single images and directories.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-crossarm/classify"
	"github.com/nvr-ai/go-crossarm/detection"
	"github.com/nvr-ai/go-crossarm/images"
	"github.com/nvr-ai/go-crossarm/postprocess"
	"github.com/nvr-ai/go-crossarm/profiler"
	"github.com/nvr-ai/go-crossarm/util"
)

// Pipeline turns an image and its detection dump into crossarm crops.
//
// A Pipeline holds only read-only configuration and may process several images
// concurrently. The Classifier is the exception; implementations serialize
// their own calls.
type Pipeline struct {
	// Config holds the stage thresholds.
	Config postprocess.Config
	// Classes is the detector class table.
	Classes detection.ClassSet
	// Writer saves crops. Nil disables saving.
	Writer *images.CropWriter
	// Annotate also saves the source image with contours drawn. Requires Writer.
	Annotate bool
	// Classifier labels crops. Nil disables classification.
	Classifier classify.Classifier
	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
	// Profiler times every stage. Nil disables timing.
	Profiler *profiler.RuntimeProfiler
}

// CropReport describes one produced crop.
type CropReport struct {
	Index          int              `json:"index"`
	DetectorIndex  int              `json:"detector_index"`
	Label          string           `json:"label"`
	Score          float32          `json:"score"`
	Width          int              `json:"width"`
	Height         int              `json:"height"`
	Path           string           `json:"path,omitempty"`
	Classification *classify.Result `json:"classification,omitempty"`
}

// Report is the outcome of processing one image.
type Report struct {
	RunID      string            `json:"run_id"`
	Image      string            `json:"image"`
	Detections string            `json:"detections"`
	Stats      postprocess.Stats `json:"stats"`
	Crops      []CropReport      `json:"crops"`
	Annotated  string            `json:"annotated,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Logger
}

func (p *Pipeline) classes() detection.ClassSet {
	if p.Classes.Len() == 0 {
		return detection.CrossarmClasses
	}
	return p.Classes
}

// Process runs one image through the post-processing stages.
//
// Arguments:
//   - ctx: Cancels the run between stages.
//   - imagePath: The source image.
//   - detectionsPath: The detection dump of the image.
//
// Returns:
//   - Report: What was produced.
//   - error: An error if the image, the detections or the configuration are
//     unusable, or if writing or classifying fails.
func (p *Pipeline) Process(ctx context.Context, imagePath, detectionsPath string) (Report, error) {
	report := Report{
		RunID:      uuid.NewString(),
		Image:      imagePath,
		Detections: detectionsPath,
	}
	log := p.logger().WithFields(logrus.Fields{"run_id": report.RunID, "image": imagePath})

	if err := ctx.Err(); err != nil {
		return report, err
	}

	done := p.Profiler.StartOperation("load")
	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		done()
		return report, errors.Errorf("cannot read image %s", imagePath)
	}

	dets, err := detection.Load(detectionsPath)
	done()
	if err != nil {
		return report, err
	}

	set, err := postprocess.NewInstanceSet(img, dets, imagePath, p.Config,
		postprocess.WithClasses(p.classes()),
		postprocess.WithLogger(log),
		postprocess.WithProfiler(p.Profiler),
	)
	if err != nil {
		return report, err
	}
	defer set.Close()

	report.Stats = set.Stats()

	crops := set.Crops()
	for _, c := range crops {
		report.Crops = append(report.Crops, CropReport{
			Index:         c.Index,
			DetectorIndex: c.DetectorIndex,
			Label:         c.Label,
			Score:         c.Score,
			Width:         c.Image.Cols(),
			Height:        c.Image.Rows(),
		})
	}

	if err := p.save(set, crops, &report); err != nil {
		return report, err
	}

	if p.Classifier != nil && len(crops) > 0 {
		done := p.Profiler.StartOperation("classify")
		results, err := p.Classifier.Classify(ctx, set.CrossarmImages())
		done()
		if err != nil {
			return report, errors.Wrap(err, "classify crops")
		}
		for i := range results {
			report.Crops[i].Classification = &results[i]
		}
	}

	p.Profiler.RecordMetric("crops_per_image", float64(len(crops)))

	log.WithFields(logrus.Fields{
		"detected":   report.Stats.Detected,
		"duplicates": report.Stats.Duplicates,
		"crops":      len(report.Crops),
	}).Info("image processed")

	return report, nil
}

func (p *Pipeline) save(set *postprocess.InstanceSet, crops []postprocess.Crop, report *Report) error {
	if p.Writer == nil {
		return nil
	}
	defer p.Profiler.StartOperation("save")()

	for i, c := range crops {
		path, err := p.Writer.Save(set.Path(), c.Index, c.Image)
		if err != nil {
			return err
		}
		report.Crops[i].Path = path
	}

	if p.Annotate && !set.NoInstances() {
		annotated, err := set.Annotate(10)
		if err != nil {
			return err
		}
		defer annotated.Close()

		path, err := p.Writer.SaveAnnotated(set.Path(), annotated)
		if err != nil {
			return err
		}
		report.Annotated = path
	}

	return nil
}

// DetectionsPath returns the detection dump expected for imagePath: the file
// <stem>.json in detDir, or next to the image when detDir is empty.
func DetectionsPath(imagePath, detDir string) string {
	if detDir == "" {
		detDir = filepath.Dir(imagePath)
	}
	base := filepath.Base(imagePath)
	return filepath.Join(detDir, base[:len(base)-len(filepath.Ext(base))]+".json")
}

// ProcessDir processes every image in dir on a bounded worker pool. Images
// without a detection dump are skipped. A failing image is recorded in its
// Report and does not stop the others.
//
// Arguments:
//   - ctx: Stops dispatching new images when cancelled.
//   - dir: The image directory.
//   - detDir: The detection directory; empty means dir.
//   - workers: The number of images processed at once.
//
// Returns:
//   - []Report: One report per dispatched image, in file name order. Images
//     not dispatched before ctx was cancelled have no report.
//   - error: An error if dir cannot be listed or ctx was cancelled.
func (p *Pipeline) ProcessDir(ctx context.Context, dir, detDir string, workers int) ([]Report, error) {
	files, err := util.ListImageFiles(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list images in %s", dir)
	}
	if workers < 1 {
		workers = 1
	}

	type job struct {
		index     int
		image     string
		detection string
	}

	var pending []job
	for _, f := range files {
		det := DetectionsPath(f.Path, detDir)
		if _, err := os.Stat(det); err != nil {
			p.logger().WithField("image", f.Path).Warn("no detections, skipped")
			continue
		}
		pending = append(pending, job{index: len(pending), image: f.Path, detection: det})
	}

	reports := make([]Report, len(pending))
	jobs := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				report, err := p.Process(ctx, j.image, j.detection)
				if err != nil {
					report.Error = err.Error()
					p.logger().WithField("image", j.image).WithError(err).Error("image failed")
				}
				reports[j.index] = report
			}
		}()
	}

dispatch:
	for _, j := range pending {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- j:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return dispatched(reports), err
	}
	return reports, nil
}

// dispatched drops the reports of images that never reached a worker.
func dispatched(reports []Report) []Report {
	out := reports[:0]
	for _, r := range reports {
		if r.RunID != "" {
			out = append(out, r)
		}
	}
	return out
}
