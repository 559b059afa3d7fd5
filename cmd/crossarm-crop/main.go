package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-crossarm/classify"
	"github.com/nvr-ai/go-crossarm/config"
	"github.com/nvr-ai/go-crossarm/images"
	"github.com/nvr-ai/go-crossarm/pipeline"
	"github.com/nvr-ai/go-crossarm/profiler"
)

func main() {
	var (
		imagePath       string
		dir             string
		detections      string
		configPath      string
		outputDir       string
		classifierModel string
		workers         int
		logLevel        string
		annotate        bool
		reportInterval  time.Duration
	)
	flag.StringVar(&imagePath, "image", "", "Path to a single image (.jpg, .jpeg, .png, .bmp)")
	flag.StringVar(&dir, "dir", "", "Directory of images to process")
	flag.StringVar(&detections, "detections", "", "Detection dump for -image, or detection directory for -dir (default: next to the images)")
	flag.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flag.StringVar(&outputDir, "output-dir", "", "Output directory for crops (overrides the config file)")
	flag.StringVar(&classifierModel, "classifier-model", "", "Path to the crack classifier ONNX model (overrides the config file)")
	flag.IntVar(&workers, "workers", 0, "Number of images processed concurrently (overrides the config file)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (overrides the config file)")
	flag.BoolVar(&annotate, "annotate", false, "Also save each image with instance contours drawn")
	flag.DurationVar(&reportInterval, "report-interval", 0, "Emit profiler reports at this interval (0 reports once at exit)")
	flag.Parse()

	log := initLogger()

	if (imagePath == "") == (dir == "") {
		log.Fatal("exactly one of -image or -dir is required")
	}

	cfg := config.DefaultFile()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.WithError(err).Fatal("invalid configuration")
		}
		cfg = loaded
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if classifierModel != "" {
		cfg.Classifier.ModelPath = classifierModel
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if annotate {
		cfg.Annotate = true
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(cfg.Level())

	if err := run(log, cfg, imagePath, dir, detections, reportInterval); err != nil {
		log.WithError(err).Error("processing failed")
		os.Exit(1)
	}
}

// run processes the requested images and writes one JSON report per image to
// stdout. Native resources are released before it returns.
func run(log *logrus.Logger, cfg config.File, imagePath, dir, detections string, reportInterval time.Duration) error {
	prof := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{ReportInterval: reportInterval, Logger: log})
	prof.Start()

	p := &pipeline.Pipeline{
		Config:   cfg.Postprocess,
		Classes:  cfg.ClassSet(),
		Annotate: cfg.Annotate,
		Logger:   log,
		Profiler: prof,
	}
	if cfg.OutputDir != "" {
		p.Writer = images.NewCropWriter(cfg.OutputDir)
	}
	if cfg.Classifier.Enabled() {
		c, err := classify.NewONNXClassifier(cfg.Classifier)
		if err != nil {
			prof.Stop()
			return errors.Wrap(err, "load classifier")
		}
		defer c.Close()
		p.Classifier = c
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		reports []pipeline.Report
		err     error
	)
	if imagePath != "" {
		det := detections
		if det == "" {
			det = pipeline.DetectionsPath(imagePath, "")
		}
		var report pipeline.Report
		report, err = p.Process(ctx, imagePath, det)
		if err != nil {
			report.Error = err.Error()
		}
		reports = append(reports, report)
	} else {
		reports, err = p.ProcessDir(ctx, dir, detections, cfg.Workers)
	}

	prof.Stop()
	prof.Report()

	enc := json.NewEncoder(os.Stdout)
	for _, r := range reports {
		if encErr := enc.Encode(r); encErr != nil {
			log.WithError(encErr).Error("failed to encode report")
		}
	}

	return err
}

// initLogger initializes a logrus logger writing to stderr so that reports on
// stdout stay machine readable.
func initLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	return log
}
