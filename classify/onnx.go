package classify

import (
	"context"
	"os"
	"sync"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// ONNXClassifier runs the crack model through onnxruntime, one crop at a time.
type ONNXClassifier struct {
	config  Config
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewONNXClassifier loads the model and allocates its tensors.
//
// Arguments:
//   - config: The classifier configuration. ModelPath must be set.
//
// Returns:
//   - *ONNXClassifier: The classifier. The caller must Close it.
//   - error: An error if the runtime or the model cannot be loaded.
func NewONNXClassifier(config Config) (*ONNXClassifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if !config.Enabled() {
		return nil, errors.New("classifier model path is empty")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "classifier model %s", config.ModelPath)
	}

	if !ort.IsInitialized() {
		lib := config.LibraryPath
		if lib == "" {
			if def := DefaultLibraryPath(); def != "" {
				if _, err := os.Stat(def); err == nil {
					lib = def
				}
			}
		}
		if lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "error initializing ORT environment")
		}
	}

	size := int64(config.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, size, size, 3))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	session, err := ort.NewAdvancedSession(
		config.ModelPath,
		[]string{config.InputName},
		[]string{config.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	return &ONNXClassifier{
		config:  config,
		session: session,
		input:   input,
		output:  output,
	}, nil
}

// Classify labels every crop. Empty crops are rejected.
func (c *ONNXClassifier) Classify(ctx context.Context, crops []gocv.Mat) ([]Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, errors.New("classifier is closed")
	}

	results := make([]Result, 0, len(crops))
	for i, crop := range crops {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		if err := fillInput(crop, c.input.GetData(), c.config.InputSize); err != nil {
			return results, errors.Wrapf(err, "crop %d", i)
		}
		if err := c.session.Run(); err != nil {
			return results, errors.Wrapf(err, "classify crop %d", i)
		}

		score := c.output.GetData()[0]
		results = append(results, Result{Label: Decide(score, c.config.Threshold), Score: score})
	}

	return results, nil
}

// Close releases the session and its tensors.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.input != nil {
		c.input.Destroy()
		c.input = nil
	}
	if c.output != nil {
		c.output.Destroy()
		c.output = nil
	}
	if c.session != nil {
		err := c.session.Destroy()
		c.session = nil
		return err
	}
	return nil
}

// fillInput resizes a BGR crop to size x size and writes it into dst as NHWC
// BGR values in 0..255, unnormalized.
func fillInput(crop gocv.Mat, dst []float32, size int) error {
	if crop.Empty() {
		return errors.New("empty crop")
	}
	if len(dst) < size*size*3 {
		return errors.Errorf("destination tensor only holds %d floats, needs %d", len(dst), size*size*3)
	}

	img, err := crop.ToImage()
	if err != nil {
		return errors.Wrap(err, "convert crop to image")
	}

	img = resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	b := img.Bounds()

	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			dst[i] = float32(bl >> 8)
			dst[i+1] = float32(g >> 8)
			dst[i+2] = float32(r >> 8)
			i += 3
		}
	}

	return nil
}

var _ Classifier = (*ONNXClassifier)(nil)
