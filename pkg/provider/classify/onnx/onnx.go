// Package onnx runs the distress classifier natively via ONNX Runtime.
//
// The model is expected to take a single [1, N] float32 feature tensor and
// emit a [1, L] softmax distribution over L labels. Input and output tensors
// are allocated once and reused between calls; a mutex serialises inference,
// which is sufficient because the pipeline classifies one frame at a time.
package onnx

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/arimelio/hearken/pkg/provider/classify"
)

// ortInitOnce ensures the ONNX Runtime environment is initialised exactly
// once per process. The error is kept at package scope so later constructors
// surface the original failure instead of running against an uninitialised
// environment.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// Compile-time assertion that Classifier implements classify.Classifier.
var _ classify.Classifier = (*Classifier)(nil)

// Option is a functional option for configuring a Classifier.
type Option func(*Classifier)

// WithSharedLibrary sets the path to the onnxruntime shared library. When
// empty, the onnxruntime_go default resolution applies.
func WithSharedLibrary(path string) Option {
	return func(c *Classifier) { c.libPath = path }
}

// WithTensorNames overrides the model's input and output tensor names.
// Defaults: "input" and "output".
func WithTensorNames(input, output string) Option {
	return func(c *Classifier) {
		c.inputName = input
		c.outputName = output
	}
}

// Classifier is a native ONNX Runtime classifier.
type Classifier struct {
	labels     []string
	dimensions int
	libPath    string
	inputName  string
	outputName string

	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32] // [1, dimensions]
	outputTensor *ort.Tensor[float32] // [1, len(labels)]
	closed       bool
}

// New loads the model at modelPath. labels must list the model's output
// classes in training order; dimensions is the feature vector length the
// model expects. Any failure here is a configuration error and should be
// treated as fatal by the caller.
func New(modelPath string, labels []string, dimensions int, opts ...Option) (*Classifier, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("onnx: model path must not be empty")
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("onnx: label set must not be empty")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("onnx: feature dimensions %d is invalid", dimensions)
	}

	c := &Classifier{
		labels:     append([]string(nil), labels...),
		dimensions: dimensions,
		inputName:  "input",
		outputName: "output",
	}
	for _, o := range opts {
		o(c)
	}

	ortInitOnce.Do(func() {
		if c.libPath != "" {
			ort.SetSharedLibraryPath(c.libPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("onnx: initialise runtime: %w", ortInitErr)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dimensions)))
	if err != nil {
		return nil, fmt.Errorf("onnx: create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(labels))))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("onnx: create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{c.inputName},
		[]string{c.outputName},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil, // default session options
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("onnx: load model %q: %w", modelPath, err)
	}

	c.session = session
	c.inputTensor = inputTensor
	c.outputTensor = outputTensor
	return c, nil
}

// Labels returns the model's ordered label set.
func (c *Classifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Classify runs one inference. features must have exactly the dimensionality
// given at construction.
func (c *Classifier) Classify(ctx context.Context, features []float64) ([]classify.Score, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(features) != c.dimensions {
		return nil, fmt.Errorf("onnx: feature vector has %d dimensions, want %d", len(features), c.dimensions)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("onnx: classifier is closed")
	}

	in := c.inputTensor.GetData()
	for i, v := range features {
		in[i] = float32(v)
	}

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx: inference: %w", err)
	}

	out := c.outputTensor.GetData()
	if len(out) != len(c.labels) {
		return nil, fmt.Errorf("onnx: model emitted %d scores for %d labels", len(out), len(c.labels))
	}
	scores := make([]classify.Score, len(c.labels))
	for i, label := range c.labels {
		scores[i] = classify.Score{Label: label, Confidence: float64(out[i])}
	}
	return scores, nil
}

// Close destroys the session and tensors. Safe to call multiple times.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.session.Destroy()
	c.inputTensor.Destroy()
	c.outputTensor.Destroy()
	return nil
}
