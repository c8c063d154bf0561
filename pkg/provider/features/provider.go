// Package features defines the Extractor interface for acoustic feature
// extraction backends.
//
// An Extractor turns a raw audio frame into a fixed-length numeric feature
// vector for the classifier. Extraction is a pure, synchronous, CPU-bound
// function; it runs on the pipeline loop between the volume gate and the
// classifier. The output dimensionality is a pipeline-wide constant that must
// match what the classifier model was trained on.
package features

import "github.com/arimelio/hearken/pkg/audio"

// Extractor converts audio frames into feature vectors.
type Extractor interface {
	// Extract computes the feature vector for one frame. Returns an error on
	// malformed input (e.g., wrong frame length); such an error is
	// recoverable and the caller skips the cycle.
	Extract(frame audio.Frame) ([]float64, error)

	// Dimensions returns the length of the vectors produced by Extract.
	Dimensions() int
}
