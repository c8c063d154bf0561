// Package mock provides a test double for the features.Extractor interface.
package mock

import (
	"sync"

	"github.com/arimelio/hearken/pkg/audio"
	"github.com/arimelio/hearken/pkg/provider/features"
)

// ExtractCall records a single invocation of Extractor.Extract.
type ExtractCall struct {
	// Frame is the frame passed to Extract.
	Frame audio.Frame
}

// Extractor is a mock implementation of features.Extractor.
type Extractor struct {
	mu sync.Mutex

	// Vector is returned by every Extract call.
	Vector []float64

	// ExtractErr, if non-nil, is returned by every Extract call.
	ExtractErr error

	// Dims is returned by Dimensions. If zero, len(Vector) is used.
	Dims int

	// ExtractCalls records every call to Extract in order.
	ExtractCalls []ExtractCall
}

// Extract records the call and returns Vector, ExtractErr.
func (e *Extractor) Extract(frame audio.Frame) ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ExtractCalls = append(e.ExtractCalls, ExtractCall{Frame: frame})
	if e.ExtractErr != nil {
		return nil, e.ExtractErr
	}
	return e.Vector, nil
}

// Dimensions returns Dims, or len(Vector) when Dims is zero.
func (e *Extractor) Dimensions() int {
	if e.Dims != 0 {
		return e.Dims
	}
	return len(e.Vector)
}

// Ensure Extractor implements features.Extractor at compile time.
var _ features.Extractor = (*Extractor)(nil)
