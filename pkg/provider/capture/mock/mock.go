// Package mock provides a test double for the capture.Source interface.
//
// Use Source to script a sequence of frames (and errors) for the pipeline
// loop to consume, and to inspect how many frames were requested.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/arimelio/hearken/pkg/audio"
	"github.com/arimelio/hearken/pkg/provider/capture"
)

// ErrExhausted is returned by NextFrame once all scripted frames have been
// consumed and no Err is configured.
var ErrExhausted = errors.New("mock capture: no more frames")

// Step is a single scripted NextFrame outcome.
type Step struct {
	Frame audio.Frame
	Err   error
}

// Source is a mock implementation of capture.Source. Frames are returned in
// order; once exhausted NextFrame returns ErrExhausted.
type Source struct {
	mu sync.Mutex

	// Steps are consumed one per NextFrame call.
	Steps []Step

	// NextFrameCount is the number of NextFrame calls made.
	NextFrameCount int

	// CloseCount is the number of Close calls made.
	CloseCount int

	next int
}

// NextFrame returns the next scripted step, honouring context cancellation.
func (s *Source) NextFrame(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NextFrameCount++
	if s.next >= len(s.Steps) {
		return audio.Frame{}, ErrExhausted
	}
	step := s.Steps[s.next]
	s.next++
	return step.Frame, step.Err
}

// Close records the call.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCount++
	return nil
}

// Ensure Source implements capture.Source at compile time.
var _ capture.Source = (*Source)(nil)
