// Package capture defines the Source interface for audio frame acquisition
// backends.
//
// A Source yields fixed-duration mono frames at a fixed sample rate. NextFrame
// blocks for one frame duration by the nature of live audio capture; this is
// the only deliberately blocking call in the pipeline cycle. Sources are used
// from a single goroutine (the pipeline loop) and need not be safe for
// concurrent use.
package capture

import (
	"context"
	"time"

	"github.com/arimelio/hearken/pkg/audio"
)

// Config fixes the frame geometry of a capture stream. Both values are
// immutable for the lifetime of the Source.
type Config struct {
	// SampleRate in Hz. Must match what the classifier's feature extractor
	// was built for.
	SampleRate int

	// FrameDuration is the wall-clock length of each frame.
	FrameDuration time.Duration
}

// FrameSamples returns the number of samples in one frame.
func (c Config) FrameSamples() int {
	return int(float64(c.SampleRate) * c.FrameDuration.Seconds())
}

// Source acquires audio frames from an input device.
type Source interface {
	// NextFrame blocks until a full frame has been captured and returns it.
	// Returns an error if the underlying device is unavailable or the context
	// is cancelled. A capture error is recoverable: the caller may retry on
	// the next cycle.
	NextFrame(ctx context.Context) (audio.Frame, error)

	// Close releases the input device. After Close, NextFrame returns errors.
	// Calling Close more than once is safe.
	Close() error
}
