// Package audio provides the frame type and signal-level primitives shared by
// the capture, gating, and feature-extraction stages of the hearken pipeline.
//
// A Frame is the atomic unit of processing: a fixed-duration slice of mono
// PCM samples captured from the input device. Frames are consumed exactly once
// by the pipeline and never retained after the cycle that produced them.
package audio

import "time"

// Frame is a single fixed-duration chunk of mono audio.
type Frame struct {
	// Samples holds normalised amplitudes in [-1, 1].
	Samples []float32

	// SampleRate in Hz (e.g., 22050).
	SampleRate int

	// Timestamp marks when the frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the wall-clock length of the frame. A frame with an
// invalid sample rate has zero duration.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// Empty reports whether the frame carries no samples.
func (f Frame) Empty() bool {
	return len(f.Samples) == 0
}
