package audio

import "math"

// RMS returns the root-mean-square amplitude of samples. An empty slice has
// RMS 0.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Gate is a volume gate: a cheap energy pre-filter that decides whether a
// frame is loud enough to be worth running through feature extraction and
// classification. It is a pure function of the frame and the threshold.
type Gate struct {
	// Threshold is the minimum RMS amplitude (in normalised [-1, 1] units)
	// for a frame to pass. Calibrate against ambient noise with
	// cmd/hearken-calibrate.
	Threshold float64
}

// Passes reports whether the frame's RMS amplitude is at or above the
// threshold. A degenerate empty frame has RMS 0 and is rejected whenever the
// threshold is positive.
func (g Gate) Passes(f Frame) bool {
	return RMS(f.Samples) >= g.Threshold
}
