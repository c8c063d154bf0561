// Package classify defines the Classifier interface for label-distribution
// inference backends.
//
// A Classifier maps a feature vector to a confidence distribution over a
// fixed, ordered label set. The label ordering is baked into the trained
// model; callers must verify at startup that it matches the configured label
// set, since a mismatch silently mislabels every detection.
//
// Classification is synchronous and runs on the pipeline loop. A model that
// cannot be loaded is a fatal startup error; a model that fails mid-run is a
// recoverable per-cycle error.
package classify

import "context"

// Score pairs one label with the model's confidence for it.
type Score struct {
	// Label is the class name, a member of the classifier's label set.
	Label string

	// Confidence in [0, 1]. Scores for one inference sum to ~1.
	Confidence float64
}

// Classifier runs inference over feature vectors.
type Classifier interface {
	// Classify returns one Score per label, in the classifier's fixed label
	// order.
	Classify(ctx context.Context, features []float64) ([]Score, error)

	// Labels returns the ordered label set the model emits scores for.
	Labels() []string

	// Close releases model resources. Calling Close more than once is safe.
	Close() error
}

// Top returns the highest-confidence score, or false if scores is empty.
func Top(scores []Score) (Score, bool) {
	if len(scores) == 0 {
		return Score{}, false
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Confidence > best.Confidence {
			best = s
		}
	}
	return best, true
}
