// Package detect implements the alert-decision core of hearken: the types
// describing per-frame classification results and the state machine that
// turns a stream of noisy observations into debounced alerts.
package detect

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultNoiseLabel is the distinguished background-noise label used when the
// configuration does not override it. Matches the class name the shipped
// models were trained with.
const DefaultNoiseLabel = Label("Background_Noise")

// Label is a class name from the classifier's fixed label set.
type Label string

// LabelSet is the ordered list of classes a classifier emits scores for.
// The ordering is part of the model contract: position i in the classifier
// output corresponds to position i here.
type LabelSet []Label

// Validate checks that the set is non-empty, free of duplicates, and contains
// the given noise label.
func (ls LabelSet) Validate(noise Label) error {
	if len(ls) == 0 {
		return fmt.Errorf("label set is empty")
	}
	seen := make(map[Label]struct{}, len(ls))
	for i, l := range ls {
		if l == "" {
			return fmt.Errorf("label %d is empty", i)
		}
		if _, ok := seen[l]; ok {
			return fmt.Errorf("label %q appears more than once", l)
		}
		seen[l] = struct{}{}
	}
	if _, ok := seen[noise]; !ok {
		return fmt.Errorf("label set does not contain the noise label %q", noise)
	}
	return nil
}

// Strings returns the set as plain strings, in order.
func (ls LabelSet) Strings() []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = string(l)
	}
	return out
}

// Observation is the top-scoring classification result for one frame: the
// unit the decision engine consumes.
type Observation struct {
	Label      Label
	Confidence float64
	At         time.Time
}

// Alert is a triggered detection. Created at most once per cooldown window
// and handed to the dispatcher; the core does not retain it.
type Alert struct {
	// ID uniquely identifies the alert across deliveries.
	ID string

	Label      Label
	Confidence float64
	At         time.Time
}

// newAlert builds an Alert from the observation that triggered it.
func newAlert(obs Observation) Alert {
	return Alert{
		ID:         uuid.NewString(),
		Label:      obs.Label,
		Confidence: obs.Confidence,
		At:         obs.At,
	}
}
