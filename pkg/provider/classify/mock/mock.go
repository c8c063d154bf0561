// Package mock provides a test double for the classify.Classifier interface.
//
// Script per-call results via Results; when Results is exhausted the mock
// falls back to ScoresResult/ClassifyErr for every remaining call.
package mock

import (
	"context"
	"sync"

	"github.com/arimelio/hearken/pkg/provider/classify"
)

// ClassifyCall records a single invocation of Classifier.Classify.
type ClassifyCall struct {
	// Features is a copy of the vector passed to Classify.
	Features []float64
}

// Step is a scripted per-call result.
type Step struct {
	Scores []classify.Score
	Err    error
}

// Classifier is a mock implementation of classify.Classifier.
type Classifier struct {
	mu sync.Mutex

	// LabelsResult is returned by Labels.
	LabelsResult []string

	// Results, when non-empty, are consumed one per Classify call.
	Results []Step

	// ScoresResult is returned by Classify once Results is exhausted.
	ScoresResult []classify.Score

	// ClassifyErr, if non-nil, is returned by Classify once Results is
	// exhausted.
	ClassifyErr error

	// ClassifyCalls records every call to Classify in order.
	ClassifyCalls []ClassifyCall

	// CloseCount is the number of Close calls made.
	CloseCount int

	next int
}

// Classify records the call and returns the next scripted result.
func (c *Classifier) Classify(_ context.Context, features []float64) ([]classify.Score, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := append([]float64(nil), features...)
	c.ClassifyCalls = append(c.ClassifyCalls, ClassifyCall{Features: cp})

	if c.next < len(c.Results) {
		step := c.Results[c.next]
		c.next++
		return step.Scores, step.Err
	}
	if c.ClassifyErr != nil {
		return nil, c.ClassifyErr
	}
	return c.ScoresResult, nil
}

// Labels returns LabelsResult.
func (c *Classifier) Labels() []string {
	return c.LabelsResult
}

// Close records the call.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CloseCount++
	return nil
}

// Ensure Classifier implements classify.Classifier at compile time.
var _ classify.Classifier = (*Classifier)(nil)
