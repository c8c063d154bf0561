package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/arimelio/hearken/pkg/provider/capture"
	"github.com/arimelio/hearken/pkg/provider/classify"
	"github.com/arimelio/hearken/pkg/provider/features"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	capture  map[string]func(ProviderEntry, capture.Config) (capture.Source, error)
	features map[string]func(ProviderEntry, capture.Config) (features.Extractor, error)
	classify map[string]func(ProviderEntry) (classify.Classifier, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		capture:  make(map[string]func(ProviderEntry, capture.Config) (capture.Source, error)),
		features: make(map[string]func(ProviderEntry, capture.Config) (features.Extractor, error)),
		classify: make(map[string]func(ProviderEntry) (classify.Classifier, error)),
	}
}

// RegisterCapture registers a capture source factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterCapture(name string, factory func(ProviderEntry, capture.Config) (capture.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capture[name] = factory
}

// RegisterFeatures registers a feature extractor factory under name.
func (r *Registry) RegisterFeatures(name string, factory func(ProviderEntry, capture.Config) (features.Extractor, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.features[name] = factory
}

// RegisterClassifier registers a classifier factory under name.
func (r *Registry) RegisterClassifier(name string, factory func(ProviderEntry) (classify.Classifier, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classify[name] = factory
}

// CreateCapture instantiates a capture source using the factory registered
// under entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateCapture(entry ProviderEntry, frame capture.Config) (capture.Source, error) {
	r.mu.RLock()
	factory, ok := r.capture[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: capture/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry, frame)
}

// CreateFeatures instantiates a feature extractor using the factory
// registered under entry.Name.
func (r *Registry) CreateFeatures(entry ProviderEntry, frame capture.Config) (features.Extractor, error) {
	r.mu.RLock()
	factory, ok := r.features[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: features/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry, frame)
}

// CreateClassifier instantiates a classifier using the factory registered
// under entry.Name.
func (r *Registry) CreateClassifier(entry ProviderEntry) (classify.Classifier, error) {
	r.mu.RLock()
	factory, ok := r.classify[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: classify/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
