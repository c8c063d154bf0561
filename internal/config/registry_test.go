package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/arimelio/hearken/internal/config"
	"github.com/arimelio/hearken/pkg/provider/capture"
	capmock "github.com/arimelio/hearken/pkg/provider/capture/mock"
	"github.com/arimelio/hearken/pkg/provider/classify"
	clsmock "github.com/arimelio/hearken/pkg/provider/classify/mock"
	"github.com/arimelio/hearken/pkg/provider/features"
	featmock "github.com/arimelio/hearken/pkg/provider/features/mock"
)

func TestRegistry_CreateCapture(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()

	var gotFrame capture.Config
	r.RegisterCapture("mock", func(_ config.ProviderEntry, frame capture.Config) (capture.Source, error) {
		gotFrame = frame
		return &capmock.Source{}, nil
	})

	frame := capture.Config{SampleRate: 22050, FrameDuration: 2 * time.Second}
	src, err := r.CreateCapture(config.ProviderEntry{Name: "mock"}, frame)
	if err != nil {
		t.Fatalf("CreateCapture: %v", err)
	}
	if src == nil {
		t.Fatal("CreateCapture returned nil source")
	}
	if gotFrame != frame {
		t.Errorf("factory received frame config %+v, want %+v", gotFrame, frame)
	}
}

func TestRegistry_CreateFeatures(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()
	r.RegisterFeatures("mock", func(config.ProviderEntry, capture.Config) (features.Extractor, error) {
		return &featmock.Extractor{Vector: []float64{1}}, nil
	})

	ext, err := r.CreateFeatures(config.ProviderEntry{Name: "mock"}, capture.Config{})
	if err != nil {
		t.Fatalf("CreateFeatures: %v", err)
	}
	if ext.Dimensions() != 1 {
		t.Errorf("dimensions = %d, want 1", ext.Dimensions())
	}
}

func TestRegistry_CreateClassifier(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()
	r.RegisterClassifier("mock", func(entry config.ProviderEntry) (classify.Classifier, error) {
		return &clsmock.Classifier{LabelsResult: []string{"Background_Noise"}}, nil
	})

	c, err := r.CreateClassifier(config.ProviderEntry{Name: "mock"})
	if err != nil {
		t.Fatalf("CreateClassifier: %v", err)
	}
	if got := c.Labels(); len(got) != 1 {
		t.Errorf("labels = %v", got)
	}
}

func TestRegistry_UnregisteredProvider(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()

	if _, err := r.CreateCapture(config.ProviderEntry{Name: "ghost"}, capture.Config{}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateCapture = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateFeatures(config.ProviderEntry{Name: "ghost"}, capture.Config{}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateFeatures = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateClassifier(config.ProviderEntry{Name: "ghost"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateClassifier = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_OverwriteRegistration(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()

	r.RegisterClassifier("x", func(config.ProviderEntry) (classify.Classifier, error) {
		return &clsmock.Classifier{LabelsResult: []string{"first"}}, nil
	})
	r.RegisterClassifier("x", func(config.ProviderEntry) (classify.Classifier, error) {
		return &clsmock.Classifier{LabelsResult: []string{"second"}}, nil
	})

	c, err := r.CreateClassifier(config.ProviderEntry{Name: "x"})
	if err != nil {
		t.Fatalf("CreateClassifier: %v", err)
	}
	if got := c.Labels(); got[0] != "second" {
		t.Errorf("labels = %v, want the later registration", got)
	}
}
