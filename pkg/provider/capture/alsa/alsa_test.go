package alsa

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/arimelio/hearken/pkg/provider/capture"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  capture.Config
	}{
		{"zero sample rate", capture.Config{SampleRate: 0, FrameDuration: time.Second}},
		{"negative sample rate", capture.Config{SampleRate: -1, FrameDuration: time.Second}},
		{"zero frame duration", capture.Config{SampleRate: 22050}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestArgs(t *testing.T) {
	t.Parallel()

	s, err := New(capture.Config{SampleRate: 22050, FrameDuration: 2 * time.Second},
		WithDevice("hw:1,0"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	args := s.Args()
	want := []string{"-D", "hw:1,0", "-c", "1", "-r", "22050", "-f", "S16_LE", "-t", "raw", "-q"}
	if !slices.Equal(args, want) {
		t.Errorf("Args = %v, want %v", args, want)
	}
}

func TestNextFrame_AfterClose(t *testing.T) {
	t.Parallel()

	s, err := New(capture.Config{SampleRate: 16000, FrameDuration: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Double close is a no-op.
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := s.NextFrame(context.Background()); err == nil {
		t.Error("expected error from NextFrame after Close")
	}
}

func TestNextFrame_CancelledContext(t *testing.T) {
	t.Parallel()

	s, err := New(capture.Config{SampleRate: 16000, FrameDuration: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.NextFrame(ctx); err == nil {
		t.Error("expected error from NextFrame with cancelled context")
	}
}

func TestConfig_FrameSamples(t *testing.T) {
	t.Parallel()
	cfg := capture.Config{SampleRate: 22050, FrameDuration: 2 * time.Second}
	if got := cfg.FrameSamples(); got != 44100 {
		t.Errorf("FrameSamples = %d, want 44100", got)
	}
}
