package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arimelio/hearken/internal/detect"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"capture":  {"alsa"},
	"features": {"mfcc"},
	"classify": {"onnx", "http"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Pipeline
	if cfg.Pipeline.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.sample_rate %d must be positive", cfg.Pipeline.SampleRate))
	}
	if cfg.Pipeline.FrameDuration <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.frame_duration %v must be positive", cfg.Pipeline.FrameDuration))
	}
	if cfg.Pipeline.VolumeThreshold < 0 {
		errs = append(errs, fmt.Errorf("pipeline.volume_threshold %v must not be negative", cfg.Pipeline.VolumeThreshold))
	}
	if cfg.Pipeline.ConfidenceThreshold <= 0 || cfg.Pipeline.ConfidenceThreshold >= 1 {
		errs = append(errs, fmt.Errorf("pipeline.confidence_threshold %v must be a fraction in (0, 1)", cfg.Pipeline.ConfidenceThreshold))
	}
	if cfg.Pipeline.Cooldown <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.cooldown %v must be positive", cfg.Pipeline.Cooldown))
	}
	if err := cfg.LabelSet().Validate(detect.Label(cfg.Pipeline.NoiseLabel)); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.labels: %w", err))
	}

	// Alert
	if cfg.Alert.Enabled {
		u, err := url.Parse(cfg.Alert.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("alert.endpoint %q must be an absolute URL when alert.enabled is true", cfg.Alert.Endpoint))
		}
	}
	if cfg.Alert.Timeout.Std() >= 5*time.Second {
		errs = append(errs, fmt.Errorf("alert.timeout %v must stay under 5s", cfg.Alert.Timeout))
	}
	if cfg.Alert.Timeout < 0 {
		errs = append(errs, fmt.Errorf("alert.timeout %v must not be negative", cfg.Alert.Timeout))
	}
	if cfg.Alert.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("alert.queue_size %d must not be negative", cfg.Alert.QueueSize))
	}
	if !cfg.Alert.Enabled && cfg.Alert.Endpoint != "" {
		slog.Warn("alert.endpoint is set but alert.enabled is false; alerts will not be delivered")
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("capture", cfg.Providers.Capture.Name)
	validateProviderName("features", cfg.Providers.Features.Name)
	validateProviderName("classify", cfg.Providers.Classify.Name)

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
