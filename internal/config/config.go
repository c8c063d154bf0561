// Package config provides the configuration schema, loader, and provider
// registry for the Hearken distress-phrase listener.
package config

import (
	"time"

	"github.com/arimelio/hearken/internal/detect"
)

// LogLevel controls log verbosity for the Hearken daemon.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults matching the trained model: 22050 Hz input chunked into 2 second
// frames, an RMS floor of 0.01, and an 85% confidence trigger.
const (
	DefaultSampleRate          = 22050
	DefaultFrameDuration       = 2 * time.Second
	DefaultVolumeThreshold     = 0.01
	DefaultConfidenceThreshold = 0.85
	DefaultCooldown            = 10 * time.Second
)

// DefaultLabels is the ordered label set the bundled model was trained on.
// The noise label comes first; ordering must match the classifier's output
// vector exactly.
var DefaultLabels = []string{
	string(detect.DefaultNoiseLabel),
	"Sendhelp",
	"call police",
	"help me",
	"i need help",
	"madat karo",
	"mujhe_bachao",
	"palice call martini",
}

// Config is the root configuration structure for Hearken.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Alert     AlertConfig     `yaml:"alert"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds network and logging settings for the status server.
type ServerConfig struct {
	// ListenAddr is the TCP address the status server listens on
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// PipelineConfig holds the audio and detection tuning knobs. All values are
// fixed at startup.
type PipelineConfig struct {
	// SampleRate is the capture sample rate in Hz. Must match the rate the
	// classifier's model was trained at.
	SampleRate int `yaml:"sample_rate"`

	// FrameDuration is the length of one analysis frame.
	FrameDuration Duration `yaml:"frame_duration"`

	// VolumeThreshold is the minimum RMS level a frame needs to reach the
	// classifier. Frames below it are discarded unexamined.
	VolumeThreshold float64 `yaml:"volume_threshold"`

	// ConfidenceThreshold is the fraction in (0, 1) a classification must
	// strictly exceed to raise an alert.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// Cooldown is the suppression window after each alert.
	Cooldown Duration `yaml:"cooldown"`

	// Labels is the ordered label set. It must match the classifier's
	// output ordering exactly; a mismatch is fatal at startup.
	Labels []string `yaml:"labels"`

	// NoiseLabel overrides the label treated as background noise. Defaults
	// to "Background_Noise".
	NoiseLabel string `yaml:"noise_label"`
}

// AlertConfig holds the dispatcher settings.
type AlertConfig struct {
	// Enabled turns real delivery on. When false, alerts are evaluated and
	// logged but never sent.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the webhook URL alerts are POSTed to.
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds one delivery attempt. Must stay under 5s.
	Timeout Duration `yaml:"timeout"`

	// MinInterval and Burst rate-limit deliveries.
	MinInterval Duration `yaml:"min_interval"`
	Burst       int      `yaml:"burst"`

	// QueueSize bounds the async delivery queue.
	QueueSize int `yaml:"queue_size"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	Capture  ProviderEntry `yaml:"capture"`
	Features ProviderEntry `yaml:"features"`
	Classify ProviderEntry `yaml:"classify"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "alsa", "mfcc", "onnx").
	Name string `yaml:"name"`

	// Device is the capture device identifier (e.g., "default", "hw:1,0").
	Device string `yaml:"device"`

	// ModelPath is the path to a local model file for classifier backends
	// that load one.
	ModelPath string `yaml:"model_path"`

	// Endpoint overrides a provider's network endpoint, for backends that
	// call out over HTTP.
	Endpoint string `yaml:"endpoint"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above. Values may be strings, numbers, booleans,
	// or nested maps.
	Options map[string]any `yaml:"options"`
}

// ApplyDefaults fills unset fields with the model's training-time defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Pipeline.SampleRate == 0 {
		c.Pipeline.SampleRate = DefaultSampleRate
	}
	if c.Pipeline.FrameDuration == 0 {
		c.Pipeline.FrameDuration = Duration(DefaultFrameDuration)
	}
	if c.Pipeline.VolumeThreshold == 0 {
		c.Pipeline.VolumeThreshold = DefaultVolumeThreshold
	}
	if c.Pipeline.ConfidenceThreshold == 0 {
		c.Pipeline.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.Pipeline.Cooldown == 0 {
		c.Pipeline.Cooldown = Duration(DefaultCooldown)
	}
	if len(c.Pipeline.Labels) == 0 {
		c.Pipeline.Labels = append([]string(nil), DefaultLabels...)
	}
	if c.Pipeline.NoiseLabel == "" {
		c.Pipeline.NoiseLabel = string(detect.DefaultNoiseLabel)
	}
}

// LabelSet returns the configured labels as a detect.LabelSet.
func (c *Config) LabelSet() detect.LabelSet {
	set := make(detect.LabelSet, len(c.Pipeline.Labels))
	for i, l := range c.Pipeline.Labels {
		set[i] = detect.Label(l)
	}
	return set
}
