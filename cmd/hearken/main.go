// Command hearken is the distress-phrase detection daemon. It listens to a
// microphone, classifies two-second audio frames, and POSTs an alert to the
// configured endpoint when a trained phrase is recognised with enough
// confidence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arimelio/hearken/internal/app"
	"github.com/arimelio/hearken/internal/config"
	"github.com/arimelio/hearken/internal/observe"
	"github.com/arimelio/hearken/pkg/provider/capture"
	"github.com/arimelio/hearken/pkg/provider/capture/alsa"
	"github.com/arimelio/hearken/pkg/provider/classify"
	"github.com/arimelio/hearken/pkg/provider/classify/httpapi"
	"github.com/arimelio/hearken/pkg/provider/classify/onnx"
	"github.com/arimelio/hearken/pkg/provider/features"
	"github.com/arimelio/hearken/pkg/provider/features/mfcc"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "hearken.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "hearken: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "hearken: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("hearken starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "hearken",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("listener ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Capture ───────────────────────────────────────────────────────────────

	reg.RegisterCapture("alsa", func(entry config.ProviderEntry, frame capture.Config) (capture.Source, error) {
		var opts []alsa.Option
		if entry.Device != "" {
			opts = append(opts, alsa.WithDevice(entry.Device))
		}
		if cmd := optString(entry.Options, "command"); cmd != "" {
			opts = append(opts, alsa.WithCommand(cmd))
		}
		return alsa.New(frame, opts...)
	})

	// ── Features ──────────────────────────────────────────────────────────────

	reg.RegisterFeatures("mfcc", func(entry config.ProviderEntry, frame capture.Config) (features.Extractor, error) {
		var opts []mfcc.Option
		if n := optInt(entry.Options, "coefficients"); n > 0 {
			opts = append(opts, mfcc.WithCoefficients(n))
		}
		if n := optInt(entry.Options, "fft_size"); n > 0 {
			opts = append(opts, mfcc.WithFFTSize(n))
		}
		if n := optInt(entry.Options, "hop_size"); n > 0 {
			opts = append(opts, mfcc.WithHopSize(n))
		}
		if n := optInt(entry.Options, "mel_bands"); n > 0 {
			opts = append(opts, mfcc.WithMelBands(n))
		}
		return mfcc.New(frame.SampleRate, frame.FrameSamples(), opts...)
	})
}

// registerClassifiers wires the classifier factories. Separate from the other
// providers because the ONNX backend needs the feature dimensionality, known
// only once the extractor exists.
func registerClassifiers(reg *config.Registry, labels []string, dimensions int) {
	reg.RegisterClassifier("onnx", func(entry config.ProviderEntry) (classify.Classifier, error) {
		var opts []onnx.Option
		if lib := optString(entry.Options, "shared_library"); lib != "" {
			opts = append(opts, onnx.WithSharedLibrary(lib))
		}
		in := optString(entry.Options, "input_tensor")
		out := optString(entry.Options, "output_tensor")
		if in != "" || out != "" {
			opts = append(opts, onnx.WithTensorNames(in, out))
		}
		return onnx.New(entry.ModelPath, labels, dimensions, opts...)
	})

	reg.RegisterClassifier("http", func(entry config.ProviderEntry) (classify.Classifier, error) {
		return httpapi.New(entry.Endpoint, labels)
	})
}

// buildProviders instantiates the capture source, feature extractor, and
// classifier named in cfg and returns them in an [app.Providers] struct.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	frame := capture.Config{
		SampleRate:    cfg.Pipeline.SampleRate,
		FrameDuration: cfg.Pipeline.FrameDuration.Std(),
	}
	ps := &app.Providers{}

	src, err := reg.CreateCapture(cfg.Providers.Capture, frame)
	if err != nil {
		return nil, fmt.Errorf("create capture provider %q: %w", cfg.Providers.Capture.Name, err)
	}
	ps.Capture = src
	slog.Info("provider created", "kind", "capture", "name", cfg.Providers.Capture.Name)

	ext, err := reg.CreateFeatures(cfg.Providers.Features, frame)
	if err != nil {
		return nil, fmt.Errorf("create features provider %q: %w", cfg.Providers.Features.Name, err)
	}
	ps.Features = ext
	slog.Info("provider created", "kind", "features", "name", cfg.Providers.Features.Name, "dimensions", ext.Dimensions())

	registerClassifiers(reg, cfg.Pipeline.Labels, ext.Dimensions())
	cls, err := reg.CreateClassifier(cfg.Providers.Classify)
	if err != nil {
		return nil, fmt.Errorf("create classify provider %q: %w", cfg.Providers.Classify.Name, err)
	}
	ps.Classifier = cls
	slog.Info("provider created", "kind", "classify", "name", cfg.Providers.Classify.Name)

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Hearken — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Capture", cfg.Providers.Capture.Name, cfg.Providers.Capture.Device)
	printProvider("Features", cfg.Providers.Features.Name, "")
	printProvider("Classify", cfg.Providers.Classify.Name, cfg.Providers.Classify.ModelPath)
	fmt.Printf("║  Phrases listened: %-19d ║\n", len(cfg.Pipeline.Labels)-1)
	fmt.Printf("║  Confidence      : %-19s ║\n", fmt.Sprintf("> %.0f%%", cfg.Pipeline.ConfidenceThreshold*100))
	fmt.Printf("║  Cooldown        : %-19s ║\n", cfg.Pipeline.Cooldown)
	if cfg.Alert.Enabled {
		printProvider("Alerts", "enabled", cfg.Alert.Endpoint)
	} else {
		printProvider("Alerts", "(disabled)", "")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, detail string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if detail != "" {
		value = name + " / " + detail
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-16s: %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// optInt extracts an integer value from a provider Options map[string]any.
// Returns 0 if the map is nil, the key is absent, or the value is not an int.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	v, ok := opts[key]
	if !ok {
		return 0
	}
	n, ok := v.(int)
	if !ok {
		return 0
	}
	return n
}
