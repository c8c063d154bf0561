// Package app wires all Hearken subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the pipeline and status server, and Shutdown
// tears everything down in order.
//
// Providers come from main.go via the config registry; tests inject mocks
// through the same Providers struct.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arimelio/hearken/internal/alert"
	"github.com/arimelio/hearken/internal/config"
	"github.com/arimelio/hearken/internal/detect"
	"github.com/arimelio/hearken/internal/health"
	"github.com/arimelio/hearken/internal/observe"
	"github.com/arimelio/hearken/internal/pipeline"
	"github.com/arimelio/hearken/internal/status"
	"github.com/arimelio/hearken/pkg/audio"
	"github.com/arimelio/hearken/pkg/provider/capture"
	"github.com/arimelio/hearken/pkg/provider/classify"
	"github.com/arimelio/hearken/pkg/provider/features"
)

// Providers holds one interface value per provider slot. All three are
// required. Populated by main.go via the config registry.
type Providers struct {
	Capture    capture.Source
	Features   features.Extractor
	Classifier classify.Classifier
}

// App owns all subsystem lifetimes and orchestrates the detection pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics

	// Subsystems — initialised in New, torn down in Shutdown.
	engine     *detect.Engine
	dispatcher *alert.Dispatcher
	worker     *alert.Worker
	controller *pipeline.Controller
	server     *status.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithMetrics injects a Metrics instance instead of using the package-level
// default. Used in tests to avoid cross-test pollution.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together.
//
// New fails when the configured label set does not match the classifier's
// output labels exactly, order included. The decision engine maps score
// positions to labels, so a mismatch would silently mislabel every
// observation; that is a configuration error, not something to limp past.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.Capture == nil || providers.Features == nil || providers.Classifier == nil {
		return nil, fmt.Errorf("app: capture, features, and classifier providers are all required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Label agreement ───────────────────────────────────────────────
	if err := a.validateLabels(); err != nil {
		return nil, err
	}

	// ── 2. Decision engine ───────────────────────────────────────────────
	engine, err := detect.NewEngine(detect.Config{
		ConfidenceThreshold: cfg.Pipeline.ConfidenceThreshold,
		Cooldown:            cfg.Pipeline.Cooldown.Std(),
		NoiseLabel:          detect.Label(cfg.Pipeline.NoiseLabel),
	})
	if err != nil {
		return nil, fmt.Errorf("app: init engine: %w", err)
	}
	a.engine = engine

	// ── 3. Alert dispatch ────────────────────────────────────────────────
	a.dispatcher, err = alert.NewDispatcher(alert.Config{
		Enabled:     cfg.Alert.Enabled,
		Endpoint:    cfg.Alert.Endpoint,
		Timeout:     cfg.Alert.Timeout.Std(),
		MinInterval: cfg.Alert.MinInterval.Std(),
		Burst:       cfg.Alert.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("app: init dispatcher: %w", err)
	}
	a.worker = alert.NewWorker(a.dispatcher,
		alert.WithQueueSize(cfg.Alert.QueueSize),
		alert.WithResultHook(func(out alert.Outcome) {
			a.metrics.RecordDispatchOutcome(context.Background(), out.Result.String())
		}),
	)

	// ── 4. Pipeline controller ───────────────────────────────────────────
	a.controller, err = pipeline.NewController(pipeline.Config{
		Source:     providers.Capture,
		Gate:       audio.Gate{Threshold: cfg.Pipeline.VolumeThreshold},
		Extractor:  providers.Features,
		Classifier: providers.Classifier,
		Engine:     engine,
		Alerts:     a.worker,
		Metrics:    a.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("app: init pipeline: %w", err)
	}

	// ── 5. Status server ─────────────────────────────────────────────────
	hh := health.New(
		health.Running("pipeline", a.controller.IsRunning),
	)
	a.server = status.NewServer(cfg.Server.ListenAddr, hh, a.controller, a.metrics)

	a.closers = append(a.closers,
		providers.Classifier.Close,
		providers.Capture.Close,
	)

	return a, nil
}

// validateLabels checks that the configured label set and the classifier's
// output labels agree exactly, order included.
func (a *App) validateLabels() error {
	want := a.cfg.Pipeline.Labels
	got := a.providers.Classifier.Labels()
	if !slices.Equal(got, want) {
		return fmt.Errorf("app: configured labels %v do not match classifier labels %v", want, got)
	}
	return nil
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the dispatch worker, the pipeline, and the status server, then
// blocks until ctx is cancelled or a component fails. On a clean shutdown it
// returns context.Canceled.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if err := a.controller.Start(gctx); err != nil {
		return fmt.Errorf("app: start pipeline: %w", err)
	}
	defer a.controller.Stop()

	g.Go(func() error { return a.worker.Run(gctx) })
	g.Go(func() error { return a.server.Run(gctx) })

	slog.Info("hearken running",
		"listen_addr", a.cfg.Server.ListenAddr,
		"labels", len(a.cfg.Pipeline.Labels),
		"alerts_enabled", a.cfg.Alert.Enabled,
	)
	return g.Wait()
}

// Controller exposes the pipeline controller, mainly for tests and the
// status surface.
func (a *App) Controller() *pipeline.Controller {
	return a.controller
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.controller.Stop()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
