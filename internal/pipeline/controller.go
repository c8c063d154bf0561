// Package pipeline drives the capture-to-alert processing loop.
//
// The Controller runs a single sequential loop: read one frame, gate it on
// volume, extract features, classify, feed the decision engine, and hand any
// triggered alert to the async dispatcher. Exactly one frame is in flight at
// a time; frames arriving while a cycle is still busy are the capture
// source's problem (the arecord source simply buffers, a slow consumer loses
// audio). Per-cycle errors are recoverable: they are logged, counted, and the
// loop moves on.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arimelio/hearken/internal/alert"
	"github.com/arimelio/hearken/internal/detect"
	"github.com/arimelio/hearken/internal/observe"
	"github.com/arimelio/hearken/pkg/audio"
	"github.com/arimelio/hearken/pkg/provider/capture"
	"github.com/arimelio/hearken/pkg/provider/classify"
	"github.com/arimelio/hearken/pkg/provider/features"
)

// distributionSlack is the tolerance applied when sanity-checking that a
// score distribution sums to at most one.
const distributionSlack = 1e-6

// captureRetryDelay spaces retries after a capture failure.
const captureRetryDelay = 100 * time.Millisecond

// Config wires the Controller's collaborators. All fields except Metrics are
// required.
type Config struct {
	Source     capture.Source
	Gate       audio.Gate
	Extractor  features.Extractor
	Classifier classify.Classifier
	Engine     *detect.Engine
	Alerts     *alert.Worker

	// Metrics defaults to observe.DefaultMetrics when nil.
	Metrics *observe.Metrics
}

// Status is a read-only view of the controller for the presentation layer.
type Status struct {
	Running      bool
	Engine       detect.Snapshot
	LastDispatch *alert.Outcome
}

// Controller owns the pipeline lifecycle. Start and Stop may be called from
// any goroutine; the loop itself is single-threaded.
type Controller struct {
	cfg     Config
	metrics *observe.Metrics

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewController validates cfg and creates a stopped Controller.
func NewController(cfg Config) (*Controller, error) {
	var errs []error
	if cfg.Source == nil {
		errs = append(errs, errors.New("capture source is required"))
	}
	if cfg.Extractor == nil {
		errs = append(errs, errors.New("feature extractor is required"))
	}
	if cfg.Classifier == nil {
		errs = append(errs, errors.New("classifier is required"))
	}
	if cfg.Engine == nil {
		errs = append(errs, errors.New("decision engine is required"))
	}
	if cfg.Alerts == nil {
		errs = append(errs, errors.New("alert worker is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Controller{cfg: cfg, metrics: cfg.Metrics}, nil
}

// Start launches the processing loop. It returns an error when the
// controller is already running.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running.Load() {
		return errors.New("pipeline: already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running.Store(true)

	slog.Info("pipeline started",
		"gate_threshold", c.cfg.Gate.Threshold,
		"labels", c.cfg.Classifier.Labels(),
	)
	go c.run(runCtx)
	return nil
}

// Stop cancels the loop and waits for the in-flight cycle to finish. Safe to
// call when not running.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("pipeline stopped")
}

// IsRunning reports whether the loop is active.
func (c *Controller) IsRunning() bool {
	return c.running.Load()
}

// Status returns a consistent view of the pipeline for display.
func (c *Controller) Status() Status {
	return Status{
		Running:      c.running.Load(),
		Engine:       c.cfg.Engine.Snapshot(),
		LastDispatch: c.cfg.Alerts.LastOutcome(),
	}
}

func (c *Controller) run(ctx context.Context) {
	defer func() {
		c.running.Store(false)
		close(c.done)
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			var ce *CycleError
			if errors.As(err, &ce) {
				c.metrics.RecordCycleError(ctx, string(ce.Stage))
			}
			slog.Error("pipeline cycle failed", "error", err)

			// A broken capture source fails instantly; pause before retrying
			// so the loop does not spin.
			if ce != nil && ce.Stage == StageCapture {
				select {
				case <-ctx.Done():
					return
				case <-time.After(captureRetryDelay):
				}
			}
		}
	}
}

// cycle processes exactly one frame. A nil return means the frame was fully
// handled, whether or not it produced an alert.
func (c *Controller) cycle(ctx context.Context) error {
	frame, err := c.cfg.Source.NextFrame(ctx)
	if err != nil {
		return &CycleError{Stage: StageCapture, Err: err}
	}
	c.metrics.FramesCaptured.Add(ctx, 1)

	if !c.cfg.Gate.Passes(frame) {
		c.metrics.GateRejections.Add(ctx, 1)
		return nil
	}

	start := time.Now()
	vector, err := c.cfg.Extractor.Extract(frame)
	c.metrics.ExtractDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return &CycleError{Stage: StageExtract, Err: err}
	}

	start = time.Now()
	scores, err := c.cfg.Classifier.Classify(ctx, vector)
	c.metrics.ClassifierDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return &CycleError{Stage: StageClassify, Err: err}
	}

	top, ok := classify.Top(scores)
	if !ok {
		return &CycleError{Stage: StageClassify, Err: errors.New("classifier returned no scores")}
	}
	if sum := scoreSum(scores); sum > 1+distributionSlack {
		slog.Warn("classifier scores exceed a probability distribution",
			"sum", sum,
		)
	}

	obs := detect.Observation{
		Label:      detect.Label(top.Label),
		Confidence: top.Confidence,
		At:         time.Now(),
	}
	triggered, fired := c.cfg.Engine.Evaluate(obs)
	c.metrics.RecordObservation(ctx, top.Label, c.outcome(obs, fired))

	if !fired {
		return nil
	}
	c.metrics.RecordAlert(ctx, top.Label)
	slog.Info("alert raised",
		"alert_id", triggered.ID,
		"label", triggered.Label,
		"confidence", triggered.Confidence,
	)
	if !c.cfg.Alerts.Enqueue(*triggered) {
		return &CycleError{Stage: StageDispatch, Err: errors.New("alert queue full")}
	}
	return nil
}

// outcome maps an evaluated observation to the metric outcome attribute.
func (c *Controller) outcome(obs detect.Observation, fired bool) string {
	if fired {
		return "alert"
	}
	if c.cfg.Engine.Snapshot().State == detect.StateCooldown {
		return "cooldown"
	}
	if obs.Label == c.cfg.Engine.NoiseLabel() {
		return "noise"
	}
	return "unsure"
}

func scoreSum(scores []classify.Score) float64 {
	var sum float64
	for _, s := range scores {
		sum += s.Confidence
	}
	return sum
}
