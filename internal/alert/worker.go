package alert

import (
	"context"
	"log/slog"
	"sync"

	"github.com/arimelio/hearken/internal/detect"
)

// defaultQueueSize bounds the number of alerts waiting for delivery. The
// engine's cooldown already spaces alerts far apart, so a small queue only
// overflows when the endpoint is badly stalled.
const defaultQueueSize = 8

// Worker delivers alerts asynchronously on a single goroutine so the capture
// loop never waits on the network. Alerts are enqueued non-blocking; when the
// queue is full the alert is dropped and recorded as suppressed.
type Worker struct {
	dispatcher *Dispatcher
	queue      chan detect.Alert
	onResult   func(Outcome)

	mu   sync.Mutex
	last *Outcome
}

// WorkerOption is a functional option for NewWorker.
type WorkerOption func(*Worker)

// WithQueueSize overrides the pending-alert queue capacity.
func WithQueueSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan detect.Alert, n)
		}
	}
}

// WithResultHook registers a callback invoked with every outcome, delivered
// and suppressed alike. Called from the worker goroutine (or from Enqueue for
// queue overflows); must not block.
func WithResultHook(fn func(Outcome)) WorkerOption {
	return func(w *Worker) { w.onResult = fn }
}

// NewWorker creates a Worker that delivers through d.
func NewWorker(d *Dispatcher, opts ...WorkerOption) *Worker {
	w := &Worker{
		dispatcher: d,
		queue:      make(chan detect.Alert, defaultQueueSize),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Enqueue hands an alert to the worker without blocking. It reports false
// when the queue is full, in which case the alert is dropped.
func (w *Worker) Enqueue(a detect.Alert) bool {
	select {
	case w.queue <- a:
		return true
	default:
		slog.Warn("alert queue full, dropping alert",
			"alert_id", a.ID,
			"label", a.Label,
		)
		w.record(Outcome{
			AlertID: a.ID,
			Result:  ResultSuppressed,
			Reason:  "queue full",
			At:      a.At,
		})
		return false
	}
}

// Run consumes the queue until ctx is cancelled. Intended to be launched once
// as a goroutine alongside the pipeline.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-w.queue:
			out := w.dispatcher.Dispatch(ctx, a)
			switch out.Result {
			case ResultDelivered:
				slog.Info("alert delivered",
					"alert_id", out.AlertID,
					"label", a.Label,
				)
			case ResultFailed:
				slog.Error("alert delivery failed",
					"alert_id", out.AlertID,
					"reason", out.Reason,
				)
			case ResultSuppressed:
				slog.Debug("alert suppressed",
					"alert_id", out.AlertID,
					"reason", out.Reason,
				)
			}
			w.record(out)
		}
	}
}

// LastOutcome returns the most recent outcome, nil before the first one.
func (w *Worker) LastOutcome() *Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return nil
	}
	out := *w.last
	return &out
}

func (w *Worker) record(out Outcome) {
	w.mu.Lock()
	w.last = &out
	w.mu.Unlock()
	if w.onResult != nil {
		w.onResult(out)
	}
}
