// Package alert delivers triggered detections to the configured webhook
// endpoint.
//
// Dispatch is deliberately decoupled from detection: a failed or suppressed
// delivery never feeds back into the decision engine, and the async Worker
// keeps a slow endpoint from stalling the capture loop. Every attempt is
// bounded by a short timeout, rate limited, and guarded by a circuit breaker
// so a dead endpoint costs little.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/arimelio/hearken/internal/detect"
	"github.com/arimelio/hearken/internal/resilience"
)

// defaultTimeout bounds one delivery attempt. Kept well under the frame
// duration so even inline dispatch cannot starve capture.
const defaultTimeout = 3 * time.Second

// alertKind identifies the notification type to the receiving endpoint.
const alertKind = "distress_phrase"

// Result classifies the outcome of one Dispatch call.
type Result int

const (
	// ResultDelivered means the endpoint acknowledged the alert.
	ResultDelivered Result = iota

	// ResultFailed means the attempt was made but did not succeed. The
	// alert is not retried; detection continues unaffected.
	ResultFailed

	// ResultSuppressed means no attempt was made (dispatch disabled, rate
	// limit exceeded, or queue overflow).
	ResultSuppressed
)

// String returns the human-readable name of the result.
func (r Result) String() string {
	switch r {
	case ResultDelivered:
		return "delivered"
	case ResultFailed:
		return "failed"
	case ResultSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// Outcome describes what happened to one alert.
type Outcome struct {
	AlertID string
	Result  Result
	Reason  string
	At      time.Time
}

// Config holds dispatcher settings, fixed at startup.
type Config struct {
	// Enabled turns real delivery on. When false every alert is suppressed
	// without touching the network; detection still runs normally.
	Enabled bool

	// Endpoint is the webhook URL alerts are POSTed to. Required when
	// Enabled.
	Endpoint string

	// Timeout bounds one delivery attempt. Defaults to 3s; must stay under
	// 5s.
	Timeout time.Duration

	// MinInterval is the minimum spacing between deliveries once the burst
	// allowance is spent. Zero disables rate limiting.
	MinInterval time.Duration

	// Burst is the number of back-to-back deliveries allowed before
	// MinInterval applies. Defaults to 1.
	Burst int
}

// payload is the request body sent to the endpoint.
type payload struct {
	AlertKind  string `json:"alert_kind"`
	Command    string `json:"command"`
	Confidence string `json:"confidence"`
	Timestamp  string `json:"timestamp"`
	AlertID    string `json:"alert_id"`
}

// Dispatcher delivers alerts over HTTP. Stateless across calls apart from
// the rate limiter and circuit breaker; safe for use from the single Worker
// goroutine plus inline test calls.
type Dispatcher struct {
	enabled  bool
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
}

// NewDispatcher creates a Dispatcher from cfg.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Timeout >= 5*time.Second {
		return nil, fmt.Errorf("alert: timeout %v must stay under 5s", cfg.Timeout)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Enabled {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("alert: endpoint %q is not a valid URL", cfg.Endpoint)
		}
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &Dispatcher{
		enabled:  cfg.Enabled,
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(limit, cfg.Burst),
		breaker:  resilience.NewBreaker("alert-endpoint", 3, 30*time.Second),
	}, nil
}

// Enabled reports whether real delivery is configured.
func (d *Dispatcher) Enabled() bool {
	return d.enabled
}

// Dispatch attempts to deliver one alert and reports the outcome. It never
// returns an error: delivery problems are data, not control flow, and must
// not propagate into the detection path.
func (d *Dispatcher) Dispatch(ctx context.Context, a detect.Alert) Outcome {
	out := Outcome{AlertID: a.ID, At: time.Now()}

	if !d.enabled {
		out.Result = ResultSuppressed
		out.Reason = "dispatch disabled"
		return out
	}
	if !d.limiter.Allow() {
		out.Result = ResultSuppressed
		out.Reason = "rate limited"
		return out
	}

	err := d.breaker.Execute(func() error {
		return d.post(ctx, a)
	})
	if err != nil {
		out.Result = ResultFailed
		out.Reason = err.Error()
		return out
	}
	out.Result = ResultDelivered
	return out
}

// post performs one HTTP delivery attempt.
func (d *Dispatcher) post(ctx context.Context, a detect.Alert) error {
	body, err := json.Marshal(payload{
		AlertKind:  alertKind,
		Command:    string(a.Label),
		Confidence: fmt.Sprintf("%.2f%%", a.Confidence*100),
		Timestamp:  a.At.Format(time.RFC1123),
		AlertID:    a.ID,
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()
	// The endpoint's response body is not needed, only the status.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned %s", strings.TrimSpace(resp.Status))
	}
	return nil
}
