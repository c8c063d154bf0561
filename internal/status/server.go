// Package status serves the read-only HTTP surface: health probes,
// Prometheus metrics, and a JSON snapshot of the pipeline.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arimelio/hearken/internal/alert"
	"github.com/arimelio/hearken/internal/health"
	"github.com/arimelio/hearken/internal/observe"
	"github.com/arimelio/hearken/internal/pipeline"
)

// shutdownTimeout bounds graceful server shutdown.
const shutdownTimeout = 5 * time.Second

// Snapshotter provides the pipeline view rendered by /statusz.
type Snapshotter interface {
	Status() pipeline.Status
}

// Server hosts /healthz, /readyz, /metrics, and /statusz.
type Server struct {
	srv *http.Server
}

// observationView is the /statusz rendering of the last classified frame.
type observationView struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// dispatchView is the /statusz rendering of the last delivery outcome.
type dispatchView struct {
	AlertID string    `json:"alert_id"`
	Result  string    `json:"result"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// statusView is the /statusz response body.
type statusView struct {
	Running         bool             `json:"running"`
	State           string           `json:"state"`
	CooldownUntil   *time.Time       `json:"cooldown_until,omitempty"`
	LastObservation *observationView `json:"last_observation,omitempty"`
	LastDispatch    *dispatchView    `json:"last_dispatch,omitempty"`
}

// NewServer builds the HTTP server. All handlers are wrapped in the metrics
// middleware; the health handler carries the readiness checkers.
func NewServer(addr string, hh *health.Handler, snap Snapshotter, metrics *observe.Metrics) *Server {
	mux := http.NewServeMux()
	hh.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /statusz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, renderStatus(snap.Status()))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           observe.Middleware(metrics)(mux),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("status server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// Handler exposes the assembled handler for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func renderStatus(st pipeline.Status) statusView {
	view := statusView{
		Running: st.Running,
		State:   st.Engine.State.String(),
	}
	if !st.Engine.CooldownUntil.IsZero() {
		until := st.Engine.CooldownUntil
		view.CooldownUntil = &until
	}
	if obs := st.Engine.Last; obs != nil {
		view.LastObservation = &observationView{
			Label:      string(obs.Label),
			Confidence: obs.Confidence,
			At:         obs.At,
		}
	}
	if out := st.LastDispatch; out != nil {
		view.LastDispatch = renderDispatch(out)
	}
	return view
}

func renderDispatch(out *alert.Outcome) *dispatchView {
	return &dispatchView{
		AlertID: out.AlertID,
		Result:  out.Result.String(),
		Reason:  out.Reason,
		At:      out.At,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
