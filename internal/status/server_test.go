package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/arimelio/hearken/internal/alert"
	"github.com/arimelio/hearken/internal/detect"
	"github.com/arimelio/hearken/internal/health"
	"github.com/arimelio/hearken/internal/observe"
	"github.com/arimelio/hearken/internal/pipeline"
)

// fakeSnapshotter returns a fixed pipeline status.
type fakeSnapshotter struct {
	status pipeline.Status
}

func (f *fakeSnapshotter) Status() pipeline.Status {
	return f.status
}

func newTestServer(t *testing.T, snap Snapshotter) *Server {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return NewServer("127.0.0.1:0", health.New(), snap, metrics)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_HealthEndpoints(t *testing.T) {
	s := newTestServer(t, &fakeSnapshotter{})

	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := get(t, s, path); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeSnapshotter{})

	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body is empty")
	}
}

func TestServer_Statusz(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	until := at.Add(10 * time.Second)
	snap := &fakeSnapshotter{status: pipeline.Status{
		Running: true,
		Engine: detect.Snapshot{
			State:         detect.StateCooldown,
			CooldownUntil: until,
			Last: &detect.Observation{
				Label:      "help me",
				Confidence: 0.92,
				At:         at,
			},
		},
		LastDispatch: &alert.Outcome{
			AlertID: "abc",
			Result:  alert.ResultDelivered,
			At:      at,
		},
	}}
	s := newTestServer(t, snap)

	rec := get(t, s, "/statusz")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /statusz = %d, want 200", rec.Code)
	}

	var view statusView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if !view.Running {
		t.Error("running = false")
	}
	if view.State != "cooldown" {
		t.Errorf("state = %q, want cooldown", view.State)
	}
	if view.CooldownUntil == nil || !view.CooldownUntil.Equal(until) {
		t.Errorf("cooldown_until = %v, want %v", view.CooldownUntil, until)
	}
	if view.LastObservation == nil || view.LastObservation.Label != "help me" {
		t.Errorf("last_observation = %+v", view.LastObservation)
	}
	if view.LastDispatch == nil || view.LastDispatch.Result != "delivered" {
		t.Errorf("last_dispatch = %+v", view.LastDispatch)
	}
}

func TestServer_StatuszIdle(t *testing.T) {
	s := newTestServer(t, &fakeSnapshotter{})

	rec := get(t, s, "/statusz")
	var view statusView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if view.State != "idle" {
		t.Errorf("state = %q, want idle", view.State)
	}
	if view.CooldownUntil != nil {
		t.Error("idle status carries a cooldown deadline")
	}
	if view.LastObservation != nil || view.LastDispatch != nil {
		t.Error("fresh status carries history")
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s := newTestServer(t, &fakeSnapshotter{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	// Give the listener a moment before cancelling.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
