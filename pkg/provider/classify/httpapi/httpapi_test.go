package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testLabels = []string{"Background_Noise", "help me", "call police"}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New("", testLabels); err == nil {
		t.Error("expected error for empty baseURL")
	}
	if _, err := New("http://localhost:8500", nil); err == nil {
		t.Error("expected error for empty label set")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/classify" {
			t.Errorf("path = %q, want /v1/classify", r.URL.Path)
		}
		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Features) != 40 {
			t.Errorf("features length = %d, want 40", len(req.Features))
		}
		json.NewEncoder(w).Encode(classifyResponse{Scores: []float64{0.05, 0.9, 0.05}})
	}))
	defer srv.Close()

	c, err := New(srv.URL, testLabels)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	scores, err := c.Classify(context.Background(), make([]float64, 40))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("scores length = %d, want 3", len(scores))
	}
	if scores[1].Label != "help me" || scores[1].Confidence != 0.9 {
		t.Errorf("scores[1] = %+v, want {help me 0.9}", scores[1])
	}
}

func TestClassify_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := New(srv.URL, testLabels)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Classify(context.Background(), make([]float64, 40)); err == nil {
		t.Error("expected error for 503 response")
	}
}

func TestClassify_ScoreCountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(classifyResponse{Scores: []float64{1.0}})
	}))
	defer srv.Close()

	c, err := New(srv.URL, testLabels)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Classify(context.Background(), make([]float64, 40)); err == nil {
		t.Error("expected error for score/label count mismatch")
	}
}

func TestClassify_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New(srv.URL, testLabels, WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Classify(context.Background(), make([]float64, 40)); err == nil {
		t.Error("expected timeout error")
	}
}
