// Package httpapi classifies feature vectors against a remote inference
// service over HTTP.
//
// The service is expected to expose POST /v1/classify accepting
// {"features": [...]} and returning {"scores": [...]} with one confidence per
// label in the model's training order. The request timeout is bounded so a
// hung service costs at most one skipped cycle.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arimelio/hearken/pkg/provider/classify"
)

const (
	classifyPath   = "/v1/classify"
	defaultTimeout = 3 * time.Second
)

// Compile-time assertion that Classifier implements classify.Classifier.
var _ classify.Classifier = (*Classifier)(nil)

// Option is a functional option for configuring a Classifier.
type Option func(*Classifier)

// WithTimeout sets the per-request timeout. Defaults to 3s.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.client.Timeout = d }
}

// WithHTTPClient substitutes the HTTP client. Used in tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Classifier) { c.client = client }
}

// Classifier calls a remote inference service.
type Classifier struct {
	baseURL string
	labels  []string
	client  *http.Client
}

type classifyRequest struct {
	Features []float64 `json:"features"`
}

type classifyResponse struct {
	Scores []float64 `json:"scores"`
}

// New creates a Classifier for the service at baseURL
// (e.g., "http://localhost:8500"). labels must list the model's output
// classes in training order.
func New(baseURL string, labels []string, opts ...Option) (*Classifier, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("httpapi: baseURL must not be empty")
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("httpapi: label set must not be empty")
	}
	c := &Classifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		labels:  append([]string(nil), labels...),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Labels returns the ordered label set.
func (c *Classifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Classify posts the feature vector and maps the returned scores onto the
// label set.
func (c *Classifier) Classify(ctx context.Context, features []float64) ([]classify.Score, error) {
	body, err := json.Marshal(classifyRequest{Features: features})
	if err != nil {
		return nil, fmt.Errorf("httpapi: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+classifyPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpapi: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpapi: inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("httpapi: inference service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("httpapi: parse response: %w", err)
	}
	if len(parsed.Scores) != len(c.labels) {
		return nil, fmt.Errorf("httpapi: service emitted %d scores for %d labels", len(parsed.Scores), len(c.labels))
	}

	scores := make([]classify.Score, len(c.labels))
	for i, label := range c.labels {
		scores[i] = classify.Score{Label: label, Confidence: parsed.Scores[i]}
	}
	return scores, nil
}

// Close is a no-op; the classifier holds no persistent connection state.
func (c *Classifier) Close() error {
	return nil
}
