// Package observe provides application-wide observability primitives for
// Hearken: OpenTelemetry metrics, structured logging, and HTTP middleware
// that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Hearken metrics.
const meterName = "github.com/arimelio/hearken"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Pipeline counters ---

	// FramesCaptured counts audio frames read from the capture source.
	FramesCaptured metric.Int64Counter

	// GateRejections counts frames discarded by the volume gate before
	// feature extraction.
	GateRejections metric.Int64Counter

	// Observations counts classified frames. Use with attributes:
	//   attribute.String("label", ...), attribute.String("outcome", ...)
	Observations metric.Int64Counter

	// Alerts counts alerts raised by the decision engine. Use with attribute:
	//   attribute.String("label", ...)
	Alerts metric.Int64Counter

	// DispatchOutcomes counts alert delivery outcomes. Use with attribute:
	//   attribute.String("result", ...)
	DispatchOutcomes metric.Int64Counter

	// CycleErrors counts recoverable per-cycle errors. Use with attribute:
	//   attribute.String("stage", ...)
	CycleErrors metric.Int64Counter

	// --- Latency histograms ---

	// ExtractDuration tracks feature extraction latency.
	ExtractDuration metric.Float64Histogram

	// ClassifierDuration tracks classifier inference latency.
	ClassifierDuration metric.Float64Histogram

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// per-frame processing, which must finish well inside the 2s frame duration.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.FramesCaptured, err = m.Int64Counter("hearken.frames.captured",
		metric.WithDescription("Total audio frames read from the capture source."),
	); err != nil {
		return nil, err
	}
	if met.GateRejections, err = m.Int64Counter("hearken.gate.rejections",
		metric.WithDescription("Total frames discarded by the volume gate."),
	); err != nil {
		return nil, err
	}
	if met.Observations, err = m.Int64Counter("hearken.observations",
		metric.WithDescription("Total classified frames by label and outcome."),
	); err != nil {
		return nil, err
	}
	if met.Alerts, err = m.Int64Counter("hearken.alerts",
		metric.WithDescription("Total alerts raised by the decision engine, by label."),
	); err != nil {
		return nil, err
	}
	if met.DispatchOutcomes, err = m.Int64Counter("hearken.dispatch.outcomes",
		metric.WithDescription("Total alert delivery outcomes by result."),
	); err != nil {
		return nil, err
	}
	if met.CycleErrors, err = m.Int64Counter("hearken.cycle.errors",
		metric.WithDescription("Total recoverable pipeline cycle errors by stage."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.ExtractDuration, err = m.Float64Histogram("hearken.extract.duration",
		metric.WithDescription("Latency of feature extraction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ClassifierDuration, err = m.Float64Histogram("hearken.classifier.duration",
		metric.WithDescription("Latency of classifier inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("hearken.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordObservation records one classified frame with the standard attribute
// set. outcome is one of "alert", "unsure", "noise", "cooldown".
func (m *Metrics) RecordObservation(ctx context.Context, label, outcome string) {
	m.Observations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("label", label),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordAlert records one raised alert.
func (m *Metrics) RecordAlert(ctx context.Context, label string) {
	m.Alerts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("label", label)),
	)
}

// RecordDispatchOutcome records one alert delivery outcome.
func (m *Metrics) RecordDispatchOutcome(ctx context.Context, result string) {
	m.DispatchOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)),
	)
}

// RecordCycleError records one recoverable pipeline error.
func (m *Metrics) RecordCycleError(ctx context.Context, stage string) {
	m.CycleErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}
