package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records eventlog metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records an event handed to the transport.
	RecordDispatch(ctx context.Context, schemaName string, valid bool, payloadBytes int)

	// RecordRejection records a dispatch aborted before transmission.
	RecordRejection(ctx context.Context, schemaName string, reason string)

	// RecordModelLookup records the outcome of a model cache lookup.
	RecordModelLookup(ctx context.Context, model string, outcome string)

	// RecordFetch records a remote model fetch and its latency.
	RecordFetch(ctx context.Context, model string, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatches   metric.Int64Counter
	rejections   metric.Int64Counter
	payloadBytes metric.Int64Histogram
	lookups      metric.Int64Counter
	fetchLatency metric.Float64Histogram
	fetchErrors  metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("eventlog")

	dispatches, err := meter.Int64Counter("eventlog.dispatch.events",
		metric.WithDescription("Number of events handed to the transport"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter("eventlog.dispatch.rejections",
		metric.WithDescription("Number of dispatches rejected before transmission"),
	)
	if err != nil {
		return nil, err
	}

	payloadBytes, err := meter.Int64Histogram("eventlog.dispatch.payload_bytes",
		metric.WithDescription("Encoded payload size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	lookups, err := meter.Int64Counter("eventlog.modelcache.lookups",
		metric.WithDescription("Number of model cache lookups by outcome"),
	)
	if err != nil {
		return nil, err
	}

	fetchLatency, err := meter.Float64Histogram("eventlog.modelcache.fetch.latency_ms",
		metric.WithDescription("Remote model fetch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	fetchErrors, err := meter.Int64Counter("eventlog.modelcache.fetch.errors",
		metric.WithDescription("Number of failed remote model fetches"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatches:   dispatches,
		rejections:   rejections,
		payloadBytes: payloadBytes,
		lookups:      lookups,
		fetchLatency: fetchLatency,
		fetchErrors:  fetchErrors,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordDispatch records an event handed to the transport.
func (m *otelMetrics) RecordDispatch(ctx context.Context, schemaName string, valid bool, payloadBytes int) {
	attrs := []attribute.KeyValue{
		attribute.String("schema", schemaName),
		attribute.Bool("valid", valid),
	}
	m.dispatches.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.payloadBytes.Record(ctx, int64(payloadBytes), metric.WithAttributes(attrs...))
}

// RecordRejection records a rejected dispatch.
func (m *otelMetrics) RecordRejection(ctx context.Context, schemaName string, reason string) {
	m.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("schema", schemaName),
		attribute.String("reason", reason),
	))
}

// RecordModelLookup records a model cache lookup.
func (m *otelMetrics) RecordModelLookup(ctx context.Context, model string, outcome string) {
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	))
}

// RecordFetch records a remote model fetch.
func (m *otelMetrics) RecordFetch(ctx context.Context, model string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("model", model),
	}
	m.fetchLatency.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(attrs...))
	if err != nil {
		m.fetchErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
