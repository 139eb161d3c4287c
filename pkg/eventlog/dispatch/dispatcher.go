package dispatch

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	elerrors "github.com/randalmurphal/eventlog/pkg/eventlog/errors"
	"github.com/randalmurphal/eventlog/pkg/eventlog/observability"
	"github.com/randalmurphal/eventlog/pkg/eventlog/schema"
)

// DefaultMaxPayloadLength is the payload budget, modeled on legacy URI
// length limits.
const DefaultMaxPayloadLength = 255

// Config holds the dispatch destination and provenance.
type Config struct {
	// BaseURI is the destination handed to the transport. Empty means no
	// destination is configured and every dispatch is rejected.
	BaseURI string

	// Origin is sent as the _db provenance field.
	Origin string

	// MaxPayloadLength bounds the encoded payload, terminator included.
	// Zero or negative selects DefaultMaxPayloadLength.
	MaxPayloadLength int
}

// Transport is a one-way sender. Send must call complete exactly once when
// the send finishes, whether the destination answered or the network
// failed. Send must not block on the network.
type Transport interface {
	Send(ctx context.Context, base, payload string, complete func())
}

// Dispatcher composes, validates, encodes and sends events.
type Dispatcher struct {
	reg       *schema.Registry
	transport Transport
	cfg       Config

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics enables or disables OpenTelemetry metrics.
func WithMetrics(enabled bool) Option {
	return func(d *Dispatcher) {
		if enabled {
			d.metrics = observability.NewMetricsRecorder()
		} else {
			d.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder sets a specific metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithSpanManager sets the span manager. Use observability.NewSpanManager()
// for OpenTelemetry tracing.
func WithSpanManager(sm observability.SpanManager) Option {
	return func(d *Dispatcher) {
		d.spans = sm
	}
}

// New creates a Dispatcher that resolves schemas in reg and sends through
// transport.
func New(reg *schema.Registry, transport Transport, cfg Config, opts ...Option) *Dispatcher {
	if cfg.MaxPayloadLength <= 0 {
		cfg.MaxPayloadLength = DefaultMaxPayloadLength
	}
	d := &Dispatcher{
		reg:       reg,
		transport: transport,
		cfg:       cfg,
		logger:    slog.Default(),
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the effective configuration.
func (d *Dispatcher) Config() Config {
	return d.cfg
}

// Dispatch sends raw under the named schema and returns immediately.
//
// The stored defaults are overlaid with raw (raw wins), the result is
// validated, and the encoded payload is handed to the transport. Validation
// failures are logged and the event is still sent with _ok=false. A missing
// destination or an oversized payload rejects the result before anything
// is sent. On completion the event is appended to the schema's log.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, raw schema.Event) *Result {
	id := uuid.NewString()
	ctx, span := d.spans.StartDispatchSpan(ctx, name, id)
	logger := observability.EnrichLogger(d.logger, name, id)

	s := d.reg.Ensure(name)
	ev := raw.Overlay(s.Defaults)

	res := schema.Validate(ev, s)
	for _, issue := range res.Issues {
		observability.LogValidationIssue(logger, name, elerrors.Advisory(issue, "dispatch"))
	}
	valid := res.Valid()

	payload := EncodePayload(d.cfg.Origin, name, s.Revision, valid, ev)
	result := newResult(id, name, payload, valid)

	if d.cfg.BaseURI == "" {
		d.reject(ctx, logger, result, ev, elerrors.ErrNoDestination, "no_destination")
		d.spans.EndSpanWithError(span, result.err)
		return result
	}
	if len(payload) > d.cfg.MaxPayloadLength {
		d.reject(ctx, logger, result, ev, elerrors.ErrPayloadTooLong, "payload_too_long")
		d.spans.EndSpanWithError(span, result.err)
		return result
	}

	d.metrics.RecordDispatch(ctx, name, valid, len(payload))
	d.spans.AddSpanEvent(ctx, "transport.send",
		attribute.Int("payload_bytes", len(payload)),
		attribute.Bool("valid", valid),
	)

	elapsed := observability.TimedOperation()
	d.transport.Send(ctx, d.cfg.BaseURI, payload, func() {
		settled := result.resolve(ev, nil, func() {
			d.reg.Record(name, ev)
		})
		if settled {
			observability.LogDispatchComplete(logger, name, valid, elapsed())
		}
	})
	d.spans.EndSpanWithError(span, nil)
	return result
}

func (d *Dispatcher) reject(ctx context.Context, logger *slog.Logger, r *Result, ev schema.Event, sentinel error, reason string) {
	err := &Error{
		Schema:  r.schema,
		Event:   ev.Clone(),
		Payload: r.payload,
		Err:     sentinel,
	}
	observability.LogDispatchRejected(logger, r.schema, elerrors.Fatal(err, "dispatch"), len(r.payload))
	d.metrics.RecordRejection(ctx, r.schema, reason)
	r.resolve(nil, err, nil)
}
