// Package observability provides structured logging, metrics, and tracing
// for the event dispatcher and the model cache.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"

	elerrors "github.com/randalmurphal/eventlog/pkg/eventlog/errors"
)

// EnrichLogger adds schema context to a logger.
func EnrichLogger(logger *slog.Logger, schemaName, dispatchID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("schema", schemaName),
		slog.String("dispatch_id", dispatchID),
	)
}

// LogClobber logs that a registration replaced an existing schema.
func LogClobber(logger *slog.Logger, schemaName string) {
	if logger == nil {
		return
	}
	logger.Warn("clobbering existing schema",
		slog.String("schema", schemaName),
		slog.String("error", elerrors.ErrClobber.Error()),
	)
}

// LogUnknownSchema logs that an operation auto-registered an empty schema.
func LogUnknownSchema(logger *slog.Logger, schemaName, op string) {
	if logger == nil {
		return
	}
	logger.Warn("unknown schema",
		slog.String("schema", schemaName),
		slog.String("operation", op),
		slog.String("error", elerrors.ErrUnknownSchema.Error()),
	)
}

// LogValidationIssue logs a single validation failure. Validation failures
// are advisory, so this is a warning.
func LogValidationIssue(logger *slog.Logger, schemaName string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("event failed validation",
		slog.String("schema", schemaName),
		slog.String("error", err.Error()),
	)
}

// LogDispatchRejected logs a dispatch that never reached the transport.
func LogDispatchRejected(logger *slog.Logger, schemaName string, err error, payloadBytes int) {
	if logger == nil {
		return
	}
	logger.Error("dispatch rejected",
		slog.String("schema", schemaName),
		slog.String("error", err.Error()),
		slog.Int("payload_bytes", payloadBytes),
	)
}

// LogDispatchComplete logs transport completion of a dispatch.
func LogDispatchComplete(logger *slog.Logger, schemaName string, valid bool, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("dispatch completed",
		slog.String("schema", schemaName),
		slog.Bool("valid", valid),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogFetchFailed logs a failed remote model fetch (non-fatal).
func LogFetchFailed(logger *slog.Logger, model string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Warn("failed to retrieve model",
		slog.String("model", model),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogFetchComplete logs a successful remote model fetch.
func LogFetchComplete(logger *slog.Logger, model string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("retrieved model",
		slog.String("model", model),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogLockUnavailable logs that another worker is fetching the model.
func LogLockUnavailable(logger *slog.Logger, model string) {
	if logger == nil {
		return
	}
	logger.Debug("model lock held elsewhere, serving empty model",
		slog.String("model", model),
		slog.String("error", elerrors.ErrLockUnavailable.Error()),
	)
}

// LogStoreError logs a shared cache failure.
func LogStoreError(logger *slog.Logger, model, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("model cache store failed",
		slog.String("model", model),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogConfigUnset logs a configuration variable that is invalid or unset.
func LogConfigUnset(logger *slog.Logger, name string) {
	if logger == nil {
		return
	}
	logger.Debug("configuration variable is invalid or unset",
		slog.String("name", name),
	)
}

// LogConfigUnknown logs a configuration key that no setting reads.
func LogConfigUnknown(logger *slog.Logger, key string) {
	if logger == nil {
		return
	}
	logger.Warn("unknown configuration key",
		slog.String("key", key),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
