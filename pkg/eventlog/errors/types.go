package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for schema registration and lookup.
var (
	// ErrSchemaAlreadyExists indicates a registration that refused to overwrite.
	ErrSchemaAlreadyExists = errors.New("schema already exists")

	// ErrClobber indicates a registration replaced an existing schema.
	ErrClobber = errors.New("clobbering existing schema")

	// ErrUnknownSchema indicates an operation referenced an unregistered schema.
	ErrUnknownSchema = errors.New("unknown schema")
)

// Sentinel errors for event validation.
var (
	ErrUnrecognizedField = errors.New("unrecognized field")
	ErrMissingField      = errors.New("missing field")
	ErrTypeMismatch      = errors.New("wrong type for field")
	ErrEnumViolation     = errors.New("value not in enum")
)

// Sentinel errors for dispatch.
var (
	// ErrPayloadTooLong indicates the encoded payload exceeds the configured limit.
	ErrPayloadTooLong = errors.New("request URI too long")

	// ErrNoDestination indicates no base URI is configured.
	ErrNoDestination = errors.New("no destination configured")
)

// Sentinel errors for model resolution.
var (
	// ErrRemoteFetch indicates the remote model could not be retrieved or decoded.
	ErrRemoteFetch = errors.New("remote model fetch failed")

	// ErrLockUnavailable indicates another worker holds the fetch lock.
	ErrLockUnavailable = errors.New("model lock unavailable")
)

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// JSONParseError indicates a response body was not a JSON object.
type JSONParseError struct {
	Input   string
	Message string
}

// Error implements the error interface.
func (e *JSONParseError) Error() string {
	return fmt.Sprintf("JSON parse error: %s", e.Message)
}

// TimeoutError indicates an operation timed out.
type TimeoutError struct {
	Operation string
	Duration  string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}
