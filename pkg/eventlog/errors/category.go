// Package errors defines the eventlog error taxonomy and how each kind of
// failure is surfaced.
//
// Failures fall into three categories:
//   - Advisory: logged as warnings, the operation proceeds (clobbering a
//     schema, unknown schemas, every validation failure).
//   - Fatal: surfaced to the caller, the operation is aborted (duplicate
//     registration, oversized payloads, missing destination).
//   - Fallback: logged, the consumer receives a usable default instead
//     (remote fetch failures, lock contention).
package errors

import (
	"errors"
	"fmt"
)

// Category represents how an error is surfaced.
type Category int

const (
	// CategoryAdvisory indicates the failure is reported but never aborts.
	CategoryAdvisory Category = iota

	// CategoryFatal indicates the operation was aborted and the caller sees the error.
	CategoryFatal

	// CategoryFallback indicates a default value was served in place of the result.
	CategoryFallback
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryAdvisory:
		return "advisory"
	case CategoryFatal:
		return "fatal"
	case CategoryFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error is surfaced.
	Category Category

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s)", e.Context, e.Err, e.Category)
	}
	return fmt.Sprintf("%s (category: %s)", e.Err, e.Category)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{
		Err:      err,
		Category: category,
		Context:  context,
	}
}

// Advisory creates an advisory error.
func Advisory(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryAdvisory, context)
}

// Fatal creates a fatal error.
func Fatal(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryFatal, context)
}

// Fallback creates a fallback error.
func Fallback(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryFallback, context)
}

// Categorize determines how an error is surfaced.
func Categorize(err error) Category {
	if err == nil {
		return CategoryAdvisory
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	switch {
	case errors.Is(err, ErrSchemaAlreadyExists),
		errors.Is(err, ErrPayloadTooLong),
		errors.Is(err, ErrNoDestination):
		return CategoryFatal
	case errors.Is(err, ErrRemoteFetch),
		errors.Is(err, ErrLockUnavailable):
		return CategoryFallback
	case errors.Is(err, ErrClobber),
		errors.Is(err, ErrUnknownSchema),
		errors.Is(err, ErrUnrecognizedField),
		errors.Is(err, ErrMissingField),
		errors.Is(err, ErrTypeMismatch),
		errors.Is(err, ErrEnumViolation):
		return CategoryAdvisory
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return CategoryFallback
	}
	var jsonErr *JSONParseError
	if errors.As(err, &jsonErr) {
		return CategoryFallback
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return CategoryFallback
	}

	// Unknown errors are surfaced.
	return CategoryFatal
}

// IsFatal reports whether the error aborts the operation it came from.
func IsFatal(err error) bool {
	return err != nil && Categorize(err) == CategoryFatal
}

// IsAdvisory reports whether the error is only a warning.
func IsAdvisory(err error) bool {
	return err != nil && Categorize(err) == CategoryAdvisory
}
