package models

import "errors"

var (
	// ErrClientInput marks a malformed request.
	ErrClientInput = errors.New("invalid request")
	// ErrUnsupportedSourceType is returned before any side effect for unknown source types.
	ErrUnsupportedSourceType = errors.New("unsupported source_type")
	// ErrEmptyQuery is returned for a query with no text.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrDependencyUnavailable marks an unreachable or unconfigured external service.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrProviderNotConfigured is returned at call time when the embedding provider lacks credentials.
	ErrProviderNotConfigured = errors.New("embedding provider not configured")

	// ErrParsing wraps every parser failure.
	ErrParsing = errors.New("failed to parse document")
	// ErrDocumentTooLarge is returned when a document exceeds the single-batch embedding limit.
	ErrDocumentTooLarge = errors.New("document too large")

	ErrJobNotFound        = errors.New("job not found")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrCollectionNotFound = errors.New("collection not found")
)

// ErrorClass is the caller-facing category of a failure.
type ErrorClass string

const (
	ClassClientInput           ErrorClass = "client_input"
	ClassDependencyUnavailable ErrorClass = "dependency_unavailable"
	ClassParsing               ErrorClass = "parsing"
	ClassTooLarge              ErrorClass = "too_large"
	ClassNotFound              ErrorClass = "not_found"
	ClassInternal              ErrorClass = "internal"
)

// Classify maps err to its class. Unknown errors are internal.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrClientInput), errors.Is(err, ErrUnsupportedSourceType), errors.Is(err, ErrEmptyQuery):
		return ClassClientInput
	case errors.Is(err, ErrDependencyUnavailable), errors.Is(err, ErrProviderNotConfigured):
		return ClassDependencyUnavailable
	case errors.Is(err, ErrParsing):
		return ClassParsing
	case errors.Is(err, ErrDocumentTooLarge):
		return ClassTooLarge
	case errors.Is(err, ErrJobNotFound):
		return ClassNotFound
	default:
		return ClassInternal
	}
}

// IsDependencyUnavailable reports whether err belongs to the dependency-unavailable class.
func IsDependencyUnavailable(err error) bool {
	return Classify(err) == ClassDependencyUnavailable
}
