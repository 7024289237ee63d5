package ai

import "errors"

// Common errors returned by the ai package and its Completer implementations.
var (
	// ErrInvalidResponse is returned when the completion response cannot be
	// parsed or is malformed beyond repair.
	ErrInvalidResponse = errors.New("invalid response from completion service")

	// ErrEmptyResponse is returned when the completion service answers with
	// no usable text at all.
	ErrEmptyResponse = errors.New("empty response from completion service")

	// ErrTransientFailure is returned for temporary upstream errors (rate
	// limiting, timeouts) once the retry budget is exhausted.
	ErrTransientFailure = errors.New("transient completion service failure")

	// ErrQuotaExceeded is returned when the provider's quota is exhausted.
	// Unlike plain rate limiting this does not resolve within a request's
	// time budget, so it is never retried.
	ErrQuotaExceeded = errors.New("completion service quota exceeded")

	// ErrInvalidConfig is returned when a Completer's configuration is invalid.
	ErrInvalidConfig = errors.New("invalid completion client configuration")
)
