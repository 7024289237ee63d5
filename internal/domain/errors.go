// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidOperation is returned when an operation kind is unknown or
	// is missing the parameters its executor needs.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidTaskStatus is returned when a task status is not valid.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrTaskFinalized is returned when a mutation is attempted on a task
	// that has already reached a terminal status.
	ErrTaskFinalized = errors.New("task already finalized")

	// ErrTaskNotRetryable is returned when a retry is requested for a task
	// that is still active, targeted the whole question table, or has no
	// unprocessed questions left.
	ErrTaskNotRetryable = errors.New("task cannot be retried")

	// ErrInvalidStageTag is returned when a stage tag is not one of the
	// known values.
	ErrInvalidStageTag = errors.New("invalid stage tag")

	// ErrInvalidReviewStatus is returned when a polish review status is not valid.
	ErrInvalidReviewStatus = errors.New("invalid review status")
)
