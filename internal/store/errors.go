package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrQuestionNotFound, ErrTaskNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrTaskFinalized is returned when an update targets a task that has
	// already reached a terminal status. Terminal tasks are immutable.
	ErrTaskFinalized = errors.New("task already finalized")

	// ErrActiveTaskExists is returned when creating a task would violate the
	// single-active-task guard. The storage layer enforces the guard with a
	// partial unique index so concurrent creates cannot both slip through.
	ErrActiveTaskExists = errors.New("another task is already active")

	// Entity-specific "not found" errors

	// ErrQuestionNotFound indicates that the requested question does not exist.
	ErrQuestionNotFound = fmt.Errorf("%w: question", ErrNotFound)

	// ErrTranslationNotFound indicates that the requested translation does not exist.
	ErrTranslationNotFound = fmt.Errorf("%w: translation", ErrNotFound)

	// ErrReviewNotFound indicates that the requested polish review does not exist.
	ErrReviewNotFound = fmt.Errorf("%w: polish review", ErrNotFound)

	// ErrTaskNotFound indicates that the requested batch task does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: batch task", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ActiveTaskError carries the ID of the task that holds the single-flight
// guard so callers can report which task to poll instead of retrying blindly.
type ActiveTaskError struct {
	TaskID string
}

// Error implements the error interface for ActiveTaskError.
func (e *ActiveTaskError) Error() string {
	if e.TaskID == "" {
		return ErrActiveTaskExists.Error()
	}
	return fmt.Sprintf("another task is already active: %s", e.TaskID)
}

// Unwrap lets errors.Is match ErrActiveTaskExists.
func (e *ActiveTaskError) Unwrap() error {
	return ErrActiveTaskExists
}
