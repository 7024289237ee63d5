package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/ai"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/api/shared"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Conflicts: single-active-task guard, terminal-state immutability,
	// already-decided reviews
	case errors.Is(err, store.ErrActiveTaskExists),
		errors.Is(err, store.ErrTaskFinalized),
		errors.Is(err, store.ErrUpdateFailed):
		return http.StatusConflict

	// Bad request: domain validation failures
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidOperation),
		errors.Is(err, domain.ErrNoOperations),
		errors.Is(err, domain.ErrMissingTranslateOpts),
		errors.Is(err, domain.ErrMissingPolishOpts),
		errors.Is(err, domain.ErrInvalidBatchSize),
		errors.Is(err, domain.ErrInvalidReviewStatus),
		errors.Is(err, domain.ErrTaskNotRetryable),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Upstream AI provider problems
	case errors.Is(err, ai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ai.ErrTransientFailure),
		errors.Is(err, ai.ErrInvalidResponse),
		errors.Is(err, ai.ErrEmptyResponse):
		return http.StatusBadGateway

	// Storage unavailability
	case errors.Is(err, store.ErrTransactionFailed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly message for the
// error. Internal detail stays in the logs.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrQuestionNotFound):
		return "Question not found"
	case errors.Is(err, store.ErrReviewNotFound):
		return "Review not found"
	case errors.Is(err, store.ErrTranslationNotFound):
		return "Translation not found"

	case errors.Is(err, store.ErrActiveTaskExists):
		return "Another task is already active"
	case errors.Is(err, store.ErrTaskFinalized):
		return "Task has already reached a final state"
	case errors.Is(err, store.ErrUpdateFailed):
		return "The resource was already modified"

	case errors.Is(err, domain.ErrMissingTranslateOpts):
		return "Translate operation requires source and target locales"
	case errors.Is(err, domain.ErrMissingPolishOpts):
		return "Polish operation requires a locale"
	case errors.Is(err, domain.ErrNoOperations):
		return "At least one operation is required"
	case errors.Is(err, domain.ErrInvalidOperation):
		return "Unknown operation"
	case errors.Is(err, domain.ErrInvalidBatchSize):
		return "Invalid batch size"
	case errors.Is(err, domain.ErrTaskNotRetryable):
		return "Task cannot be retried"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	case errors.Is(err, ai.ErrQuotaExceeded):
		return "AI provider quota exhausted"
	case errors.Is(err, ai.ErrTransientFailure):
		return "AI provider temporarily unavailable"
	case errors.Is(err, ai.ErrInvalidResponse),
		errors.Is(err, ai.ErrEmptyResponse):
		return "AI provider returned an unusable response"

	case errors.Is(err, store.ErrTransactionFailed):
		return "Storage unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps the error to a status code and writes a sanitized
// response. An empty userMessage falls back to GetSafeErrorMessage.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := MapErrorToStatusCode(err)
	if userMessage == "" {
		userMessage = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, userMessage, err)
}

// SanitizeValidationError reduces a validator error to a user-friendly
// message naming only the offending field and rule.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Format: "Key: 'CreateTaskRequest.BatchSize' Error:Field validation
		// for 'BatchSize' failed on the 'lte' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return "Invalid " + field + ": " + getValidationTagMessage(tag)
				}
				return "Invalid " + field
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too small"
	case "max", "lte":
		return "too large"
	case "gte":
		return "must not be negative"
	case "oneof":
		return "invalid value"
	case "dive":
		return "invalid element"
	default:
		return "validation failed"
	}
}
