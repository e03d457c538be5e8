package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/workflowlens/runner-api/internal/domain"
	"github.com/workflowlens/runner-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes.
// Unknown errors map to 500 so internal error types never leak through
// the status line.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrJobNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict

	case errors.Is(err, store.ErrNoPendingJobs):
		return http.StatusNoContent

	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrJobNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Job not found"

	case errors.Is(err, store.ErrConflict):
		return "Job state changed concurrently"

	case errors.Is(err, store.ErrStoreUnavailable):
		return "Store temporarily unavailable"

	case errors.Is(err, domain.ErrEmptyJobPayload):
		return "Job payload cannot be empty"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid job data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError converts validator errors into a short
// user-facing message without echoing internal struct paths.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'ClaimRequest.WorkerID' Error:Field validation
		// for 'WorkerID' failed on the 'required' tag"
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
					return fmt.Sprintf("Invalid %s: %s", field, validationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
