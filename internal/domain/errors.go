package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of all entity validation errors; the
// specific errors below wrap it so callers can match either the exact
// failure or the whole class.
var ErrValidation = errors.New("validation failed")

// Validation errors for Job.
var (
	ErrEmptyJobID       = fmt.Errorf("%w: job ID cannot be empty", ErrValidation)
	ErrEmptyJobPayload  = fmt.Errorf("%w: job payload cannot be empty", ErrValidation)
	ErrInvalidJobStatus = fmt.Errorf("%w: invalid job status", ErrValidation)
)
