package service

import (
	"errors"
	"fmt"

	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/preemptiveoop/trialhub/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
var (
	// ErrNotOwner indicates the caller tried an owner-only action on an
	// experiment owned by someone else.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwner = errors.New("experiment is owned by another user")

	// ErrStaleResult is returned by ListView.Refresh when a newer refresh
	// started while this one was fetching. The result was discarded.
	ErrStaleResult = errors.New("list result superseded by a newer refresh")

	// ErrNonFiniteResult is returned when a measurement submitted through the
	// service is NaN or infinite. Such values cannot be summarized or encoded
	// in JSON responses.
	// API layer should map this to HTTP 422 Unprocessable Entity.
	ErrNonFiniteResult = errors.New("measurement result must be finite")
)

// passthrough lists the sentinels NewExperimentServiceError returns unwrapped.
var passthrough = []error{
	ErrNotOwner,
	ErrStaleResult,
	ErrNonFiniteResult,
	store.ErrNotFound,
	store.ErrInvalidFilter,
	domain.ErrMalformedResult,
	domain.ErrUnknownExperimentType,
	domain.ErrInvalidResult,
	domain.ErrMissingLocation,
	domain.ErrEmptyTrialCreator,
	domain.ErrInvalidLocation,
	domain.ErrNilTrial,
	domain.ErrValidation,
	domain.ErrAlreadyPublished,
}

// ExperimentServiceError wraps errors from the experiment service with context.
type ExperimentServiceError struct {
	// Operation is the operation that failed (e.g., "add_trial", "publish_experiment")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ExperimentServiceError.
func (e *ExperimentServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("experiment service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("experiment service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ExperimentServiceError) Unwrap() error {
	return e.Err
}

// NewExperimentServiceError creates a new ExperimentServiceError.
// Errors that match a known sentinel are returned unchanged, so joined
// admission errors keep every cause.
func NewExperimentServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if IsExpected(err) {
		return err
	}

	return &ExperimentServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// IsExpected reports whether err matches one of the sentinels callers are
// expected to handle.
func IsExpected(err error) bool {
	for _, sentinel := range passthrough {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
