package api

import (
	"errors"
	"net/http"

	"github.com/preemptiveoop/trialhub/internal/api/shared"
	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/preemptiveoop/trialhub/internal/service"
	"github.com/preemptiveoop/trialhub/internal/store"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// errorMappings is checked in order; the first match decides the status code.
var errorMappings = []errorMapping{
	{service.ErrNotOwner, http.StatusForbidden, "Only the experiment owner can do this"},
	{store.ErrExperimentNotFound, http.StatusNotFound, "Experiment not found"},
	{store.ErrNotFound, http.StatusNotFound, "Resource not found"},
	{store.ErrInvalidFilter, http.StatusBadRequest, "Invalid list filter"},
	{domain.ErrUnknownExperimentType, http.StatusUnprocessableEntity, "Unsupported experiment type"},
	{domain.ErrAlreadyPublished, http.StatusUnprocessableEntity, "Experiment is already published"},
	{domain.ErrInvalidResult, http.StatusUnprocessableEntity, "Result is not accepted by this experiment"},
	{domain.ErrMissingLocation, http.StatusUnprocessableEntity, "This experiment requires a location"},
	{domain.ErrMalformedResult, http.StatusUnprocessableEntity, "Result is not a valid number for this experiment"},
	{domain.ErrInvalidLocation, http.StatusUnprocessableEntity, "Location is out of range"},
	{domain.ErrEmptyTrialCreator, http.StatusUnprocessableEntity, "Trial creator is required"},
	{service.ErrNonFiniteResult, http.StatusUnprocessableEntity, "Result must be a finite number"},
	{domain.ErrValidation, http.StatusUnprocessableEntity, "Invalid experiment"},
}

const unexpectedErrorMessage = "An unexpected error occurred"

// MapErrorToStatusCode maps service, domain and store errors to HTTP status
// codes. Unknown errors are 500.
func MapErrorToStatusCode(err error) int {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// GetSafeErrorMessage returns a client-safe message for err. It never
// includes the error text itself.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return unexpectedErrorMessage
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.message
		}
	}
	return unexpectedErrorMessage
}

// errorDetails lists the message of every known cause when err joins more
// than one, as admission errors do.
func errorDetails(err error) []string {
	var details []string
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			details = append(details, m.message)
		}
	}
	if len(details) < 2 {
		return nil
	}
	return details
}

// HandleAPIError writes the error response for err. fallback replaces the
// generic message of unexpected errors when it is not empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if details := errorDetails(err); details != nil {
		opts = append(opts, shared.WithDetails(details...))
	}
	if status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
