package domain

import "errors"

// Conversion errors are reported per record: one bad record never aborts a batch.
var (
	// ErrMalformedResult is returned when a wire trial's result string cannot be
	// parsed into the numeric type of the target experiment.
	ErrMalformedResult = errors.New("malformed trial result")

	// ErrUnknownExperimentType is returned when a wire experiment carries a
	// discriminant that is not registered in the variant catalog.
	ErrUnknownExperimentType = errors.New("unknown experiment type")
)

// Admission errors are reported per call: they reject one AddTrial invocation
// and leave the experiment unchanged.
var (
	// ErrInvalidResult is returned when a trial result fails the admission
	// predicate of the experiment variant.
	ErrInvalidResult = errors.New("trial result rejected by experiment")

	// ErrMissingLocation is returned when an experiment requires a location
	// and the trial does not carry one.
	ErrMissingLocation = errors.New("trial location is required")

	// ErrEmptyTrialCreator is returned when a trial has no creator.
	ErrEmptyTrialCreator = errors.New("trial creator cannot be empty")

	// ErrInvalidLocation is returned when a coordinate is out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrNilTrial is returned when AddTrial receives a nil trial.
	ErrNilTrial = errors.New("trial cannot be nil")
)

// Lifecycle and header errors.
var (
	// ErrValidation is returned when an experiment header fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyPublished is returned when publishing an experiment that is
	// not a draft.
	ErrAlreadyPublished = errors.New("experiment already published")
)
