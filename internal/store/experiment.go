package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/preemptiveoop/trialhub/internal/domain"
)

// FilterKind selects which experiments a Query returns.
type FilterKind string

const (
	// FilterOwner matches experiments whose owner equals the value.
	FilterOwner FilterKind = "owner"
	// FilterParticipant matches experiments whose experimenters contain the value.
	FilterParticipant FilterKind = "participant"
	// FilterKeyword matches published experiments whose keywords contain the value.
	FilterKeyword FilterKind = "keyword"
)

// ExperimentFilter is one of the three list queries the presentation layer issues.
type ExperimentFilter struct {
	Kind  FilterKind
	Value string
}

// OwnerEquals lists the experiments a user owns.
func OwnerEquals(username string) ExperimentFilter {
	return ExperimentFilter{Kind: FilterOwner, Value: username}
}

// ParticipantsContain lists the experiments a user has contributed trials to.
func ParticipantsContain(username string) ExperimentFilter {
	return ExperimentFilter{Kind: FilterParticipant, Value: username}
}

// KeywordPublished lists published experiments tagged with keyword. Keywords are
// stored normalized, so the value is lower-cased and trimmed here.
func KeywordPublished(keyword string) ExperimentFilter {
	return ExperimentFilter{Kind: FilterKeyword, Value: strings.ToLower(strings.TrimSpace(keyword))}
}

// Validate reports ErrInvalidFilter for an unknown kind or an empty value.
func (f ExperimentFilter) Validate() error {
	switch f.Kind {
	case FilterOwner, FilterParticipant, FilterKeyword:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidFilter, f.Kind)
	}
	if f.Value == "" {
		return fmt.Errorf("%w: %s filter needs a value", ErrInvalidFilter, f.Kind)
	}
	return nil
}

// String renders the filter for logs.
func (f ExperimentFilter) String() string {
	return string(f.Kind) + "=" + f.Value
}

// ExperimentStore defines the interface for experiment persistence.
// Experiments cross this boundary in wire form; records whose type tag is not
// registered are still returned so the caller can report them.
type ExperimentStore interface {
	// Query returns the experiments matching filter in unspecified order.
	// Returns ErrInvalidFilter if the filter is malformed.
	Query(ctx context.Context, filter ExperimentFilter) ([]domain.WireExperiment, error)

	// GetByID retrieves an experiment header by its id.
	// Returns ErrExperimentNotFound if the experiment does not exist.
	GetByID(ctx context.Context, id string) (*domain.WireExperiment, error)

	// Create saves a new experiment and returns the id assigned by the store.
	// Any DatabaseID already set on exp is ignored.
	Create(ctx context.Context, exp domain.WireExperiment) (string, error)

	// Publish moves a draft experiment to PUBLISHED. Only the status column is
	// written, so experimenters merged by a concurrent TrialStore.Append survive.
	// Returns domain.ErrAlreadyPublished if the experiment is not a draft and
	// ErrExperimentNotFound if it does not exist.
	Publish(ctx context.Context, id string) error

	// WithTx returns a new ExperimentStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) ExperimentStore
}

// TrialStore defines the interface for persisting the trials sub-collection of
// an experiment.
type TrialStore interface {
	// Append stores trial under experimentID and replaces the experiment's
	// experimenter set with experimenters, returning the new trial id.
	// Both writes happen atomically: implementations open a transaction when
	// they are not already bound to one.
	// Returns ErrExperimentNotFound if the experiment does not exist.
	Append(ctx context.Context, experimentID string, trial domain.WireTrial, experimenters []string) (string, error)

	// ListByExperiment returns every trial of an experiment in submission order.
	// Returns an empty slice if the experiment has no trials.
	ListByExperiment(ctx context.Context, experimentID string) ([]domain.WireTrial, error)

	// SetIgnoredByCreator sets the ignore flag on every trial creator submitted
	// to the experiment and returns how many trials were touched.
	SetIgnoredByCreator(ctx context.Context, experimentID, creator string, ignored bool) (int, error)

	// WithTx returns a new TrialStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TrialStore
}
