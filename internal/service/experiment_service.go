package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/preemptiveoop/trialhub/internal/events"
	"github.com/preemptiveoop/trialhub/internal/platform/logger"
	"github.com/preemptiveoop/trialhub/internal/store"
)

// ExperimentService provides experiment-related operations
type ExperimentService interface {
	// List runs filter against the store and aggregates the candidates.
	List(ctx context.Context, filter store.ExperimentFilter) (*ListResult, error)

	// Get loads one experiment together with its trials. Trials that fail
	// conversion or admission are reported in TrialFailures.
	Get(ctx context.Context, id string) (*ExperimentDetail, error)

	// Create persists a new draft experiment owned by params.Owner.
	Create(ctx context.Context, params NewExperimentParams) (domain.TypedExperiment, error)

	// Publish moves a draft experiment to PUBLISHED. Only the owner may publish.
	Publish(ctx context.Context, user, id string) (domain.TypedExperiment, error)

	// AddTrial admits a trial submitted by user and persists it. The returned
	// wire trial carries the canonical result encoding and the stored id.
	AddTrial(ctx context.Context, user, id string, params AddTrialParams) (*domain.WireTrial, error)

	// IgnoreTrials sets the ignore flag on every trial creator submitted to the
	// experiment. Only the owner may moderate.
	IgnoreTrials(ctx context.Context, user, id, creator string, ignored bool) (int, error)
}

// NewExperimentParams describes a draft experiment.
type NewExperimentParams struct {
	Owner              string
	Type               domain.ExperimentType
	Description        string
	Region             *domain.Location
	RequireLocation    bool
	RequiredNumOfTrial int
	Keywords           []string
}

// AddTrialParams is one trial submission. Result is the string encoding of
// the value, parsed with the experiment's own codec.
type AddTrialParams struct {
	Result   string
	Location *domain.Location
}

// TrialFailure reports one stored trial that could not be loaded.
type TrialFailure struct {
	Index      int
	DatabaseID string
	Err        error
}

// ExperimentDetail is an experiment with the trials that loaded.
type ExperimentDetail struct {
	Experiment domain.TypedExperiment
	// Trials are the admitted trials in submission order, with their ids.
	Trials        []domain.WireTrial
	TrialFailures []TrialFailure
}

// experimentServiceImpl implements the ExperimentService interface
type experimentServiceImpl struct {
	experiments  store.ExperimentStore
	trials       store.TrialStore
	eventEmitter events.EventEmitter
	logger       *slog.Logger
	now          func() time.Time
}

var _ ExperimentService = (*experimentServiceImpl)(nil)

// NewExperimentService creates a new ExperimentService
// It returns an error if any of the required dependencies are nil.
func NewExperimentService(
	experiments store.ExperimentStore,
	trials store.TrialStore,
	eventEmitter events.EventEmitter,
	log *slog.Logger,
) (ExperimentService, error) {
	if experiments == nil {
		return nil, &ExperimentServiceError{
			Operation: "create_service",
			Message:   "experiment store cannot be nil",
		}
	}
	if trials == nil {
		return nil, &ExperimentServiceError{
			Operation: "create_service",
			Message:   "trial store cannot be nil",
		}
	}
	if eventEmitter == nil {
		return nil, &ExperimentServiceError{
			Operation: "create_service",
			Message:   "eventEmitter cannot be nil",
		}
	}

	if log == nil {
		log = slog.Default()
	}

	return &experimentServiceImpl{
		experiments:  experiments,
		trials:       trials,
		eventEmitter: eventEmitter,
		logger:       log.With("component", "experiment_service"),
		now:          time.Now,
	}, nil
}

// List implements ExperimentService.
func (s *experimentServiceImpl) List(ctx context.Context, filter store.ExperimentFilter) (*ListResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	candidates, err := s.experiments.Query(ctx, filter)
	if err != nil {
		log.Error("failed to query experiments",
			"error", err,
			"filter", filter.String())
		return nil, NewExperimentServiceError("list_experiments", "failed to query experiments", err)
	}

	res := Aggregate(candidates)
	for _, f := range res.Failures {
		log.Warn("skipping experiment that failed conversion",
			"error", f.Err,
			"index", f.Index,
			"experiment_id", f.DatabaseID,
			"type", f.Type)
	}

	log.Debug("listed experiments",
		"filter", filter.String(),
		"candidates", len(candidates),
		"converted", len(res.Experiments),
		"failed", len(res.Failures))
	return &res, nil
}

// Get implements ExperimentService.
func (s *experimentServiceImpl) Get(ctx context.Context, id string) (*ExperimentDetail, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	exp, err := s.load(ctx, "get_experiment", id)
	if err != nil {
		return nil, err
	}

	stored, err := s.trials.ListByExperiment(ctx, id)
	if err != nil {
		log.Error("failed to list trials",
			"error", err,
			"experiment_id", id)
		return nil, NewExperimentServiceError("get_experiment", "failed to list trials", err)
	}

	detail := &ExperimentDetail{
		Experiment:    exp,
		TrialFailures: []TrialFailure{},
	}
	admittedIDs := make([]string, 0, len(stored))
	for i, w := range stored {
		if err := exp.AddWireTrial(w); err != nil {
			log.Warn("skipping trial that failed to load",
				"error", err,
				"experiment_id", id,
				"trial_id", w.DatabaseID,
				"index", i)
			detail.TrialFailures = append(detail.TrialFailures, TrialFailure{
				Index:      i,
				DatabaseID: w.DatabaseID,
				Err:        err,
			})
			continue
		}
		admittedIDs = append(admittedIDs, w.DatabaseID)
	}

	detail.Trials = exp.WireTrials()
	for i := range detail.Trials {
		detail.Trials[i].DatabaseID = admittedIDs[i]
	}

	return detail, nil
}

// Create implements ExperimentService.
func (s *experimentServiceImpl) Create(ctx context.Context, params NewExperimentParams) (domain.TypedExperiment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	wire := domain.WireExperiment{
		Type:               params.Type,
		Owner:              params.Owner,
		CreationDate:       s.timestamp(),
		Description:        params.Description,
		Region:             params.Region,
		RequireLocation:    params.RequireLocation,
		RequiredNumOfTrial: params.RequiredNumOfTrial,
		Status:             domain.ExperimentStatusDraft,
		Experimenters:      []string{},
		Keywords:           domain.NormalizeKeywords(params.Keywords),
	}

	exp, err := wire.ToTyped()
	if err != nil {
		log.Warn("rejected experiment with unsupported type",
			"error", err,
			"owner", params.Owner)
		return nil, NewExperimentServiceError("create_experiment", "unsupported experiment type", err)
	}
	if err := exp.Validate(); err != nil {
		return nil, NewExperimentServiceError("create_experiment", "invalid experiment", err)
	}

	id, err := s.experiments.Create(ctx, exp.ToWire())
	if err != nil {
		log.Error("failed to save experiment",
			"error", err,
			"owner", params.Owner)
		return nil, NewExperimentServiceError("create_experiment", "failed to save experiment", err)
	}
	exp.SetDatabaseID(id)

	log.Info("experiment created",
		"experiment_id", id,
		"owner", params.Owner,
		"type", exp.Type())

	s.emit(ctx, events.TypeExperimentCreated, id, params.Owner, map[string]any{
		"type":     exp.Type(),
		"keywords": exp.Header().Keywords,
	})
	return exp, nil
}

// Publish implements ExperimentService.
func (s *experimentServiceImpl) Publish(ctx context.Context, user, id string) (domain.TypedExperiment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	exp, err := s.loadOwned(ctx, "publish_experiment", user, id)
	if err != nil {
		return nil, err
	}

	if err := exp.Publish(); err != nil {
		return nil, NewExperimentServiceError("publish_experiment", "failed to publish experiment", err)
	}

	// The store transition is status-only, so experimenters merged by a
	// concurrent AddTrial are kept.
	if err := s.experiments.Publish(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrAlreadyPublished) && !store.IsNotFoundError(err) {
			log.Error("failed to save published experiment",
				"error", err,
				"experiment_id", id)
		}
		return nil, NewExperimentServiceError("publish_experiment", "failed to save experiment", err)
	}

	log.Info("experiment published",
		"experiment_id", id,
		"owner", user)

	s.emit(ctx, events.TypeExperimentPublished, id, user, nil)
	return exp, nil
}

// AddTrial implements ExperimentService.
func (s *experimentServiceImpl) AddTrial(
	ctx context.Context,
	user, id string,
	params AddTrialParams,
) (*domain.WireTrial, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	exp, err := s.load(ctx, "add_trial", id)
	if err != nil {
		return nil, err
	}

	if err := rejectNonFinite(exp, params.Result); err != nil {
		return nil, err
	}

	submitted := domain.WireTrial{
		Creator:      user,
		CreationDate: s.timestamp(),
		Location:     params.Location,
		ResultStr:    params.Result,
	}
	if err := exp.AddWireTrial(submitted); err != nil {
		log.Info("trial rejected",
			"error", err,
			"experiment_id", id,
			"creator", user)
		return nil, NewExperimentServiceError("add_trial", "trial rejected", err)
	}

	wires := exp.WireTrials()
	admitted := wires[len(wires)-1]

	trialID, err := s.trials.Append(ctx, id, admitted, exp.Header().Experimenters)
	if err != nil {
		log.Error("failed to save trial",
			"error", err,
			"experiment_id", id,
			"creator", user)
		return nil, NewExperimentServiceError("add_trial", "failed to save trial", err)
	}
	admitted.DatabaseID = trialID

	log.Info("trial added",
		"experiment_id", id,
		"trial_id", trialID,
		"creator", user)

	s.emit(ctx, events.TypeTrialAdded, id, user, map[string]string{
		"trial_id": trialID,
		"result":   admitted.ResultStr,
	})
	return &admitted, nil
}

// IgnoreTrials implements ExperimentService.
func (s *experimentServiceImpl) IgnoreTrials(
	ctx context.Context,
	user, id, creator string,
	ignored bool,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.loadOwned(ctx, "ignore_trials", user, id); err != nil {
		return 0, err
	}

	n, err := s.trials.SetIgnoredByCreator(ctx, id, creator, ignored)
	if err != nil {
		log.Error("failed to update trial ignore flags",
			"error", err,
			"experiment_id", id,
			"creator", creator)
		return 0, NewExperimentServiceError("ignore_trials", "failed to update trials", err)
	}

	log.Info("trial ignore flags updated",
		"experiment_id", id,
		"creator", creator,
		"ignored", ignored,
		"trials", n)

	s.emit(ctx, events.TypeTrialsIgnored, id, user, map[string]any{
		"creator": creator,
		"ignored": ignored,
		"trials":  n,
	})
	return n, nil
}

// load fetches an experiment header and converts it.
func (s *experimentServiceImpl) load(ctx context.Context, operation, id string) (domain.TypedExperiment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	wire, err := s.experiments.GetByID(ctx, id)
	if err != nil {
		if !store.IsNotFoundError(err) {
			log.Error("failed to retrieve experiment",
				"error", err,
				"experiment_id", id)
		}
		return nil, NewExperimentServiceError(operation, "failed to retrieve experiment", err)
	}

	exp, err := wire.ToTyped()
	if err != nil {
		log.Warn("stored experiment failed conversion",
			"error", err,
			"experiment_id", id)
		return nil, NewExperimentServiceError(operation, "failed to convert experiment", err)
	}
	return exp, nil
}

// loadOwned is load plus the ownership check for owner-only actions.
func (s *experimentServiceImpl) loadOwned(
	ctx context.Context,
	operation, user, id string,
) (domain.TypedExperiment, error) {
	exp, err := s.load(ctx, operation, id)
	if err != nil {
		return nil, err
	}
	if exp.Owner() != user {
		logger.FromContextOrDefault(ctx, s.logger).Warn("owner-only action refused",
			"operation", operation,
			"experiment_id", id,
			"user", user)
		return nil, ErrNotOwner
	}
	return exp, nil
}

// emit publishes an activity event. Events are best effort once the write
// is committed.
func (s *experimentServiceImpl) emit(ctx context.Context, eventType, id, actor string, payload any) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewExperimentEvent(eventType, id, actor, payload)
	if err != nil {
		log.Error("failed to create experiment event",
			"error", err,
			"event_type", eventType,
			"experiment_id", id)
		return
	}
	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit experiment event",
			"error", err,
			"event_id", event.ID,
			"event_type", eventType,
			"experiment_id", id)
	}
}

// timestamp is the current time at the precision PostgreSQL keeps.
func (s *experimentServiceImpl) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// rejectNonFinite refuses NaN and infinite measurements. Malformed input is
// left for admission to report.
func rejectNonFinite(exp domain.TypedExperiment, result string) error {
	if exp.ResultKind() != domain.ResultKindFloat {
		return nil
	}
	v, err := domain.FloatResult.Parse(result)
	if err != nil {
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: got %q", ErrNonFiniteResult, result)
	}
	return nil
}
