package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/preemptiveoop/trialhub/internal/events"
	"github.com/preemptiveoop/trialhub/internal/mocks"
	"github.com/preemptiveoop/trialhub/internal/platform/logger"
	"github.com/preemptiveoop/trialhub/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEventEmitter is a mock implementation of events.EventEmitter
type MockEventEmitter struct {
	mock.Mock
}

func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.ExperimentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var fixedNow = time.Date(2021, 6, 1, 12, 30, 45, 123456789, time.UTC)

type fixture struct {
	svc         *experimentServiceImpl
	experiments *mocks.MockExperimentStore
	trials      *mocks.MockTrialStore
	emitter     *MockEventEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	experiments := mocks.NewMockExperimentStore()
	trials := mocks.NewMockTrialStore(experiments)
	emitter := &MockEventEmitter{}
	emitter.On("EmitEvent", mock.Anything, mock.Anything).Return(nil).Maybe()

	log, _ := logger.NewTestLogger()
	svc, err := NewExperimentService(experiments, trials, emitter, log)
	require.NoError(t, err)

	impl := svc.(*experimentServiceImpl)
	impl.now = func() time.Time { return fixedNow }

	return &fixture{svc: impl, experiments: experiments, trials: trials, emitter: emitter}
}

func (f *fixture) create(t *testing.T, typ domain.ExperimentType, requireLocation bool) string {
	t.Helper()
	exp, err := f.svc.Create(context.Background(), NewExperimentParams{
		Owner:              "alice",
		Type:               typ,
		Description:        "test experiment",
		RequireLocation:    requireLocation,
		RequiredNumOfTrial: 2,
		Keywords:           []string{"Coin"},
	})
	require.NoError(t, err)
	return exp.DatabaseID()
}

func eventOfType(eventType, id string) interface{} {
	return mock.MatchedBy(func(e *events.ExperimentEvent) bool {
		return e.Type == eventType && e.ExperimentID == id
	})
}

func TestNewExperimentService_Validation(t *testing.T) {
	t.Parallel()

	experiments := mocks.NewMockExperimentStore()
	trials := mocks.NewMockTrialStore(experiments)
	emitter := &MockEventEmitter{}

	tests := []struct {
		name        string
		experiments store.ExperimentStore
		trials      store.TrialStore
		emitter     events.EventEmitter
		wantMessage string
	}{
		{"nil experiment store", nil, trials, emitter, "experiment store cannot be nil"},
		{"nil trial store", experiments, nil, emitter, "trial store cannot be nil"},
		{"nil emitter", experiments, trials, nil, "eventEmitter cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewExperimentService(tt.experiments, tt.trials, tt.emitter, nil)
			assert.Nil(t, svc)

			var svcErr *ExperimentServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, tt.wantMessage, svcErr.Message)
		})
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	exp, err := f.svc.Create(ctx, NewExperimentParams{
		Owner:              "alice",
		Type:               domain.ExperimentTypeMeasurement,
		Description:        "boiling point",
		Region:             &domain.Location{Latitude: 53.5, Longitude: -113.5},
		RequiredNumOfTrial: 10,
		Keywords:           []string{" Water", "BOIL", "water"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, exp.DatabaseID())
	assert.Equal(t, domain.ExperimentStatusDraft, exp.Status())
	assert.Equal(t, domain.ExperimentTypeMeasurement, exp.Type())
	assert.True(t, exp.CreationDate().Equal(fixedNow.Truncate(time.Microsecond)))

	stored, err := f.experiments.GetByID(ctx, exp.DatabaseID())
	require.NoError(t, err)
	assert.Equal(t, exp.ToWire(), *stored)
	assert.Equal(t, []string{"water", "boil"}, stored.Keywords)
	assert.Empty(t, stored.Experimenters)

	f.emitter.AssertCalled(t, "EmitEvent", mock.Anything, eventOfType(events.TypeExperimentCreated, exp.DatabaseID()))
}

func TestCreate_Rejections(t *testing.T) {
	t.Parallel()

	t.Run("unknown type", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(context.Background(), NewExperimentParams{Owner: "alice", Type: "BINOMIAL"})
		assert.ErrorIs(t, err, domain.ErrUnknownExperimentType)
	})

	t.Run("invalid header", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(context.Background(), NewExperimentParams{
			Owner:              "alice",
			Type:               domain.ExperimentTypeCount,
			RequiredNumOfTrial: -1,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		cause := errors.New("disk full")
		f.experiments.CreateError = cause

		_, err := f.svc.Create(context.Background(), NewExperimentParams{Owner: "alice", Type: domain.ExperimentTypeCount})

		var svcErr *ExperimentServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "create_experiment", svcErr.Operation)
		assert.ErrorIs(t, err, cause)
		f.emitter.AssertNotCalled(t, "EmitEvent", mock.Anything, mock.Anything)
	})
}

func TestPublish(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, domain.ExperimentTypeCount, false)

	_, err := f.svc.Publish(ctx, "mallory", id)
	assert.ErrorIs(t, err, ErrNotOwner)

	exp, err := f.svc.Publish(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentStatusPublished, exp.Status())

	stored, err := f.experiments.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentStatusPublished, stored.Status)

	_, err = f.svc.Publish(ctx, "alice", id)
	assert.ErrorIs(t, err, domain.ErrAlreadyPublished)

	_, err = f.svc.Publish(ctx, "alice", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	f.emitter.AssertCalled(t, "EmitEvent", mock.Anything, eventOfType(events.TypeExperimentPublished, id))
}

func TestPublish_KeepsContributorJoiningMidPublish(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, domain.ExperimentTypeCount, false)

	snapshot, err := f.experiments.GetByID(ctx, id)
	require.NoError(t, err)

	// The first read hands Publish the header from before bob's trial, then
	// lets bob's trial land before Publish writes.
	raced := false
	f.experiments.GetByIDFn = func(ctx context.Context, got string) (*domain.WireExperiment, error) {
		stale := *snapshot
		if !raced {
			raced = true
			_, err := f.svc.AddTrial(ctx, "bob", id, AddTrialParams{Result: "3"})
			require.NoError(t, err)
		}
		return &stale, nil
	}

	_, err = f.svc.Publish(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, 1, f.experiments.PublishCalls)

	res, err := f.svc.List(ctx, store.ParticipantsContain("bob"))
	require.NoError(t, err)
	require.Len(t, res.Experiments, 1)
	assert.Equal(t, domain.ExperimentStatusPublished, res.Experiments[0].Status())
}

func TestPublish_StoreRefusesSecondTransition(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, domain.ExperimentTypeCount, false)

	// Another publish won the race after this one read the draft.
	f.experiments.PublishFn = func(ctx context.Context, got string) error {
		return domain.ErrAlreadyPublished
	}

	_, err := f.svc.Publish(ctx, "alice", id)
	assert.ErrorIs(t, err, domain.ErrAlreadyPublished)
	f.emitter.AssertNotCalled(t, "EmitEvent", mock.Anything, eventOfType(events.TypeExperimentPublished, id))
}

func TestAddTrial(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, domain.ExperimentTypeNonNegativeCount, false)

	trial, err := f.svc.AddTrial(ctx, "bob", id, AddTrialParams{Result: " 7 "})
	require.NoError(t, err)
	assert.NotEmpty(t, trial.DatabaseID)
	assert.Equal(t, "7", trial.ResultStr, "stored result uses the canonical encoding")
	assert.Equal(t, "bob", trial.Creator)
	assert.True(t, trial.CreationDate.Equal(fixedNow.Truncate(time.Microsecond)))

	_, err = f.svc.AddTrial(ctx, "carol", id, AddTrialParams{Result: "2"})
	require.NoError(t, err)
	_, err = f.svc.AddTrial(ctx, "bob", id, AddTrialParams{Result: "3"})
	require.NoError(t, err)

	stored, err := f.experiments.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, stored.Experimenters)

	trials, err := f.trials.ListByExperiment(ctx, id)
	require.NoError(t, err)
	require.Len(t, trials, 3)
	assert.Equal(t, trial.DatabaseID, trials[0].DatabaseID)

	f.emitter.AssertCalled(t, "EmitEvent", mock.Anything, eventOfType(events.TypeTrialAdded, id))
}

func TestAddTrial_Rejections(t *testing.T) {
	t.Parallel()

	here := &domain.Location{Latitude: 10, Longitude: 10}

	tests := []struct {
		name            string
		typ             domain.ExperimentType
		requireLocation bool
		params          AddTrialParams
		wantErrs        []error
	}{
		{"negative count", domain.ExperimentTypeNonNegativeCount, false, AddTrialParams{Result: "-3"},
			[]error{domain.ErrInvalidResult}},
		{"missing location", domain.ExperimentTypeCount, true, AddTrialParams{Result: "3"},
			[]error{domain.ErrMissingLocation}},
		{"negative and missing location", domain.ExperimentTypeNonNegativeCount, true, AddTrialParams{Result: "-1"},
			[]error{domain.ErrInvalidResult, domain.ErrMissingLocation}},
		{"fraction for count", domain.ExperimentTypeCount, false, AddTrialParams{Result: "1.5"},
			[]error{domain.ErrMalformedResult}},
		{"empty result", domain.ExperimentTypeMeasurement, false, AddTrialParams{Result: ""},
			[]error{domain.ErrMalformedResult}},
		{"out of range location", domain.ExperimentTypeMeasurement, true,
			AddTrialParams{Result: "1", Location: &domain.Location{Latitude: 100}},
			[]error{domain.ErrInvalidLocation}},
		{"NaN measurement", domain.ExperimentTypeMeasurement, false, AddTrialParams{Result: "NaN", Location: here},
			[]error{ErrNonFiniteResult}},
		{"infinite measurement", domain.ExperimentTypeMeasurement, false, AddTrialParams{Result: "-Inf"},
			[]error{ErrNonFiniteResult}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			id := f.create(t, tt.typ, tt.requireLocation)

			trial, err := f.svc.AddTrial(ctx, "bob", id, tt.params)
			assert.Nil(t, trial)
			for _, want := range tt.wantErrs {
				assert.ErrorIs(t, err, want)
			}

			trials, err := f.trials.ListByExperiment(ctx, id)
			require.NoError(t, err)
			assert.Empty(t, trials, "rejected trials are not stored")

			stored, err := f.experiments.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Empty(t, stored.Experimenters, "rejected trials add no experimenter")
		})
	}

	t.Run("unknown experiment", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AddTrial(context.Background(), "bob", "missing", AddTrialParams{Result: "1"})
		assert.ErrorIs(t, err, store.ErrExperimentNotFound)
	})
}

func TestAddTrial_EmitFailureDoesNotFailWrite(t *testing.T) {
	t.Parallel()

	experiments := mocks.NewMockExperimentStore()
	trials := mocks.NewMockTrialStore(experiments)
	emitter := &MockEventEmitter{}
	emitter.On("EmitEvent", mock.Anything, mock.Anything).Return(errors.New("handler down"))

	log, buf := logger.NewTestLogger()
	svc, err := NewExperimentService(experiments, trials, emitter, log)
	require.NoError(t, err)

	id := experiments.Seed(wireExp("", domain.ExperimentTypeCount, baseTime))
	trial, err := svc.AddTrial(context.Background(), "bob", id, AddTrialParams{Result: "4"})
	require.NoError(t, err)
	assert.Equal(t, "4", trial.ResultStr)
	assert.Contains(t, buf.String(), "failed to emit experiment event")
}

func TestGet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, domain.ExperimentTypeNonNegativeCount, false)

	good1 := f.trials.Seed(id, domain.WireTrial{Creator: "bob", CreationDate: baseTime, ResultStr: "10"})
	bad := f.trials.Seed(id, domain.WireTrial{Creator: "carol", CreationDate: baseTime, ResultStr: "oops"})
	good2 := f.trials.Seed(id, domain.WireTrial{Creator: "carol", CreationDate: baseTime, ResultStr: "+4", IsIgnored: true})

	detail, err := f.svc.Get(ctx, id)
	require.NoError(t, err)

	require.Len(t, detail.TrialFailures, 1)
	assert.Equal(t, 1, detail.TrialFailures[0].Index)
	assert.Equal(t, bad, detail.TrialFailures[0].DatabaseID)
	assert.ErrorIs(t, detail.TrialFailures[0].Err, domain.ErrMalformedResult)

	require.Len(t, detail.Trials, 2)
	assert.Equal(t, good1, detail.Trials[0].DatabaseID)
	assert.Equal(t, good2, detail.Trials[1].DatabaseID)
	assert.Equal(t, "4", detail.Trials[1].ResultStr)
	assert.True(t, detail.Trials[1].IsIgnored)

	summary := detail.Experiment.Summary()
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, 1, summary.Ignored)
	assert.Equal(t, 10.0, summary.Sum)
}

func TestGet_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	id := f.experiments.Seed(wireExp("", "BINOMIAL", baseTime))
	_, err = f.svc.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrUnknownExperimentType)

	known := f.create(t, domain.ExperimentTypeCount, false)
	cause := errors.New("timeout")
	f.trials.ListByExperimentFn = func(ctx context.Context, experimentID string) ([]domain.WireTrial, error) {
		return nil, cause
	}
	_, err = f.svc.Get(ctx, known)
	var svcErr *ExperimentServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "get_experiment", svcErr.Operation)
}

func TestIgnoreTrials(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, domain.ExperimentTypeCount, false)

	for _, s := range []struct{ user, result string }{{"bob", "1"}, {"carol", "2"}, {"bob", "3"}} {
		_, err := f.svc.AddTrial(ctx, s.user, id, AddTrialParams{Result: s.result})
		require.NoError(t, err)
	}

	_, err := f.svc.IgnoreTrials(ctx, "bob", id, "bob", true)
	assert.ErrorIs(t, err, ErrNotOwner)

	n, err := f.svc.IgnoreTrials(ctx, "alice", id, "bob", true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	detail, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, detail.Trials, 3, "ignored trials stay in the experiment")
	summary := detail.Experiment.Summary()
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, 2, summary.Ignored)
	assert.Equal(t, 2.0, summary.Sum)

	f.emitter.AssertCalled(t, "EmitEvent", mock.Anything, eventOfType(events.TypeTrialsIgnored, id))
}

func TestList(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	for i, typ := range []domain.ExperimentType{
		domain.ExperimentTypeCount,
		domain.ExperimentTypeMeasurement,
		"BINOMIAL",
		domain.ExperimentTypeNonNegativeCount,
		domain.ExperimentTypeCount,
	} {
		w := wireExp("", typ, baseTime.Add(time.Duration(i)*time.Hour))
		w.Keywords = []string{"coin"}
		f.experiments.Seed(w)
	}
	draft := wireExp("", domain.ExperimentTypeCount, baseTime.Add(10*time.Hour))
	draft.Status = domain.ExperimentStatusDraft
	draft.Keywords = []string{"coin"}
	f.experiments.Seed(draft)

	res, err := f.svc.List(ctx, store.KeywordPublished(" COIN "))
	require.NoError(t, err)
	assert.Len(t, res.Experiments, 4, "drafts never match a keyword search")
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, domain.ErrUnknownExperimentType)

	for i := 1; i < len(res.Experiments); i++ {
		assert.True(t, res.Experiments[i-1].CreationDate().After(res.Experiments[i].CreationDate()))
	}

	owned, err := f.svc.List(ctx, store.OwnerEquals("alice"))
	require.NoError(t, err)
	assert.Len(t, owned.Experiments, 5)
}

func TestList_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.List(ctx, store.ExperimentFilter{Kind: "region", Value: "north"})
	assert.ErrorIs(t, err, store.ErrInvalidFilter)

	_, err = f.svc.List(ctx, store.OwnerEquals(""))
	assert.ErrorIs(t, err, store.ErrInvalidFilter)

	cause := errors.New("connection refused")
	f.experiments.QueryFn = func(ctx context.Context, filter store.ExperimentFilter) ([]domain.WireExperiment, error) {
		return nil, cause
	}
	_, err = f.svc.List(ctx, store.OwnerEquals("alice"))
	var svcErr *ExperimentServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.ErrorIs(t, err, cause)
}
