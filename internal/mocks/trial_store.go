package mocks

import (
	"context"
	"database/sql"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/preemptiveoop/trialhub/internal/store"
)

// MockTrialStore implements store.TrialStore for testing. It shares state with
// the MockExperimentStore it was created from, so Append can check that the
// experiment exists and merge its experimenters.
type MockTrialStore struct {
	// Function fields for customizable behavior
	AppendFn              func(ctx context.Context, experimentID string, trial domain.WireTrial, experimenters []string) (string, error)
	ListByExperimentFn    func(ctx context.Context, experimentID string) ([]domain.WireTrial, error)
	SetIgnoredByCreatorFn func(ctx context.Context, experimentID, creator string, ignored bool) (int, error)

	experiments *MockExperimentStore

	mu     sync.Mutex
	trials map[string][]domain.WireTrial
}

var _ store.TrialStore = (*MockTrialStore)(nil)

// NewMockTrialStore creates a trial store bound to experiments.
func NewMockTrialStore(experiments *MockExperimentStore) *MockTrialStore {
	return &MockTrialStore{
		experiments: experiments,
		trials:      make(map[string][]domain.WireTrial),
	}
}

// Seed stores trial under experimentID without any checks and returns its id.
func (m *MockTrialStore) Seed(experimentID string, trial domain.WireTrial) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if trial.DatabaseID == "" {
		trial.DatabaseID = uuid.NewString()
	}
	m.trials[experimentID] = append(m.trials[experimentID], trial)
	return trial.DatabaseID
}

// Append implements the TrialStore interface
func (m *MockTrialStore) Append(
	ctx context.Context,
	experimentID string,
	trial domain.WireTrial,
	experimenters []string,
) (string, error) {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, experimentID, trial, experimenters)
	}

	if !m.experiments.mergeExperimenters(experimentID, experimenters) {
		return "", store.ErrExperimentNotFound
	}

	trial.DatabaseID = ""
	return m.Seed(experimentID, trial), nil
}

// ListByExperiment implements the TrialStore interface
func (m *MockTrialStore) ListByExperiment(ctx context.Context, experimentID string) ([]domain.WireTrial, error) {
	if m.ListByExperimentFn != nil {
		return m.ListByExperimentFn(ctx, experimentID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := slices.Clone(m.trials[experimentID])
	if out == nil {
		out = []domain.WireTrial{}
	}
	return out, nil
}

// SetIgnoredByCreator implements the TrialStore interface
func (m *MockTrialStore) SetIgnoredByCreator(
	ctx context.Context,
	experimentID, creator string,
	ignored bool,
) (int, error) {
	if m.SetIgnoredByCreatorFn != nil {
		return m.SetIgnoredByCreatorFn(ctx, experimentID, creator, ignored)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for i := range m.trials[experimentID] {
		if m.trials[experimentID][i].Creator == creator {
			m.trials[experimentID][i].IsIgnored = ignored
			n++
		}
	}
	return n, nil
}

// WithTx implements the TrialStore interface. The mock has no transactions,
// so it returns itself.
func (m *MockTrialStore) WithTx(tx *sql.Tx) store.TrialStore {
	return m
}
