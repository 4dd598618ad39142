package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/preemptiveoop/trialhub/internal/store"
)

// MockExperimentStore implements store.ExperimentStore for testing
type MockExperimentStore struct {
	// Function fields for customizable behavior
	QueryFn   func(ctx context.Context, filter store.ExperimentFilter) ([]domain.WireExperiment, error)
	GetByIDFn func(ctx context.Context, id string) (*domain.WireExperiment, error)
	CreateFn  func(ctx context.Context, exp domain.WireExperiment) (string, error)
	PublishFn func(ctx context.Context, id string) error

	// Data for default implementation, in insertion order
	mu          sync.Mutex
	experiments []domain.WireExperiment
	CreateError error
	PublishCalls int
}

var _ store.ExperimentStore = (*MockExperimentStore)(nil)

// NewMockExperimentStore creates a new mock store with initialized defaults
func NewMockExperimentStore() *MockExperimentStore {
	return &MockExperimentStore{}
}

// Seed stores exp as is, keeping its DatabaseID, and returns the id. A blank
// DatabaseID gets a fresh uuid. Seed lets tests plant records the service
// could never write, such as unknown type tags.
func (m *MockExperimentStore) Seed(exp domain.WireExperiment) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exp.DatabaseID == "" {
		exp.DatabaseID = uuid.NewString()
	}
	m.experiments = append(m.experiments, cloneWire(exp))
	return exp.DatabaseID
}

// Query implements the ExperimentStore interface
func (m *MockExperimentStore) Query(ctx context.Context, filter store.ExperimentFilter) ([]domain.WireExperiment, error) {
	if m.QueryFn != nil {
		return m.QueryFn(ctx, filter)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.WireExperiment, 0)
	for _, exp := range m.experiments {
		if matches(exp, filter) {
			out = append(out, cloneWire(exp))
		}
	}
	return out, nil
}

// GetByID implements the ExperimentStore interface
func (m *MockExperimentStore) GetByID(ctx context.Context, id string) (*domain.WireExperiment, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return nil, store.ErrExperimentNotFound
	}
	exp := cloneWire(m.experiments[i])
	return &exp, nil
}

// Create implements the ExperimentStore interface
func (m *MockExperimentStore) Create(ctx context.Context, exp domain.WireExperiment) (string, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, exp)
	}
	if m.CreateError != nil {
		return "", m.CreateError
	}

	exp.DatabaseID = ""
	return m.Seed(exp), nil
}

// Publish implements the ExperimentStore interface. Like the SQL store it
// touches only the status, guarded on DRAFT.
func (m *MockExperimentStore) Publish(ctx context.Context, id string) error {
	if m.PublishFn != nil {
		return m.PublishFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCalls++
	i := m.indexOf(id)
	if i < 0 {
		return store.ErrExperimentNotFound
	}
	if m.experiments[i].Status != domain.ExperimentStatusDraft {
		return fmt.Errorf("%w: status is %s", domain.ErrAlreadyPublished, m.experiments[i].Status)
	}
	m.experiments[i].Status = domain.ExperimentStatusPublished
	return nil
}

// WithTx implements the ExperimentStore interface. The mock has no
// transactions, so it returns itself.
func (m *MockExperimentStore) WithTx(tx *sql.Tx) store.ExperimentStore {
	return m
}

// mergeExperimenters appends the missing names to the experiment's set.
func (m *MockExperimentStore) mergeExperimenters(id string, names []string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return false
	}
	for _, name := range names {
		if !slices.Contains(m.experiments[i].Experimenters, name) {
			m.experiments[i].Experimenters = append(m.experiments[i].Experimenters, name)
		}
	}
	return true
}

func (m *MockExperimentStore) indexOf(id string) int {
	return slices.IndexFunc(m.experiments, func(e domain.WireExperiment) bool {
		return e.DatabaseID == id
	})
}

func matches(exp domain.WireExperiment, filter store.ExperimentFilter) bool {
	switch filter.Kind {
	case store.FilterOwner:
		return exp.Owner == filter.Value
	case store.FilterParticipant:
		return slices.Contains(exp.Experimenters, filter.Value)
	case store.FilterKeyword:
		return exp.Status == domain.ExperimentStatusPublished && slices.Contains(exp.Keywords, filter.Value)
	default:
		return false
	}
}

func cloneWire(exp domain.WireExperiment) domain.WireExperiment {
	if exp.Region != nil {
		region := *exp.Region
		exp.Region = &region
	}
	exp.Experimenters = slices.Clone(exp.Experimenters)
	exp.Keywords = slices.Clone(exp.Keywords)
	return exp
}
