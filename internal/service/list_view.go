package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/preemptiveoop/trialhub/internal/store"
)

// ExperimentLister is the part of ExperimentService a ListView needs.
type ExperimentLister interface {
	List(ctx context.Context, filter store.ExperimentFilter) (*ListResult, error)
}

// ListView holds the latest list result of one presentation session. Each
// Refresh takes a generation number before it fetches; a result is installed
// only if no newer Refresh started in the meantime.
type ListView struct {
	lister     ExperimentLister
	generation atomic.Uint64

	mu      sync.RWMutex
	current *ListResult
	filter  store.ExperimentFilter
}

// NewListView creates an empty view over lister.
func NewListView(lister ExperimentLister) *ListView {
	return &ListView{lister: lister}
}

// Refresh fetches the list for filter and installs it. It returns
// ErrStaleResult, leaving the view untouched, when a newer Refresh started
// while this one was fetching.
func (v *ListView) Refresh(ctx context.Context, filter store.ExperimentFilter) (*ListResult, error) {
	gen := v.generation.Add(1)

	res, err := v.lister.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.generation.Load() != gen {
		return nil, ErrStaleResult
	}
	v.current = res
	v.filter = filter
	return res, nil
}

// Current returns the installed result and the filter that produced it. The
// result is nil before the first successful Refresh.
func (v *ListView) Current() (*ListResult, store.ExperimentFilter) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current, v.filter
}
