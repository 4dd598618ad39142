package service

import (
	"fmt"
	"slices"

	"github.com/preemptiveoop/trialhub/internal/domain"
)

// ConversionFailure reports one candidate record that could not be converted
// to a typed experiment.
type ConversionFailure struct {
	// Index is the position of the record in the candidate batch.
	Index      int
	DatabaseID string
	Type       domain.ExperimentType
	Err        error
}

func (f ConversionFailure) Error() string {
	return fmt.Sprintf("record %d (%s): %v", f.Index, f.DatabaseID, f.Err)
}

func (f ConversionFailure) Unwrap() error {
	return f.Err
}

// ListResult is the outcome of aggregating one batch of candidates.
type ListResult struct {
	// Experiments holds the converted records, newest first.
	Experiments []domain.TypedExperiment
	// Failures holds one entry per record that was skipped, in batch order.
	Failures []ConversionFailure
}

// Aggregate converts every candidate and stable-sorts the survivors by
// creation date, newest first. Records that fail conversion are reported in
// Failures and excluded; they never abort the batch.
func Aggregate(candidates []domain.WireExperiment) ListResult {
	res := ListResult{
		Experiments: make([]domain.TypedExperiment, 0, len(candidates)),
		Failures:    []ConversionFailure{},
	}

	for i, c := range candidates {
		exp, err := c.ToTyped()
		if err != nil {
			res.Failures = append(res.Failures, ConversionFailure{
				Index:      i,
				DatabaseID: c.DatabaseID,
				Type:       c.Type,
				Err:        err,
			})
			continue
		}
		res.Experiments = append(res.Experiments, exp)
	}

	slices.SortStableFunc(res.Experiments, func(a, b domain.TypedExperiment) int {
		return b.CreationDate().Compare(a.CreationDate())
	})
	return res
}
