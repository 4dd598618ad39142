// Package mocks provides centralized mock implementations for testing.
//
// The store mocks keep their data in memory and follow the same contract as
// the PostgreSQL stores, so services can be exercised end to end without a
// database. Every method can be overridden through its function field:
//
//	experiments := mocks.NewMockExperimentStore()
//	experiments.GetByIDFn = func(ctx context.Context, id string) (*domain.WireExperiment, error) {
//	    return nil, errors.New("connection reset")
//	}
//	trials := mocks.NewMockTrialStore(experiments)
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Document any helper methods or special functionality
package mocks
