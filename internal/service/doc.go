// Package service contains the experiment use cases. It sits between the HTTP
// API and the stores in internal/store: it converts wire records into typed
// experiments, applies the list aggregation policy, enforces ownership, and
// drives the publish, add-trial and moderation write paths.
//
// Key components:
//
//   - Aggregate: converts a batch of wire experiments, reports the records that
//     fail conversion, and sorts the rest newest first.
//   - ExperimentService: list, get, create, publish, add trial, ignore trials.
//   - ListView: keeps the latest list for one presentation session and drops
//     refresh results that were overtaken by a newer refresh.
//
// Expected conditions are returned as sentinel errors (from this package, from
// internal/domain or from internal/store) so the API layer can map them with
// errors.Is. Everything else is wrapped in ExperimentServiceError.
package service
