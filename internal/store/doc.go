// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic: experiments and trials cross this boundary
// in their wire form, and the domain layer converts them into typed variants.
package store
