package domain

import "time"

// Trial is one contributed measurement under an experiment. Everything except
// the ignore flag is fixed at construction; validation happens when the owning
// experiment admits the trial.
type Trial[R Number] struct {
	creator      string
	creationDate time.Time
	location     *Location
	result       R
	ignored      bool
}

// CountTrial records an integer count.
type CountTrial = Trial[int64]

// MeasurementTrial records a floating-point measurement.
type MeasurementTrial = Trial[float64]

// NewTrial creates a trial that is not ignored.
func NewTrial[R Number](creator string, creationDate time.Time, location *Location, result R) *Trial[R] {
	return &Trial[R]{
		creator:      creator,
		creationDate: creationDate,
		location:     copyLocation(location),
		result:       result,
	}
}

// NewCountTrial creates a trial for a count-based experiment.
func NewCountTrial(creator string, creationDate time.Time, location *Location, result int64) *CountTrial {
	return NewTrial(creator, creationDate, location, result)
}

// NewMeasurementTrial creates a trial for a measurement experiment.
func NewMeasurementTrial(creator string, creationDate time.Time, location *Location, result float64) *MeasurementTrial {
	return NewTrial(creator, creationDate, location, result)
}

func (t *Trial[R]) Creator() string { return t.creator }
func (t *Trial[R]) CreationDate() time.Time { return t.creationDate }
func (t *Trial[R]) Result() R { return t.result }
func (t *Trial[R]) IsIgnored() bool { return t.ignored }

// Location returns a copy of the trial's coordinate, or nil when absent.
func (t *Trial[R]) Location() *Location { return copyLocation(t.location) }

// HasLocation reports whether the trial carries a coordinate.
func (t *Trial[R]) HasLocation() bool { return t.location != nil }

// SetIgnored flags the trial for exclusion from aggregates. The trial stays in
// its experiment either way.
func (t *Trial[R]) SetIgnored(ignored bool) { t.ignored = ignored }
