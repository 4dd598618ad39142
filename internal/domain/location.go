package domain

import (
	"fmt"
	"math"
)

// Location is a WGS84 coordinate attached to a trial or used as an
// experiment's region.
type Location struct {
	Latitude  float64 `json:"latitude"  yaml:"latitude"  validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
}

// Validate checks that the coordinate is within range.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 || math.IsNaN(l.Latitude) {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidLocation, l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 || math.IsNaN(l.Longitude) {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidLocation, l.Longitude)
	}
	return nil
}

// copyLocation returns a detached copy so callers cannot alias an entity's
// coordinate.
func copyLocation(l *Location) *Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}
