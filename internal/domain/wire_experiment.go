package domain

import (
	"fmt"
	"time"
)

// WireExperiment is the schema-less form of an experiment as the store keeps
// it. Type selects the variant ToTyped produces. Trials are not embedded.
type WireExperiment struct {
	DatabaseID         string           `json:"databaseId,omitempty" yaml:"databaseId,omitempty"`
	Type               ExperimentType   `json:"type"                 yaml:"type"`
	Owner              string           `json:"owner"                yaml:"owner"`
	CreationDate       time.Time        `json:"creationDate"         yaml:"creationDate"`
	Description        string           `json:"description"          yaml:"description"`
	Region             *Location        `json:"region,omitempty"     yaml:"region,omitempty"`
	RequireLocation    bool             `json:"requireLocation"      yaml:"requireLocation"`
	RequiredNumOfTrial int              `json:"requiredNumOfTrial"   yaml:"requiredNumOfTrial"`
	Status             ExperimentStatus `json:"status"               yaml:"status"`
	Experimenters      []string         `json:"experimenters"        yaml:"experimenters"`
	Keywords           []string         `json:"keywords"             yaml:"keywords"`
}

// Header returns the variant independent fields of w.
func (w WireExperiment) Header() ExperimentHeader {
	h := ExperimentHeader{
		DatabaseID:         w.DatabaseID,
		Owner:              w.Owner,
		CreationDate:       w.CreationDate,
		Description:        w.Description,
		Region:             w.Region,
		RequireLocation:    w.RequireLocation,
		RequiredNumOfTrial: w.RequiredNumOfTrial,
		Status:             w.Status,
		Experimenters:      w.Experimenters,
		Keywords:           w.Keywords,
	}
	return h.clone()
}

// ToTyped builds the experiment variant selected by w.Type, copying every
// scalar field. Unregistered discriminants fail with ErrUnknownExperimentType
// so records written by a newer catalog can be reported and skipped.
func (w WireExperiment) ToTyped() (TypedExperiment, error) {
	entry, ok := lookup(w.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExperimentType, string(w.Type))
	}
	return entry.build(w.Header()), nil
}
