package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ExperimentStatus is the lifecycle state of an experiment.
type ExperimentStatus string

// Lifecycle states. DRAFT -> PUBLISHED is the only transition.
const (
	ExperimentStatusDraft     ExperimentStatus = "DRAFT"
	ExperimentStatusPublished ExperimentStatus = "PUBLISHED"
)

var validate = validator.New()

// ExperimentHeader holds the variant independent fields of an experiment.
type ExperimentHeader struct {
	DatabaseID         string           `json:"databaseId,omitempty"`
	Owner              string           `json:"owner"              validate:"required"`
	CreationDate       time.Time        `json:"creationDate"       validate:"required"`
	Description        string           `json:"description"`
	Region             *Location        `json:"region,omitempty"`
	RequireLocation    bool             `json:"requireLocation"`
	RequiredNumOfTrial int              `json:"requiredNumOfTrial" validate:"gte=0"`
	Status             ExperimentStatus `json:"status"             validate:"oneof=DRAFT PUBLISHED"`
	Experimenters      []string         `json:"experimenters"`
	Keywords           []string         `json:"keywords"`
}

func (h ExperimentHeader) clone() ExperimentHeader {
	h.Region = copyLocation(h.Region)
	h.Experimenters = slices.Clone(h.Experimenters)
	h.Keywords = slices.Clone(h.Keywords)
	return h
}

// TypedExperiment is the closed union of experiment variants. It is
// implemented only by *Experiment[int64] and *Experiment[float64]; callers that
// need the typed trials switch on the concrete type.
type TypedExperiment interface {
	Header() ExperimentHeader
	Type() ExperimentType
	ResultKind() ResultKind
	DatabaseID() string
	SetDatabaseID(id string)
	Owner() string
	CreationDate() time.Time
	Status() ExperimentStatus
	Publish() error
	Validate() error
	TrialCount() int
	AddWireTrial(w WireTrial) error
	WireTrials() []WireTrial
	IgnoreTrialsFrom(creator string, ignored bool) int
	Summary() TrialSummary
	ToWire() WireExperiment

	sealed()
}

// Experiment owns the trials of one variant. Every element of trials was
// accepted by AddTrial.
type Experiment[R Number] struct {
	header  ExperimentHeader
	variant Variant[R]
	trials  []*Trial[R]
}

var (
	_ TypedExperiment = (*Experiment[int64])(nil)
	_ TypedExperiment = (*Experiment[float64])(nil)
)

// NewExperiment creates an experiment of the given variant. A blank status
// defaults to DRAFT; every other field is copied as given.
func NewExperiment[R Number](variant Variant[R], header ExperimentHeader) *Experiment[R] {
	h := header.clone()
	if h.Status == "" {
		h.Status = ExperimentStatusDraft
	}
	return &Experiment[R]{header: h, variant: variant}
}

// NewCountExperiment creates a COUNT experiment.
func NewCountExperiment(header ExperimentHeader) *Experiment[int64] {
	return NewExperiment(CountVariant, header)
}

// NewNonNegativeCountExperiment creates a NONNEGATIVE_COUNT experiment.
func NewNonNegativeCountExperiment(header ExperimentHeader) *Experiment[int64] {
	return NewExperiment(NonNegativeCountVariant, header)
}

// NewMeasurementExperiment creates a MEASUREMENT experiment.
func NewMeasurementExperiment(header ExperimentHeader) *Experiment[float64] {
	return NewExperiment(MeasurementVariant, header)
}

func (e *Experiment[R]) sealed() {}

// Header returns a copy of the variant independent fields.
func (e *Experiment[R]) Header() ExperimentHeader { return e.header.clone() }

func (e *Experiment[R]) Type() ExperimentType { return e.variant.Type }
func (e *Experiment[R]) ResultKind() ResultKind { return e.variant.Result.Kind }
func (e *Experiment[R]) Variant() Variant[R] { return e.variant }
func (e *Experiment[R]) DatabaseID() string { return e.header.DatabaseID }
func (e *Experiment[R]) Owner() string { return e.header.Owner }
func (e *Experiment[R]) CreationDate() time.Time { return e.header.CreationDate }
func (e *Experiment[R]) Status() ExperimentStatus { return e.header.Status }
func (e *Experiment[R]) RequireLocation() bool { return e.header.RequireLocation }
func (e *Experiment[R]) RequiredNumOfTrial() int { return e.header.RequiredNumOfTrial }
func (e *Experiment[R]) Experimenters() []string { return slices.Clone(e.header.Experimenters) }
func (e *Experiment[R]) Keywords() []string { return slices.Clone(e.header.Keywords) }
func (e *Experiment[R]) TrialCount() int { return len(e.trials) }
func (e *Experiment[R]) SetDatabaseID(id string) { e.header.DatabaseID = id }
func (e *Experiment[R]) Trials() []*Trial[R] { return slices.Clone(e.trials) }

// Validate checks the header fields. Failures wrap ErrValidation.
func (e *Experiment[R]) Validate() error {
	if err := validate.Struct(e.header); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if e.header.Region != nil {
		if err := e.header.Region.Validate(); err != nil {
			return fmt.Errorf("%w: region: %v", ErrValidation, err)
		}
	}
	return nil
}

// Publish moves a draft to PUBLISHED. Published experiments keep accepting
// trials.
func (e *Experiment[R]) Publish() error {
	if e.header.Status != ExperimentStatusDraft {
		return fmt.Errorf("%w: status is %s", ErrAlreadyPublished, e.header.Status)
	}
	e.header.Status = ExperimentStatusPublished
	return nil
}

// AddTrial admits trial if it satisfies the variant's predicate and the
// location requirement. The coordinate range is only checked when the
// experiment requires a location; elsewhere the location is carried as given.
// All failed checks are returned joined, and on failure the experiment is left
// untouched. The experiment keeps its own copy of the
// trial.
func (e *Experiment[R]) AddTrial(trial *Trial[R]) error {
	if trial == nil {
		return ErrNilTrial
	}

	var errs []error
	if trial.creator == "" {
		errs = append(errs, ErrEmptyTrialCreator)
	}
	if !e.variant.Admit(trial.result) {
		errs = append(errs, fmt.Errorf("%w: %s experiment does not accept %s",
			ErrInvalidResult, e.variant.Type, e.variant.Result.Format(trial.result)))
	}
	if e.header.RequireLocation {
		if trial.location == nil {
			errs = append(errs, ErrMissingLocation)
		} else if err := trial.location.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	admitted := *trial
	admitted.location = copyLocation(trial.location)
	e.trials = append(e.trials, &admitted)
	if !slices.Contains(e.header.Experimenters, trial.creator) {
		e.header.Experimenters = append(e.header.Experimenters, trial.creator)
	}
	return nil
}

// AddWireTrial converts w with the variant's codec and admits it.
func (e *Experiment[R]) AddWireTrial(w WireTrial) error {
	trial, err := ToTypedTrial(w, e.variant.Result.Parse)
	if err != nil {
		return err
	}
	return e.AddTrial(trial)
}

// WireTrials renders every trial in submission order.
func (e *Experiment[R]) WireTrials() []WireTrial {
	out := make([]WireTrial, len(e.trials))
	for i, t := range e.trials {
		out[i] = FromTypedTrial(t, e.variant.Result.Format)
	}
	return out
}

// IgnoreTrialsFrom sets the ignore flag on every trial submitted by creator
// and returns how many trials it touched.
func (e *Experiment[R]) IgnoreTrialsFrom(creator string, ignored bool) int {
	n := 0
	for _, t := range e.trials {
		if t.creator == creator {
			t.SetIgnored(ignored)
			n++
		}
	}
	return n
}

// ToWire renders the experiment header in wire form. Trials are a separate
// sub-collection, see WireTrials.
func (e *Experiment[R]) ToWire() WireExperiment {
	h := e.header.clone()
	return WireExperiment{
		DatabaseID:         h.DatabaseID,
		Type:               e.variant.Type,
		Owner:              h.Owner,
		CreationDate:       h.CreationDate,
		Description:        h.Description,
		Region:             h.Region,
		RequireLocation:    h.RequireLocation,
		RequiredNumOfTrial: h.RequiredNumOfTrial,
		Status:             h.Status,
		Experimenters:      h.Experimenters,
		Keywords:           h.Keywords,
	}
}

// NormalizeKeywords lower-cases and trims keywords, dropping blanks and
// duplicates while keeping first-seen order.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || slices.Contains(out, k) {
			continue
		}
		out = append(out, k)
	}
	return out
}
