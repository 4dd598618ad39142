package api

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/preemptiveoop/trialhub/internal/service"
)

// CreateExperimentRequest is the body of POST /api/experiments.
type CreateExperimentRequest struct {
	Type               string           `json:"type"               validate:"required,max=64"`
	Description        string           `json:"description"        validate:"max=2000"`
	Region             *domain.Location `json:"region"`
	RequireLocation    bool             `json:"requireLocation"`
	RequiredNumOfTrial int              `json:"requiredNumOfTrial" validate:"gte=0,lte=1000000"`
	Keywords           []string         `json:"keywords"           validate:"max=20,dive,max=64"`
}

// ResultValue accepts a trial result as a JSON string or a JSON number and
// keeps its literal text, so the experiment's own codec does the parsing.
type ResultValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *ResultValue) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = ResultValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("result must be a string or a number")
	}
	*v = ResultValue(n.String())
	return nil
}

// AddTrialRequest is the body of POST /api/experiments/{id}/trials.
type AddTrialRequest struct {
	Result   ResultValue      `json:"result"   validate:"required,max=64"`
	Location *domain.Location `json:"location"`
}

// IgnoreTrialsRequest is the body of POST /api/experiments/{id}/ignore.
type IgnoreTrialsRequest struct {
	Creator string `json:"creator" validate:"required"`
	Ignored *bool  `json:"ignored" validate:"required"`
}

// ExperimentResponse is the wire form of an experiment plus its result kind.
type ExperimentResponse struct {
	domain.WireExperiment
	ResultKind domain.ResultKind `json:"resultKind"`
}

// FailureResponse reports one record that could not be loaded.
type FailureResponse struct {
	Index      int    `json:"index"`
	DatabaseID string `json:"databaseId,omitempty"`
	Type       string `json:"type,omitempty"`
	Error      string `json:"error"`
}

// ListResponse is the body of GET /api/experiments.
type ListResponse struct {
	Experiments []ExperimentResponse `json:"experiments"`
	Failures    []FailureResponse    `json:"failures"`
}

// ExperimentDetailResponse is the body of GET /api/experiments/{id}.
type ExperimentDetailResponse struct {
	Experiment    ExperimentResponse  `json:"experiment"`
	Trials        []domain.WireTrial  `json:"trials"`
	Summary       domain.TrialSummary `json:"summary"`
	TrialFailures []FailureResponse   `json:"trialFailures"`
}

// IgnoreTrialsResponse is the body returned by the moderation endpoint.
type IgnoreTrialsResponse struct {
	Creator string `json:"creator"`
	Ignored bool   `json:"ignored"`
	Trials  int    `json:"trials"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func experimentToResponse(exp domain.TypedExperiment) ExperimentResponse {
	return ExperimentResponse{
		WireExperiment: exp.ToWire(),
		ResultKind:     exp.ResultKind(),
	}
}

func listToResponse(res *service.ListResult) ListResponse {
	out := ListResponse{
		Experiments: make([]ExperimentResponse, 0, len(res.Experiments)),
		Failures:    make([]FailureResponse, 0, len(res.Failures)),
	}
	for _, exp := range res.Experiments {
		out.Experiments = append(out.Experiments, experimentToResponse(exp))
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, FailureResponse{
			Index:      f.Index,
			DatabaseID: f.DatabaseID,
			Type:       string(f.Type),
			Error:      GetSafeErrorMessage(f.Err),
		})
	}
	return out
}

func detailToResponse(detail *service.ExperimentDetail) ExperimentDetailResponse {
	out := ExperimentDetailResponse{
		Experiment:    experimentToResponse(detail.Experiment),
		Trials:        detail.Trials,
		Summary:       detail.Experiment.Summary(),
		TrialFailures: make([]FailureResponse, 0, len(detail.TrialFailures)),
	}
	if out.Trials == nil {
		out.Trials = []domain.WireTrial{}
	}
	for _, f := range detail.TrialFailures {
		out.TrialFailures = append(out.TrialFailures, FailureResponse{
			Index:      f.Index,
			DatabaseID: f.DatabaseID,
			Error:      GetSafeErrorMessage(f.Err),
		})
	}
	return out
}
