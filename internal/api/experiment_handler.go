package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/preemptiveoop/trialhub/internal/api/shared"
	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/preemptiveoop/trialhub/internal/platform/logger"
	"github.com/preemptiveoop/trialhub/internal/service"
	"github.com/preemptiveoop/trialhub/internal/store"
)

// ExperimentHandler handles experiment-related HTTP requests
type ExperimentHandler struct {
	experiments service.ExperimentService
	logger      *slog.Logger
}

// NewExperimentHandler creates a new ExperimentHandler
func NewExperimentHandler(experiments service.ExperimentService, log *slog.Logger) *ExperimentHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ExperimentHandler{
		experiments: experiments,
		logger:      log.With("component", "experiment_handler"),
	}
}

// ListExperiments handles GET /api/experiments. Exactly one of the owner,
// participant and keyword query parameters selects the list.
func (h *ExperimentHandler) ListExperiments(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUsername(w, r); !ok {
		return
	}

	filter, ok := filterFromQuery(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"Exactly one of owner, participant or keyword is required")
		return
	}

	res, err := h.experiments.List(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list experiments")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, listToResponse(res))
}

// CreateExperiment handles POST /api/experiments. The caller becomes the owner.
func (h *ExperimentHandler) CreateExperiment(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	var req CreateExperimentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	exp, err := h.experiments.Create(r.Context(), service.NewExperimentParams{
		Owner:              username,
		Type:               domain.ExperimentType(req.Type),
		Description:        req.Description,
		Region:             req.Region,
		RequireLocation:    req.RequireLocation,
		RequiredNumOfTrial: req.RequiredNumOfTrial,
		Keywords:           req.Keywords,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create experiment")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, experimentToResponse(exp))
}

// GetExperiment handles GET /api/experiments/{id}.
func (h *ExperimentHandler) GetExperiment(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUsername(w, r); !ok {
		return
	}
	id, ok := experimentIDParam(w, r)
	if !ok {
		return
	}

	detail, err := h.experiments.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load experiment")
		return
	}

	if len(detail.TrialFailures) > 0 {
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("experiment served with unreadable trials",
			"experiment_id", id,
			"failed_trials", len(detail.TrialFailures))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detailToResponse(detail))
}

// PublishExperiment handles POST /api/experiments/{id}/publish.
func (h *ExperimentHandler) PublishExperiment(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}
	id, ok := experimentIDParam(w, r)
	if !ok {
		return
	}

	exp, err := h.experiments.Publish(r.Context(), username, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to publish experiment")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, experimentToResponse(exp))
}

// AddTrial handles POST /api/experiments/{id}/trials. The caller becomes the
// trial's creator.
func (h *ExperimentHandler) AddTrial(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}
	id, ok := experimentIDParam(w, r)
	if !ok {
		return
	}

	var req AddTrialRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	trial, err := h.experiments.AddTrial(r.Context(), username, id, service.AddTrialParams{
		Result:   string(req.Result),
		Location: req.Location,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add trial")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, trial)
}

// IgnoreTrials handles POST /api/experiments/{id}/ignore.
func (h *ExperimentHandler) IgnoreTrials(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}
	id, ok := experimentIDParam(w, r)
	if !ok {
		return
	}

	var req IgnoreTrialsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	n, err := h.experiments.IgnoreTrials(r.Context(), username, id, req.Creator, *req.Ignored)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update trials")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, IgnoreTrialsResponse{
		Creator: req.Creator,
		Ignored: *req.Ignored,
		Trials:  n,
	})
}

// filterFromQuery builds the list filter from the one query parameter that
// is set.
func filterFromQuery(r *http.Request) (store.ExperimentFilter, bool) {
	q := r.URL.Query()
	var filters []store.ExperimentFilter
	if v := strings.TrimSpace(q.Get("owner")); v != "" {
		filters = append(filters, store.OwnerEquals(v))
	}
	if v := strings.TrimSpace(q.Get("participant")); v != "" {
		filters = append(filters, store.ParticipantsContain(v))
	}
	if v := strings.TrimSpace(q.Get("keyword")); v != "" {
		filters = append(filters, store.KeywordPublished(v))
	}
	if len(filters) != 1 {
		return store.ExperimentFilter{}, false
	}
	return filters[0], true
}
