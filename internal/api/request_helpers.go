package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/preemptiveoop/trialhub/internal/api/shared"
)

// requireUsername returns the authenticated caller, writing a 401 when the
// auth middleware did not run.
func requireUsername(w http.ResponseWriter, r *http.Request) (string, bool) {
	username, ok := shared.GetUsername(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return username, true
}

// experimentIDParam returns the {id} path parameter, writing a 400 when it is
// blank.
func experimentIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Experiment id is required")
		return "", false
	}
	return id, true
}

// decodeAndValidate decodes the JSON body into v and validates it, writing a
// 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(w, r, v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Validation error", err,
			shared.WithDetails(shared.ValidationMessages(err)...))
		return false
	}
	return true
}
