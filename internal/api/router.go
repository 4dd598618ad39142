package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/preemptiveoop/trialhub/internal/api/middleware"
	"github.com/preemptiveoop/trialhub/internal/api/shared"
	"github.com/preemptiveoop/trialhub/internal/service"
)

// RouterDeps are the collaborators NewRouter wires into handlers.
type RouterDeps struct {
	Experiments service.ExperimentService
	Tokens      middleware.TokenValidator
	Logger      *slog.Logger

	// HealthCheck, when set, is called by GET /health; an error turns the
	// response into 503.
	HealthCheck func(ctx context.Context) error
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(log))

	experimentHandler := NewExperimentHandler(deps.Experiments, log)
	authMiddleware := middleware.NewAuthMiddleware(deps.Tokens)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/experiments", experimentHandler.ListExperiments)
			r.Post("/experiments", experimentHandler.CreateExperiment)
			r.Get("/experiments/{id}", experimentHandler.GetExperiment)
			r.Post("/experiments/{id}/publish", experimentHandler.PublishExperiment)
			r.Post("/experiments/{id}/trials", experimentHandler.AddTrial)
			r.Post("/experiments/{id}/ignore", experimentHandler.IgnoreTrials)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(r.Context()); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Service unavailable", err)
				return
			}
		}
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC()})
	})

	return r
}
