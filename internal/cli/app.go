package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/preemptiveoop/trialhub/internal/config"
	"github.com/preemptiveoop/trialhub/internal/events"
	"github.com/preemptiveoop/trialhub/internal/platform/logger"
	"github.com/preemptiveoop/trialhub/internal/platform/postgres"
	"github.com/preemptiveoop/trialhub/internal/redact"
	"github.com/preemptiveoop/trialhub/internal/service"
	"github.com/preemptiveoop/trialhub/internal/service/auth"
	"github.com/preemptiveoop/trialhub/internal/store"
)

// application holds the shared dependencies of the commands and releases
// them on close.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	experimentStore store.ExperimentStore
	trialStore      store.TrialStore

	eventEmitter      events.EventEmitter
	experimentService service.ExperimentService
	jwtService        auth.JWTService
}

// openApplication loads the configuration, sets up logging on logOut and
// connects to the database.
func (o *rootOptions) openApplication(ctx context.Context, logOut io.Writer) (*application, error) {
	cfg, log, err := o.setup(logOut)
	if err != nil {
		return nil, err
	}

	log.Info("connecting to database", "url", redact.URL(cfg.Database.URL))
	db, err := postgres.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	app, err := newApplication(cfg, log, db,
		postgres.NewPostgresExperimentStore(db, log),
		postgres.NewPostgresTrialStore(db, log))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

// setup loads the configuration and installs the default logger.
func (o *rootOptions) setup(logOut io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.SetupWithWriter(cfg.Server, logOut)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, log, nil
}

// newApplication wires the services over the given stores. db may be nil,
// in which case the health check always passes.
func newApplication(
	cfg *config.Config,
	log *slog.Logger,
	db *sql.DB,
	experiments store.ExperimentStore,
	trials store.TrialStore,
) (*application, error) {
	app := &application{
		config:          cfg,
		logger:          log,
		db:              db,
		experimentStore: experiments,
		trialStore:      trials,
	}

	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(events.NewLogHandler(log))
	app.eventEmitter = emitter

	var err error
	app.experimentService, err = service.NewExperimentService(experiments, trials, emitter, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create experiment service: %w", err)
	}

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	log.Debug("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	return app, nil
}

func (app *application) healthCheck(ctx context.Context) error {
	if app.db == nil {
		return nil
	}
	return app.db.PingContext(ctx)
}

func (app *application) close() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", "error", err)
	}
}
