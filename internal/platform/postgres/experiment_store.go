package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/preemptiveoop/trialhub/internal/platform/logger"
	"github.com/preemptiveoop/trialhub/internal/store"
)

const experimentColumns = `
	id, type, owner, created_at, description,
	region_latitude, region_longitude, require_location,
	required_num_of_trial, status, experimenters, keywords`

// PostgresExperimentStore implements the store.ExperimentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresExperimentStore struct {
	db      store.DBTX
	logger  *slog.Logger
	nowFunc func() time.Time
	newID   func() uuid.UUID
}

// NewPostgresExperimentStore creates a new PostgreSQL implementation of the ExperimentStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresExperimentStore(db store.DBTX, logger *slog.Logger) *PostgresExperimentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresExperimentStore{
		db:      db,
		logger:  logger.With(slog.String("component", "experiment_store")),
		nowFunc: func() time.Time { return time.Now().UTC() },
		newID:   uuid.New,
	}
}

// Ensure PostgresExperimentStore implements store.ExperimentStore interface
var _ store.ExperimentStore = (*PostgresExperimentStore)(nil)

// WithTx implements store.ExperimentStore.WithTx.
func (s *PostgresExperimentStore) WithTx(tx *sql.Tx) store.ExperimentStore {
	return &PostgresExperimentStore{
		db:      tx,
		logger:  s.logger,
		nowFunc: s.nowFunc,
		newID:   s.newID,
	}
}

// Query implements store.ExperimentStore.Query.
// Keyword queries only match PUBLISHED experiments.
func (s *PostgresExperimentStore) Query(
	ctx context.Context,
	filter store.ExperimentFilter,
) ([]domain.WireExperiment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := filter.Validate(); err != nil {
		log.Warn("rejected experiment query", slog.String("error", err.Error()))
		return nil, err
	}

	var where string
	args := []any{filter.Value}
	switch filter.Kind {
	case store.FilterOwner:
		where = "owner = $1"
	case store.FilterParticipant:
		where = "experimenters @> ARRAY[$1]::text[]"
	case store.FilterKeyword:
		where = "keywords @> ARRAY[$1]::text[] AND status = $2"
		args = append(args, string(domain.ExperimentStatusPublished))
	}

	query := "SELECT" + experimentColumns + "\n\tFROM experiments\n\tWHERE " + where

	log.Debug("querying experiments", slog.String("filter", filter.String()))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query experiments",
			slog.String("error", err.Error()),
			slog.String("filter", filter.String()))
		return nil, storeError("experiment", "query", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	// pgtype.Map caches scan plans and is not safe for concurrent use.
	typeMap := pgtype.NewMap()
	experiments := []domain.WireExperiment{}
	for rows.Next() {
		exp, err := scanExperiment(typeMap, rows)
		if err != nil {
			log.Error("failed to scan experiment row", slog.String("error", err.Error()))
			return nil, store.NewStoreError("experiment", "query", "scan failed", err)
		}
		experiments = append(experiments, exp)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, storeError("experiment", "query", err)
	}

	log.Debug("queried experiments",
		slog.String("filter", filter.String()),
		slog.Int("count", len(experiments)))
	return experiments, nil
}

// GetByID implements store.ExperimentStore.GetByID.
// Returns store.ErrExperimentNotFound if the experiment does not exist or id is
// not a valid UUID.
func (s *PostgresExperimentStore) GetByID(ctx context.Context, id string) (*domain.WireExperiment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	uid, err := uuid.Parse(id)
	if err != nil {
		log.Debug("malformed experiment id", slog.String("experiment_id", id))
		return nil, store.ErrExperimentNotFound
	}

	query := "SELECT" + experimentColumns + "\n\tFROM experiments\n\tWHERE id = $1"

	exp, err := scanExperiment(pgtype.NewMap(), s.db.QueryRowContext(ctx, query, uid))
	if err != nil {
		if IsNotFoundError(err) {
			log.Debug("experiment not found", slog.String("experiment_id", id))
			return nil, store.ErrExperimentNotFound
		}
		log.Error("failed to get experiment by ID",
			slog.String("error", err.Error()),
			slog.String("experiment_id", id))
		return nil, store.NewStoreError("experiment", "get", "scan failed", err)
	}

	return &exp, nil
}

// Create implements store.ExperimentStore.Create.
// The store assigns a fresh UUID; exp.DatabaseID is ignored.
func (s *PostgresExperimentStore) Create(ctx context.Context, exp domain.WireExperiment) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	id := s.newID()
	lat, lng := nullableLocation(exp.Region)

	query := `
		INSERT INTO experiments (
			id, type, owner, created_at, description,
			region_latitude, region_longitude, require_location,
			required_num_of_trial, status, experimenters, keywords, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		id,
		string(exp.Type),
		exp.Owner,
		exp.CreationDate,
		exp.Description,
		lat,
		lng,
		exp.RequireLocation,
		exp.RequiredNumOfTrial,
		string(exp.Status),
		nonNilStrings(exp.Experimenters),
		nonNilStrings(exp.Keywords),
		s.nowFunc(),
	)
	if err != nil {
		log.Error("failed to create experiment",
			slog.String("error", err.Error()),
			slog.String("owner", exp.Owner),
			slog.String("type", string(exp.Type)))
		return "", storeError("experiment", "create", err)
	}

	log.Info("experiment created",
		slog.String("experiment_id", id.String()),
		slog.String("owner", exp.Owner),
		slog.String("type", string(exp.Type)))
	return id.String(), nil
}

// Publish implements store.ExperimentStore.Publish.
// The transition is guarded in SQL, so of two concurrent publishes exactly one
// succeeds. The experimenter set is never written here.
func (s *PostgresExperimentStore) Publish(ctx context.Context, id string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	uid, err := uuid.Parse(id)
	if err != nil {
		return store.ErrExperimentNotFound
	}

	query := `
		UPDATE experiments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := s.db.ExecContext(ctx, query,
		string(domain.ExperimentStatusPublished),
		s.nowFunc(),
		uid,
		string(domain.ExperimentStatusDraft),
	)
	if err != nil {
		log.Error("failed to publish experiment",
			slog.String("error", err.Error()),
			slog.String("experiment_id", id))
		return storeError("experiment", "publish", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return s.notPublishable(ctx, uid)
	}

	log.Info("experiment published", slog.String("experiment_id", id))
	return nil
}

// notPublishable tells a missing experiment from one that is no longer a draft.
func (s *PostgresExperimentStore) notPublishable(ctx context.Context, id uuid.UUID) error {
	var status string
	err := s.db.QueryRowContext(ctx, "SELECT status FROM experiments WHERE id = $1", id).Scan(&status)
	if err != nil {
		if IsNotFoundError(err) {
			return store.ErrExperimentNotFound
		}
		return storeError("experiment", "publish", err)
	}
	return fmt.Errorf("%w: status is %s", domain.ErrAlreadyPublished, status)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExperiment(typeMap *pgtype.Map, row rowScanner) (domain.WireExperiment, error) {
	var (
		exp           domain.WireExperiment
		id            uuid.UUID
		typ, status   string
		lat, lng      sql.NullFloat64
		experimenters []string
		keywords      []string
	)

	err := row.Scan(
		&id,
		&typ,
		&exp.Owner,
		&exp.CreationDate,
		&exp.Description,
		&lat,
		&lng,
		&exp.RequireLocation,
		&exp.RequiredNumOfTrial,
		&status,
		typeMap.SQLScanner(&experimenters),
		typeMap.SQLScanner(&keywords),
	)
	if err != nil {
		return domain.WireExperiment{}, MapError(err)
	}

	exp.DatabaseID = id.String()
	exp.Type = domain.ExperimentType(typ)
	exp.Status = domain.ExperimentStatus(status)
	exp.Region = locationFromNullable(lat, lng)
	exp.Experimenters = nonNilStrings(experimenters)
	exp.Keywords = nonNilStrings(keywords)
	return exp, nil
}

func nullableLocation(l *domain.Location) (sql.NullFloat64, sql.NullFloat64) {
	if l == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: l.Latitude, Valid: true},
		sql.NullFloat64{Float64: l.Longitude, Valid: true}
}

func locationFromNullable(lat, lng sql.NullFloat64) *domain.Location {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &domain.Location{Latitude: lat.Float64, Longitude: lng.Float64}
}

// nonNilStrings keeps empty sets as '{}' rather than NULL.
func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
