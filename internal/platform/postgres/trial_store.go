package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/preemptiveoop/trialhub/internal/platform/logger"
	"github.com/preemptiveoop/trialhub/internal/store"
)

// PostgresTrialStore implements the store.TrialStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTrialStore struct {
	db     store.DBTX
	logger *slog.Logger
	newID  func() uuid.UUID
}

// NewPostgresTrialStore creates a new PostgreSQL implementation of the TrialStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTrialStore(db store.DBTX, logger *slog.Logger) *PostgresTrialStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTrialStore{
		db:     db,
		logger: logger.With(slog.String("component", "trial_store")),
		newID:  uuid.New,
	}
}

// Ensure PostgresTrialStore implements store.TrialStore interface
var _ store.TrialStore = (*PostgresTrialStore)(nil)

// WithTx implements store.TrialStore.WithTx.
func (s *PostgresTrialStore) WithTx(tx *sql.Tx) store.TrialStore {
	return s.withTx(tx)
}

func (s *PostgresTrialStore) withTx(tx *sql.Tx) *PostgresTrialStore {
	return &PostgresTrialStore{db: tx, logger: s.logger, newID: s.newID}
}

// Append implements store.TrialStore.Append.
// The experimenter set is merged rather than overwritten: names already
// stored keep their position and missing ones are appended in the order
// given. The experiment row update also serializes concurrent appends.
func (s *PostgresTrialStore) Append(
	ctx context.Context,
	experimentID string,
	trial domain.WireTrial,
	experimenters []string,
) (string, error) {
	expID, err := uuid.Parse(experimentID)
	if err != nil {
		return "", store.ErrExperimentNotFound
	}

	if db, ok := s.db.(*sql.DB); ok {
		var id string
		err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			var txErr error
			id, txErr = s.withTx(tx).appendTrial(ctx, expID, trial, experimenters)
			return txErr
		})
		return id, err
	}

	return s.appendTrial(ctx, expID, trial, experimenters)
}

func (s *PostgresTrialStore) appendTrial(
	ctx context.Context,
	expID uuid.UUID,
	trial domain.WireTrial,
	experimenters []string,
) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	mergeQuery := `
		UPDATE experiments
		SET experimenters = experimenters || ARRAY(
				SELECT d.e
				FROM (
					SELECT u.e, MIN(u.n) AS n
					FROM unnest($2::text[]) WITH ORDINALITY AS u(e, n)
					GROUP BY u.e
				) d
				WHERE NOT (d.e = ANY(experimenters))
				ORDER BY d.n
			),
			updated_at = $3
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, mergeQuery, expID, nonNilStrings(experimenters), time.Now().UTC())
	if err != nil {
		log.Error("failed to merge experimenters",
			slog.String("error", err.Error()),
			slog.String("experiment_id", expID.String()))
		return "", storeError("trial", "append", err)
	}
	if err := CheckRowsAffected(result, store.ErrExperimentNotFound); err != nil {
		log.Debug("experiment not found for trial append",
			slog.String("experiment_id", expID.String()))
		return "", err
	}

	id := s.newID()
	lat, lng := nullableLocation(trial.Location)

	insertQuery := `
		INSERT INTO trials (id, experiment_id, creator, created_at, latitude, longitude, result_str, is_ignored)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, insertQuery,
		id,
		expID,
		trial.Creator,
		trial.CreationDate,
		lat,
		lng,
		trial.ResultStr,
		trial.IsIgnored,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Debug("experiment deleted before trial insert",
				slog.String("experiment_id", expID.String()))
			return "", store.ErrExperimentNotFound
		}
		log.Error("failed to insert trial",
			slog.String("error", err.Error()),
			slog.String("experiment_id", expID.String()),
			slog.String("creator", trial.Creator))
		return "", storeError("trial", "append", err)
	}

	log.Info("trial appended",
		slog.String("experiment_id", expID.String()),
		slog.String("trial_id", id.String()),
		slog.String("creator", trial.Creator))
	return id.String(), nil
}

// ListByExperiment implements store.TrialStore.ListByExperiment.
// Trials come back in submission order.
func (s *PostgresTrialStore) ListByExperiment(ctx context.Context, experimentID string) ([]domain.WireTrial, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	expID, err := uuid.Parse(experimentID)
	if err != nil {
		return nil, store.ErrExperimentNotFound
	}

	query := `
		SELECT id, creator, created_at, latitude, longitude, result_str, is_ignored
		FROM trials
		WHERE experiment_id = $1
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, expID)
	if err != nil {
		log.Error("failed to list trials",
			slog.String("error", err.Error()),
			slog.String("experiment_id", experimentID))
		return nil, storeError("trial", "list", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	trials := []domain.WireTrial{}
	for rows.Next() {
		var (
			t        domain.WireTrial
			id       uuid.UUID
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&id, &t.Creator, &t.CreationDate, &lat, &lng, &t.ResultStr, &t.IsIgnored); err != nil {
			log.Error("failed to scan trial row", slog.String("error", err.Error()))
			return nil, storeError("trial", "list", err)
		}
		t.DatabaseID = id.String()
		t.Location = locationFromNullable(lat, lng)
		trials = append(trials, t)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, storeError("trial", "list", err)
	}

	log.Debug("listed trials",
		slog.String("experiment_id", experimentID),
		slog.Int("count", len(trials)))
	return trials, nil
}

// SetIgnoredByCreator implements store.TrialStore.SetIgnoredByCreator.
func (s *PostgresTrialStore) SetIgnoredByCreator(
	ctx context.Context,
	experimentID, creator string,
	ignored bool,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	expID, err := uuid.Parse(experimentID)
	if err != nil {
		return 0, store.ErrExperimentNotFound
	}

	query := `
		UPDATE trials
		SET is_ignored = $1
		WHERE experiment_id = $2 AND creator = $3
	`
	result, err := s.db.ExecContext(ctx, query, ignored, expID, creator)
	if err != nil {
		log.Error("failed to set ignore flag",
			slog.String("error", err.Error()),
			slog.String("experiment_id", experimentID),
			slog.String("creator", creator))
		return 0, storeError("trial", "ignore", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	log.Info("trial ignore flag updated",
		slog.String("experiment_id", experimentID),
		slog.String("creator", creator),
		slog.Bool("ignored", ignored),
		slog.Int64("trials", n))
	return int(n), nil
}
