//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/preemptiveoop/trialhub/internal/platform/logger"
	"github.com/preemptiveoop/trialhub/internal/platform/postgres"
	"github.com/preemptiveoop/trialhub/internal/redact"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestTimeout bounds setup operations against the test database.
const TestTimeout = 60 * time.Second

const postgresImage = "postgres:16-alpine"

var (
	sharedOnce sync.Once
	sharedDB   *sql.DB
	sharedErr  error
)

// GetTestDatabaseURL returns DATABASE_URL, falling back to TRIALHUB_TEST_DB_URL.
func GetTestDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("TRIALHUB_TEST_DB_URL")
}

// GetTestDBWithT returns a migrated database shared by every test in the
// binary, failing the test when none can be provided.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	sharedOnce.Do(func() {
		sharedDB, sharedErr = openTestDB()
	})
	if sharedErr != nil {
		t.Fatalf("test database unavailable: %v", sharedErr)
	}
	return sharedDB
}

func openTestDB() (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	url := GetTestDatabaseURL()
	if url == "" {
		var err error
		url, err = startContainer(ctx)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(postgres.DriverName, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", redact.URL(url), err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", redact.URL(url), err)
	}

	l, _ := logger.NewTestLogger()
	if err := postgres.Migrate(ctx, db, postgres.MigrateUp, l); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// startContainer runs a throwaway PostgreSQL. The testcontainers reaper
// removes it when the test binary exits.
func startContainer(ctx context.Context) (string, error) {
	container, err := tcpostgres.Run(ctx,
		postgresImage,
		tcpostgres.WithDatabase("trialhub_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}
	return url, nil
}
