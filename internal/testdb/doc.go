//go:build integration

// Package testdb provides utilities for database integration tests.
//
// Tests obtain a migrated database with GetTestDBWithT and run each case in
// its own transaction with WithTx. The transaction is always rolled back, so
// tests can run in parallel without seeing each other's rows.
//
//	func TestExperimentStore(t *testing.T) {
//		db := testdb.GetTestDBWithT(t)
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			s := postgres.NewPostgresExperimentStore(tx, nil)
//			// ...
//		})
//	}
//
// The database comes from DATABASE_URL when it is set. Otherwise a disposable
// PostgreSQL container is started once per test binary with testcontainers-go.
package testdb
