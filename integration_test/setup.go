//go:build integration

package integration

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

// getTestDB returns a PostgreSQL connection for integration tests. It reads
// the DATABASE_URL environment variable and skips the test if not set.
func getTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// cleanTables drops the given tables plus the migration ledger so each test
// starts from an empty deployment. Integration tests share one database and
// must not run in parallel.
func cleanTables(t *testing.T, db *sql.DB, tables ...string) {
	t.Helper()

	drop := func() {
		for _, table := range append(tables, "schema_migrations") {
			if _, err := db.Exec(`DROP TABLE IF EXISTS ` + table); err != nil {
				t.Fatalf("drop %s: %v", table, err)
			}
		}
	}
	drop()
	t.Cleanup(drop)
}
