// Package ledger persists applied-migration records in the database the
// migrations themselves target. Each adapter maintains the same tracking
// relation: schema_migrations(filename primary key, content_sha256,
// applied_at defaulting to the time of insert).
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kengine/migrate"
)

// Table is the name of the tracking relation.
const Table = "schema_migrations"

// Postgres implements migrate.Ledger on PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres ledger.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the tracking table if absent and adds the
// content_sha256 column to deployments that predate checksum tracking.
// Both statements are idempotent and run on every invocation.
func (l *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+Table+` (
			filename TEXT PRIMARY KEY,
			content_sha256 TEXT,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create %s: %w", Table, err)
	}

	_, err = l.db.ExecContext(ctx,
		`ALTER TABLE `+Table+` ADD COLUMN IF NOT EXISTS content_sha256 TEXT`)
	if err != nil {
		return fmt.Errorf("upgrade %s: %w", Table, err)
	}
	return nil
}

// Lookup returns the recorded checksum for a migration. Rows written before
// checksum tracking report an empty checksum, which the runner treats as
// unknown rather than drifted.
func (l *Postgres) Lookup(ctx context.Context, filename string) (string, bool, error) {
	var hash sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT content_sha256 FROM `+Table+` WHERE filename = $1`, filename).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup %s: %w", filename, err)
	}
	return hash.String, true, nil
}

// Record inserts an applied-migration record. A filename that is already
// present is left untouched, so the checksum stored at first apply time
// survives retried Record calls.
func (l *Postgres) Record(ctx context.Context, filename, hash string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO `+Table+` (filename, content_sha256)
		VALUES ($1, $2)
		ON CONFLICT (filename) DO NOTHING`, filename, hash)
	if err != nil {
		return fmt.Errorf("record %s: %w", filename, err)
	}
	return nil
}

// Applied returns all records ordered by filename.
func (l *Postgres) Applied(ctx context.Context) ([]migrate.Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT filename, COALESCE(content_sha256, ''), applied_at
		FROM `+Table+`
		ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", Table, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]migrate.Entry, error) {
	var entries []migrate.Entry
	for rows.Next() {
		var e migrate.Entry
		if err := rows.Scan(&e.Filename, &e.ContentSHA256, &e.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
