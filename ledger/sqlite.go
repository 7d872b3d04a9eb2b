package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kengine/migrate"
)

// SQLite implements migrate.Ledger on SQLite.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates a SQLite ledger.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// EnsureSchema creates the tracking table if absent. The pre-checksum
// upgrade probes the table shape with PRAGMA table_info, since SQLite has
// no ADD COLUMN IF NOT EXISTS.
func (l *SQLite) EnsureSchema(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+Table+` (
			filename TEXT PRIMARY KEY,
			content_sha256 TEXT,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("create %s: %w", Table, err)
	}

	hasChecksum, err := l.hasChecksumColumn(ctx)
	if err != nil {
		return err
	}
	if !hasChecksum {
		if _, err := l.db.ExecContext(ctx,
			`ALTER TABLE `+Table+` ADD COLUMN content_sha256 TEXT`); err != nil {
			return fmt.Errorf("upgrade %s: %w", Table, err)
		}
	}
	return nil
}

func (l *SQLite) hasChecksumColumn(ctx context.Context) (bool, error) {
	rows, err := l.db.QueryContext(ctx, `PRAGMA table_info(`+Table+`)`)
	if err != nil {
		return false, fmt.Errorf("probe %s columns: %w", Table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return false, fmt.Errorf("scan table_info: %w", err)
		}
		if name == "content_sha256" {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Lookup returns the recorded checksum for a migration.
func (l *SQLite) Lookup(ctx context.Context, filename string) (string, bool, error) {
	var hash sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT content_sha256 FROM `+Table+` WHERE filename = ?`, filename).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup %s: %w", filename, err)
	}
	return hash.String, true, nil
}

// Record inserts an applied-migration record, ignoring duplicates so the
// stored checksum is never overwritten.
func (l *SQLite) Record(ctx context.Context, filename, hash string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO `+Table+` (filename, content_sha256)
		VALUES (?, ?)`, filename, hash)
	if err != nil {
		return fmt.Errorf("record %s: %w", filename, err)
	}
	return nil
}

// Applied returns all records ordered by filename.
func (l *SQLite) Applied(ctx context.Context) ([]migrate.Entry, error) {
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
