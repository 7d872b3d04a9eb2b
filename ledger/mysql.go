package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kengine/migrate"
)

// MySQL implements migrate.Ledger on MySQL/MariaDB.
type MySQL struct {
	db *sql.DB
}

// NewMySQL creates a MySQL ledger.
func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

// EnsureSchema creates the tracking table if absent. MySQL has no
// ADD COLUMN IF NOT EXISTS, so the pre-checksum upgrade probes
// information_schema before altering.
func (l *MySQL) EnsureSchema(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+Table+` (
			filename VARCHAR(255) PRIMARY KEY,
			content_sha256 VARCHAR(64),
			applied_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
		) ENGINE=InnoDB`)
	if err != nil {
		return fmt.Errorf("create %s: %w", Table, err)
	}

	var count int
	err = l.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		  AND column_name = 'content_sha256'`, Table).Scan(&count)
	if err != nil {
		return fmt.Errorf("probe %s columns: %w", Table, err)
	}
	if count == 0 {
		if _, err := l.db.ExecContext(ctx,
			`ALTER TABLE `+Table+` ADD COLUMN content_sha256 VARCHAR(64)`); err != nil {
			return fmt.Errorf("upgrade %s: %w", Table, err)
		}
	}
	return nil
}

// Lookup returns the recorded checksum for a migration.
func (l *MySQL) Lookup(ctx context.Context, filename string) (string, bool, error) {
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
func (l *MySQL) Record(ctx context.Context, filename, hash string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT IGNORE INTO `+Table+` (filename, content_sha256)
		VALUES (?, ?)`, filename, hash)
	if err != nil {
		return fmt.Errorf("record %s: %w", filename, err)
	}
	return nil
}

// Applied returns all records ordered by filename.
func (l *MySQL) Applied(ctx context.Context) ([]migrate.Entry, error) {
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
