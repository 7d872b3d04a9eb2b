package ledger

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "ledger_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := openTestDB(t)
	l := NewSQLite(db)
	ctx := context.Background()

	require.NoError(t, l.EnsureSchema(ctx))
	require.NoError(t, l.EnsureSchema(ctx))

	_, ok, err := l.Lookup(ctx, "000_init.sql")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureSchema_UpgradesPreChecksumTable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Shape written by deployments that predate checksum tracking.
	_, err := db.ExecContext(ctx, `
		CREATE TABLE `+Table+` (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO `+Table+` (filename) VALUES ('000_init.sql')`)
	require.NoError(t, err)

	l := NewSQLite(db)
	require.NoError(t, l.EnsureSchema(ctx))
	require.NoError(t, l.EnsureSchema(ctx))

	// The old row survives with an empty checksum.
	hash, ok, err := l.Lookup(ctx, "000_init.sql")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", hash)

	// New records land in the upgraded column.
	require.NoError(t, l.Record(ctx, "001_next.sql", "abc123"))
	hash, ok, err = l.Lookup(ctx, "001_next.sql")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", hash)
}

func TestRecord_NeverOverwrites(t *testing.T) {
	db := openTestDB(t)
	l := NewSQLite(db)
	ctx := context.Background()
	require.NoError(t, l.EnsureSchema(ctx))

	require.NoError(t, l.Record(ctx, "000_init.sql", "original"))
	require.NoError(t, l.Record(ctx, "000_init.sql", "changed"))

	hash, ok, err := l.Lookup(ctx, "000_init.sql")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "original", hash)

	entries, err := l.Applied(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestApplied_OrderedByFilename(t *testing.T) {
	db := openTestDB(t)
	l := NewSQLite(db)
	ctx := context.Background()
	require.NoError(t, l.EnsureSchema(ctx))

	require.NoError(t, l.Record(ctx, "002_c.sql", "h2"))
	require.NoError(t, l.Record(ctx, "000_a.sql", "h0"))
	require.NoError(t, l.Record(ctx, "001_b.sql", "h1"))

	entries, err := l.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "000_a.sql", entries[0].Filename)
	assert.Equal(t, "001_b.sql", entries[1].Filename)
	assert.Equal(t, "002_c.sql", entries[2].Filename)
	assert.Equal(t, "h0", entries[0].ContentSHA256)
	assert.False(t, entries[0].AppliedAt.IsZero())
}

func TestLookup_Absent(t *testing.T) {
	db := openTestDB(t)
	l := NewSQLite(db)
	ctx := context.Background()
	require.NoError(t, l.EnsureSchema(ctx))

	hash, ok, err := l.Lookup(ctx, "999_never.sql")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", hash)
}
