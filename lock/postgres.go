// Package lock provides system-wide mutual exclusion for migration runs.
//
// PostgreSQL and MySQL use the server's own session-scoped advisory locks,
// so a holder that dies without releasing is reclaimed by the server when
// its session terminates. SQLite has no equivalent primitive; SQLiteLease
// substitutes a TTL-bound lease row that lapses after a crash.
package lock

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kengine/migrate"
)

// DefaultKey is the advisory lock key shared by every runner deployment
// operating on the same database.
const DefaultKey int64 = 123456789

// Postgres implements migrate.Locker using PostgreSQL advisory locks.
type Postgres struct {
	db  *sql.DB
	key int64
}

// NewPostgres creates a Postgres locker using DefaultKey.
func NewPostgres(db *sql.DB) *Postgres {
	return NewPostgresWithKey(db, DefaultKey)
}

// NewPostgresWithKey creates a Postgres locker with a custom advisory lock
// key. Every process that must exclude the others has to use the same key.
func NewPostgresWithKey(db *sql.DB, key int64) *Postgres {
	return &Postgres{db: db, key: key}
}

// TryAcquire attempts pg_try_advisory_lock on a connection pinned from the
// pool. Advisory locks are session-scoped, so the same connection must be
// used for the unlock; the release function unlocks and returns the
// connection to the pool.
func (l *Postgres) TryAcquire(ctx context.Context) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("pin connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pg_try_advisory_lock(%d): %w", l.key, err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, fmt.Errorf("advisory lock %d: %w", l.key, migrate.ErrLockHeld)
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, l.key)
		_ = conn.Close()
	}
	return release, nil
}
