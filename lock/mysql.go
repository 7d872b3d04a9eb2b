package lock

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kengine/migrate"
)

// MySQL implements migrate.Locker using MySQL named locks. GET_LOCK with a
// zero timeout makes the attempt non-blocking, and named locks are
// session-scoped: the server releases them when the owning session
// disconnects.
type MySQL struct {
	db   *sql.DB
	name string
}

// NewMySQL creates a MySQL locker whose lock name is derived from
// DefaultKey.
func NewMySQL(db *sql.DB) *MySQL {
	return NewMySQLWithKey(db, DefaultKey)
}

// NewMySQLWithKey creates a MySQL locker whose lock name is derived from
// the given key.
func NewMySQLWithKey(db *sql.DB, key int64) *MySQL {
	return &MySQL{db: db, name: fmt.Sprintf("kengine_migrate_%d", key)}
}

// TryAcquire attempts GET_LOCK(name, 0) on a pinned connection. The release
// function calls RELEASE_LOCK on the same connection and returns it to the
// pool.
func (l *MySQL) TryAcquire(ctx context.Context) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("pin connection: %w", err)
	}

	// GET_LOCK returns 1 on success, 0 when the lock is held elsewhere,
	// and NULL on error.
	var acquired sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, 0)`, l.name).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("GET_LOCK(%s): %w", l.name, err)
	}
	if !acquired.Valid {
		_ = conn.Close()
		return nil, fmt.Errorf("GET_LOCK(%s): lock error", l.name)
	}
	if acquired.Int64 != 1 {
		_ = conn.Close()
		return nil, fmt.Errorf("named lock %s: %w", l.name, migrate.ErrLockHeld)
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		_, _ = conn.ExecContext(context.Background(), `SELECT RELEASE_LOCK(?)`, l.name)
		_ = conn.Close()
	}
	return release, nil
}
