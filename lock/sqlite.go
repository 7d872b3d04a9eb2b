package lock

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kengine/migrate"
)

// DefaultLeaseTTL is how long a SQLite lease remains valid without renewal.
// A holder that crashes stops renewing, so the lease lapses and the next
// caller can take over after at most this long.
const DefaultLeaseTTL = 60 * time.Second

const leaseTable = "schema_migrations_lock"

// SQLiteLease implements migrate.Locker for SQLite, which has no advisory
// lock primitive. A single lease row records the current owner and an
// expiry. The lease is renewed on a background ticker while held, which
// preserves the property that a crashed holder cannot permanently wedge
// the system.
type SQLiteLease struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteLease creates a lease locker with DefaultLeaseTTL.
func NewSQLiteLease(db *sql.DB) *SQLiteLease {
	return NewSQLiteLeaseWithTTL(db, DefaultLeaseTTL)
}

// NewSQLiteLeaseWithTTL creates a lease locker with a custom TTL. The TTL
// bounds how long a crashed run blocks subsequent runs, so it should be
// comfortably longer than the renewal interval (TTL/3) but short enough
// that recovery is tolerable.
func NewSQLiteLeaseWithTTL(db *sql.DB, ttl time.Duration) *SQLiteLease {
	return &SQLiteLease{db: db, ttl: ttl}
}

// TryAcquire inserts the lease row, or takes over an existing row whose
// lease has expired. If a live lease belongs to another owner, the attempt
// fails immediately with migrate.ErrLockHeld. On success a renewal
// goroutine extends the lease until release is called.
func (l *SQLiteLease) TryAcquire(ctx context.Context) (func(), error) {
	if _, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+leaseTable+` (
			lock_id INTEGER PRIMARY KEY CHECK (lock_id = 1),
			owner TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("create lease table: %w", err)
	}

	owner := uuid.New().String()
	now := time.Now().UTC()

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO `+leaseTable+` (lock_id, owner, expires_at)
		VALUES (1, ?, ?)
		ON CONFLICT (lock_id) DO UPDATE
		SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE `+leaseTable+`.expires_at <= ?`,
		owner, now.Add(l.ttl), now)
	if err != nil {
		return nil, fmt.Errorf("acquire lease: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("acquire lease: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("migration lease: %w", migrate.ErrLockHeld)
	}

	renewCtx, stopRenewal := context.WithCancel(context.Background())
	go l.renew(renewCtx, owner)

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		stopRenewal()
		_, _ = l.db.ExecContext(context.Background(),
			`DELETE FROM `+leaseTable+` WHERE lock_id = 1 AND owner = ?`, owner)
	}
	return release, nil
}

// renew extends the lease every TTL/3 until the context is cancelled.
// Renewal failures are ignored; if they persist the lease simply lapses
// and another run takes over.
func (l *SQLiteLease) renew(ctx context.Context, owner string) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = l.db.ExecContext(ctx, `
				UPDATE `+leaseTable+`
				SET expires_at = ?
				WHERE lock_id = 1 AND owner = ?`,
				time.Now().UTC().Add(l.ttl), owner)
		}
	}
}
