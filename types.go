package migrate

import (
	"context"
	"time"
)

// TxMode declares how a migration's statements are executed.
type TxMode string

const (
	// TxModeWrapped runs the migration inside a single transaction that is
	// rolled back if any statement fails.
	TxModeWrapped TxMode = "wrapped"

	// TxModeNone runs the migration as raw statements with no enclosing
	// transaction. Required for DDL the engine refuses to run inside a
	// transaction block, such as CREATE INDEX CONCURRENTLY. A migration in
	// this mode is recorded only after all statements succeed, so a partial
	// failure leaves it unrecorded and it is retried on the next run; such
	// migrations must be written to be safe to rerun.
	TxModeNone TxMode = "none"
)

// Migration is a single named, ordered schema-change script discovered from
// the migration directory. Filenames sort lexically into execution order.
// A Migration is immutable for the duration of a run.
type Migration struct {
	// Name is the filename of the script, unique within the directory.
	Name string

	// Content is the raw file content.
	Content []byte

	// Checksum is the hex-encoded SHA-256 of Content, computed once at
	// discovery time.
	Checksum string

	// TxMode is derived from the no-transaction marker near the top of the
	// file at discovery time.
	TxMode TxMode
}

// Result summarizes a run. A run that fails partway still reports the
// migrations it applied before the failure.
type Result struct {
	// Applied is the number of migrations executed and recorded by this run.
	Applied int

	// Skipped is the number of migrations already present in the ledger,
	// including drifted ones.
	Skipped int

	// Drifted is the number of skipped migrations whose current content
	// checksum no longer matches the checksum stored at apply time.
	Drifted int
}

// Entry is one applied-migration record from the ledger.
type Entry struct {
	// Filename identifies the migration. Primary key of the tracking table.
	Filename string

	// ContentSHA256 is the checksum recorded when the migration was applied.
	// Empty for rows written by deployments that predate checksum tracking.
	ContentSHA256 string

	// AppliedAt is when the migration was recorded.
	AppliedAt time.Time
}

// Source discovers the ordered migration list. Implementations must return
// migrations sorted by name using plain byte-wise comparison; that order is
// the sole inter-migration dependency mechanism.
type Source interface {
	Discover() ([]Migration, error)
}

// Locker serializes migration runs system-wide.
type Locker interface {
	// TryAcquire makes a non-blocking attempt to obtain the lock. If another
	// session already holds it, TryAcquire returns an error wrapping
	// ErrLockHeld immediately rather than waiting. On success it returns a
	// release function that must run on every exit path of the run; release
	// is idempotent and ignores errors.
	TryAcquire(ctx context.Context) (release func(), err error)
}

// Ledger is the persistent record of which migrations have been applied and
// the content checksum each carried at apply time.
type Ledger interface {
	// EnsureSchema creates the tracking table if absent and upgrades a
	// pre-checksum deployment in place. Safe to call on every run.
	EnsureSchema(ctx context.Context) error

	// Lookup returns the checksum recorded for a migration, or ok=false if
	// the migration has never been applied.
	Lookup(ctx context.Context, filename string) (hash string, ok bool, err error)

	// Record inserts an applied-migration record. Recording a filename that
	// already exists is a no-op; the stored checksum is never overwritten.
	Record(ctx context.Context, filename, hash string) error

	// Applied returns all records ordered by filename.
	Applied(ctx context.Context) ([]Entry, error)
}
