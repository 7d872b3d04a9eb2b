package migrate

import (
	"errors"
	"fmt"
)

var (
	// ErrLockHeld indicates another migration run currently holds the
	// advisory lock. The attempt fails immediately; there is no waiting or
	// queueing behind the holder.
	ErrLockHeld = errors.New("migration lock held by another session")
)

// ApplyError reports the migration whose statements failed. The run aborts
// at the failing migration; everything applied before it stays applied and
// recorded, so a corrected rerun resumes from the failure point.
type ApplyError struct {
	// Name is the filename of the failing migration.
	Name string

	// Err is the underlying database error.
	Err error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply migration %s: %v", e.Name, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
