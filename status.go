package migrate

import (
	"context"
	"fmt"
)

// StatusEntry pairs a ledger record with the drift state of the
// corresponding file in the migration directory.
type StatusEntry struct {
	Entry

	// CurrentSHA256 is the checksum of the file as it exists now. Empty
	// when the file has been removed from the directory.
	CurrentSHA256 string

	// Drifted reports that the file content no longer matches the checksum
	// stored at apply time.
	Drifted bool

	// Missing reports that the recorded migration no longer exists on disk.
	Missing bool
}

// Status describes the ledger relative to the migration directory.
type Status struct {
	// Entries are the applied migrations, ordered by filename.
	Entries []StatusEntry

	// Pending are discovered migrations not yet applied, in apply order.
	Pending []string
}

// Status reports applied migrations with per-entry drift checks plus the
// pending set. It bootstraps the ledger table if needed but applies
// nothing, and takes no lock since it only reads.
func (r *Runner) Status(ctx context.Context) (Status, error) {
	migrations, err := r.config.Source.Discover()
	if err != nil {
		return Status{}, fmt.Errorf("discover migrations: %w", err)
	}

	if err := r.config.Ledger.EnsureSchema(ctx); err != nil {
		return Status{}, fmt.Errorf("ensure migration ledger: %w", err)
	}
	entries, err := r.config.Ledger.Applied(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("read migration ledger: %w", err)
	}

	current := make(map[string]string, len(migrations))
	for _, m := range migrations {
		current[m.Name] = m.Checksum
	}
	applied := make(map[string]bool, len(entries))

	var status Status
	for _, e := range entries {
		applied[e.Filename] = true
		se := StatusEntry{Entry: e}
		hash, onDisk := current[e.Filename]
		if !onDisk {
			se.Missing = true
		} else {
			se.CurrentSHA256 = hash
			// Rows without a stored checksum predate checksum tracking and
			// cannot be judged for drift.
			se.Drifted = e.ContentSHA256 != "" && hash != e.ContentSHA256
		}
		status.Entries = append(status.Entries, se)
	}

	for _, m := range migrations {
		if !applied[m.Name] {
			status.Pending = append(status.Pending, m.Name)
		}
	}

	return status, nil
}
