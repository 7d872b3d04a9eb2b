// Package migrate applies ordered, versioned schema migrations to a
// relational database exactly once per deployment. Applied migrations are
// tracked in a ledger table together with a content checksum, later runs
// skip them, and modifications made after apply time are reported as drift.
// A system-wide lock keeps concurrent invocations from interleaving.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kengine/migrate/fingerprint"
	"github.com/kengine/migrate/metrics"
)

// Config holds the collaborators for a Runner. The runner establishes no
// connections of its own; the caller supplies the database handle the
// migrations execute against.
type Config struct {
	// DB executes migration statements (required).
	DB *sql.DB

	// Source discovers the ordered migration list (required).
	Source Source

	// Ledger tracks applied migrations (required).
	Ledger Ledger

	// Locker serializes runs system-wide (required).
	Locker Locker

	// Logger is for per-migration progress output (optional).
	Logger *logrus.Entry

	// Collector records run metrics (optional).
	Collector *metrics.Collector
}

// Runner orchestrates a single ordered apply pass: discover, lock, consult
// the ledger per migration, execute and record.
type Runner struct {
	config Config
}

// New creates a Runner. It returns an error if a required collaborator is
// missing.
func New(cfg Config) (*Runner, error) {
	if cfg.DB == nil {
		return nil, errors.New("migrate: Config.DB is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("migrate: Config.Source is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("migrate: Config.Ledger is required")
	}
	if cfg.Locker == nil {
		return nil, errors.New("migrate: Config.Locker is required")
	}
	return &Runner{config: cfg}, nil
}

// Run applies all pending migrations in ascending name order and returns
// counts of applied, skipped and drifted migrations. An empty pending set
// is a successful no-op.
//
// Per migration: absent from the ledger means apply and record; present
// with a matching checksum means skip; present with a different checksum
// means a drift warning and a skip, never an automatic re-apply. The first
// execution failure aborts the run; migrations applied before the failure
// stay recorded, so a corrected rerun resumes where this one stopped.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	migrations, err := r.config.Source.Discover()
	if err != nil {
		return Result{}, fmt.Errorf("discover migrations: %w", err)
	}

	release, err := r.config.Locker.TryAcquire(ctx)
	if err != nil {
		if errors.Is(err, ErrLockHeld) && r.config.Collector != nil {
			r.config.Collector.IncLockContention()
		}
		return Result{}, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer release()

	if err := r.config.Ledger.EnsureSchema(ctx); err != nil {
		return Result{}, fmt.Errorf("ensure migration ledger: %w", err)
	}

	var res Result
	for _, m := range migrations {
		stored, applied, err := r.config.Ledger.Lookup(ctx, m.Name)
		if err != nil {
			return res, fmt.Errorf("lookup %s: %w", m.Name, err)
		}

		if applied {
			res.Skipped++
			if r.config.Collector != nil {
				r.config.Collector.IncSkipped()
			}
			// An empty stored checksum means the row predates checksum
			// tracking; the content at apply time is unknown, not drifted.
			if stored != "" && stored != m.Checksum {
				res.Drifted++
				if r.config.Collector != nil {
					r.config.Collector.IncDrift()
				}
				r.log().WithFields(logrus.Fields{
					"migration":    m.Name,
					"stored_hash":  fingerprint.Short(stored),
					"current_hash": fingerprint.Short(m.Checksum),
				}).Warn("drift detected: migration changed after apply, keeping recorded version")
			} else {
				r.log().WithField("migration", m.Name).Debug("already applied, skipping")
			}
			continue
		}

		r.log().WithFields(logrus.Fields{
			"migration": m.Name,
			"tx_mode":   m.TxMode,
		}).Info("applying")

		if err := r.apply(ctx, m); err != nil {
			if r.config.Collector != nil {
				r.config.Collector.IncRunFailures()
			}
			r.log().WithField("migration", m.Name).WithError(err).Error("migration failed, aborting run")
			return res, &ApplyError{Name: m.Name, Err: err}
		}

		if err := r.config.Ledger.Record(ctx, m.Name, m.Checksum); err != nil {
			return res, fmt.Errorf("record %s: %w", m.Name, err)
		}
		res.Applied++
		if r.config.Collector != nil {
			r.config.Collector.IncApplied()
		}
		r.log().WithField("migration", m.Name).Info("applied")
	}

	if r.config.Collector != nil {
		r.config.Collector.ObserveRunDuration(time.Since(start))
	}
	r.log().WithFields(logrus.Fields{
		"applied": res.Applied,
		"skipped": res.Skipped,
		"drifted": res.Drifted,
	}).Info("migration run complete")

	return res, nil
}

// apply executes one migration under its declared transaction mode.
func (r *Runner) apply(ctx context.Context, m Migration) error {
	if m.TxMode == TxModeNone {
		_, err := r.config.DB.ExecContext(ctx, string(m.Content))
		return err
	}

	tx, err := r.config.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, string(m.Content)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Runner) log() *logrus.Entry {
	if r.config.Logger != nil {
		return r.config.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
