// Package metrics exposes Prometheus metrics for migration runs. Metrics
// are useful when the runner is embedded in a long-lived service that
// migrates on startup; the one-shot CLI does not expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MigrationsAppliedTotal tracks the number of migrations applied.
var MigrationsAppliedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kengine_migrate_applied_total",
		Help: "Total migrations applied",
	},
	[]string{"database"},
)

// MigrationsSkippedTotal tracks the number of already-applied migrations skipped.
var MigrationsSkippedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kengine_migrate_skipped_total",
		Help: "Total migrations skipped because they were already applied",
	},
	[]string{"database"},
)

// DriftDetectedTotal tracks checksum mismatches on already-applied migrations.
var DriftDetectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kengine_migrate_drift_detected_total",
		Help: "Total drift warnings emitted for applied migrations",
	},
	[]string{"database"},
)

// RunFailuresTotal tracks runs aborted by a failing migration.
var RunFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kengine_migrate_run_failures_total",
		Help: "Total runs aborted by an error",
	},
	[]string{"database"},
)

// LockContentionTotal tracks runs rejected because another run held the lock.
var LockContentionTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kengine_migrate_lock_contention_total",
		Help: "Total runs rejected by the migration lock",
	},
	[]string{"database"},
)

// RunDuration observes the wall-clock duration of completed runs.
var RunDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "kengine_migrate_run_duration_seconds",
		Help:    "Duration of migration runs",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"database"},
)
