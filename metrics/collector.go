package metrics

import "time"

// Collector wraps the package metrics with a pre-filled database label.
type Collector struct {
	database string
}

// NewCollector creates a Collector for the given database label, typically
// the adapter name (postgres, mysql, sqlite).
func NewCollector(database string) *Collector {
	return &Collector{database: database}
}

// IncApplied increments the applied-migrations counter.
func (c *Collector) IncApplied() {
	MigrationsAppliedTotal.WithLabelValues(c.database).Inc()
}

// IncSkipped increments the skipped-migrations counter.
func (c *Collector) IncSkipped() {
	MigrationsSkippedTotal.WithLabelValues(c.database).Inc()
}

// IncDrift increments the drift-detected counter.
func (c *Collector) IncDrift() {
	DriftDetectedTotal.WithLabelValues(c.database).Inc()
}

// IncRunFailures increments the aborted-runs counter.
func (c *Collector) IncRunFailures() {
	RunFailuresTotal.WithLabelValues(c.database).Inc()
}

// IncLockContention increments the lock-contention counter.
func (c *Collector) IncLockContention() {
	LockContentionTotal.WithLabelValues(c.database).Inc()
}

// ObserveRunDuration records the duration of a completed run.
func (c *Collector) ObserveRunDuration(d time.Duration) {
	RunDuration.WithLabelValues(c.database).Observe(d.Seconds())
}
