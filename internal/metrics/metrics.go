// Package metrics instruments import runs without binding the pipeline
// to one telemetry system. The pipeline calls the Record helpers; a
// process installs a concrete Backend (Prometheus Pushgateway, DogStatsD)
// at startup or leaves the default no-op in place, so recording is always
// safe to call.
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend. Exporters key their collectors
// on these, so the pipeline and the backends stay in step.
const (
	MetricTables        = "sheetsync_tables_total"
	MetricTableDuration = "sheetsync_table_duration_seconds"
	MetricRows          = "sheetsync_rows_total"
	MetricBatches       = "sheetsync_batches_total"
)

// Labels attach dimension values to one observation.
type Labels map[string]string

// Backend receives every observation. Implementations live in the
// subpackages and may ignore names they do not collect.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush delivers anything buffered; called once at process exit.
	Flush() error
}

// Nop discards every observation. It is the default backend.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	current Backend = Nop{}
)

// SetBackend installs b as the process-wide backend; nil restores the
// no-op default.
func SetBackend(b Backend) {
	if b == nil {
		b = Nop{}
	}
	mu.Lock()
	current = b
	mu.Unlock()
}

func active() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Flush flushes the installed backend.
func Flush() error { return active().Flush() }

// RecordTable counts one per-table import pass and times it. err only
// selects the status label; handling the error stays with the caller.
func RecordTable(job, table string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "table": table, "status": status}
	b := active()
	b.IncCounter(MetricTables, 1, lbls)
	b.ObserveHistogram(MetricTableDuration, d.Seconds(), lbls)
}

// RecordRows adds a row count in one outcome bucket (read, empty,
// duplicate, valid, invalid, fk_rejected, inserted, insert_errors).
// Non-positive deltas are dropped so result counters can be forwarded
// field by field.
func RecordRows(job, table, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	active().IncCounter(MetricRows, float64(delta), Labels{
		"job":   job,
		"table": table,
		"kind":  kind,
	})
}

// RecordBatches adds flushed insert batches for one table.
func RecordBatches(job, table string, delta int64) {
	if delta <= 0 {
		return
	}
	active().IncCounter(MetricBatches, float64(delta), Labels{
		"job":   job,
		"table": table,
	})
}
