// Package prompush pushes run metrics to a Prometheus Pushgateway. An
// import run is a short-lived batch job with nothing left to scrape once
// it exits, so instead of exposing /metrics the backend collects into a
// private registry and pushes the whole registry once, at the end of the
// run. All Prometheus dependencies stay inside this package; the rest of
// the pipeline sees only metrics.Backend.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"sheetsync/internal/metrics"
)

// Backend collects pipeline metrics and pushes them as one job group.
// Construct it with NewBackend; the zero value has no collectors.
type Backend struct {
	url string
	job string
	reg *prometheus.Registry

	tables    *prometheus.CounterVec
	durations *prometheus.SummaryVec
	rows      *prometheus.CounterVec
	batches   *prometheus.CounterVec
}

// NewBackend builds the collector set for one run. jobName becomes the
// Pushgateway grouping key, defaulting to "sheetsync"; gatewayURL is the
// Pushgateway base URL and is required.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "sheetsync"
	}

	b := &Backend{
		url: gatewayURL,
		job: jobName,
		reg: prometheus.NewRegistry(),
		tables: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.MetricTables,
			Help: "Per-table import passes by status.",
		}, []string{"table", "status"}),
		durations: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.MetricTableDuration,
			Help:       "Per-table import duration in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"table", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.MetricRows,
			Help: "Rows per table and outcome bucket.",
		}, []string{"table", "kind"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.MetricBatches,
			Help: "Insert batches flushed per table.",
		}, []string{"table"}),
	}
	// The registry is fresh, so registration cannot collide.
	b.reg.MustRegister(b.tables, b.durations, b.rows, b.batches)
	return b, nil
}

// IncCounter routes a counter delta to the matching collector. The job
// label is dropped here; the Pushgateway grouping key already carries it.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.MetricTables:
		b.tables.WithLabelValues(labels["table"], labels["status"]).Add(delta)
	case metrics.MetricRows:
		b.rows.WithLabelValues(labels["table"], labels["kind"]).Add(delta)
	case metrics.MetricBatches:
		b.batches.WithLabelValues(labels["table"]).Add(delta)
	}
}

// ObserveHistogram records a table duration; other names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.MetricTableDuration {
		return
	}
	b.durations.WithLabelValues(labels["table"], labels["status"]).Observe(value)
}

// Flush pushes the whole registry to the Pushgateway in one request.
func (b *Backend) Flush() error {
	return push.New(b.url, b.job).Gatherer(b.reg).Push()
}
