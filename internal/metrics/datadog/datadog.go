// Package datadog forwards metrics to a DogStatsD endpoint (a local
// Datadog agent, typically) using the official v5 client. Labels become
// "key:value" tags. The client buffers internally, so Flush maps to
// closing the client at the end of the run.
package datadog

import (
	"fmt"
	"sort"

	"github.com/DataDog/datadog-go/v5/statsd"

	"sheetsync/internal/metrics"
)

// Config holds DogStatsD client settings.
type Config struct {
	// Addr is the DogStatsD endpoint, "host:port" or "unix:///path".
	Addr string

	// Namespace prefixes every metric name, e.g. "sheetsync.".
	Namespace string

	// GlobalTags ride along on every metric, e.g. "env:prod".
	GlobalTags []string
}

// Backend relays observations to DogStatsD. The underlying client is
// safe for concurrent use.
type Backend struct {
	c *statsd.Client
}

// NewBackend dials the DogStatsD endpoint. Addr is required.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}
	var opts []statsd.Option
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: dial %s: %w", cfg.Addr, err)
	}
	return &Backend{c: c}, nil
}

// IncCounter emits a count. DogStatsD counts are integral; fractional
// deltas truncate.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.c == nil {
		return
	}
	_ = b.c.Count(name, int64(delta), tags(labels), 1)
}

// ObserveHistogram emits a histogram sample.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.c == nil {
		return
	}
	_ = b.c.Histogram(name, value, tags(labels), 1)
}

// Flush closes the client, which sends anything still buffered. An
// import run flushes exactly once, on exit.
func (b *Backend) Flush() error {
	if b.c == nil {
		return nil
	}
	return b.c.Close()
}

// tags renders labels as "key:value", sorted so repeated observations
// carry an identical tag set.
func tags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	keys := make([]string, 0, len(lbls))
	for k := range lbls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + ":" + lbls[k]
	}
	return out
}
