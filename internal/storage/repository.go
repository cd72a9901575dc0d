// Package storage contains storage-agnostic contracts and the backend
// factory. Concrete backends (postgres, sqlite, mysql, mssql) register
// themselves at init time; importing storage/all enables every built-in
// backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is the database surface the import pipeline needs. A single
// Repository serves every table of one destination database.
type Repository interface {
	// ListKeys returns every non-NULL value of table.column, used to
	// snapshot referenced key columns.
	ListKeys(ctx context.Context, table, column string) ([]string, error)

	// Clear deletes all rows of the table.
	Clear(ctx context.Context, table string) error

	// InsertBatch inserts rows (aligned to columns order) in one batch
	// and returns the number of rows inserted. A failed batch inserts
	// nothing.
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// InsertOne inserts a single row, the fallback when a batch fails.
	InsertOne(ctx context.Context, table string, columns []string, row []any) error

	// Exec runs an arbitrary SQL statement (typically DDL).
	Exec(ctx context.Context, sql string) error

	// Close releases the underlying pool or connection.
	Close()
}

// Config selects and configures a backend.
type Config struct {
	// Kind is the backend name, e.g. "postgres" or "sqlite".
	Kind string

	// DSN is the backend connection string, passed through verbatim.
	DSN string
}

// Factory opens a Repository for a Config. Backends register one per
// kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for a storage kind. It is
// typically called from backend packages' init() functions.
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = fn
}

// New opens a Repository for cfg.Kind using the registered factory.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	fn, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return fn(ctx, cfg)
}

// ListKinds returns the registered backend kinds, sorted, as a snapshot
// copy.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
