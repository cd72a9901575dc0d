package storage

import (
	"context"
	"fmt"
	"sync"

	"sheetsync/internal/schema"
)

// DDLBootstrapper is a backend-specific function that renders and applies
// the DDL for every table in the registry via repo.Exec (CREATE TABLE
// plus indexes, in dependency order).
//
// Backends register their implementation for a given storage kind at
// init time.
type DDLBootstrapper func(ctx context.Context, repo Repository, reg *schema.Registry) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) a DDLBootstrapper for the given
// storage kind. It is typically called from backend packages' init()
// functions.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureSchema locates the DDLBootstrapper for the storage kind and
// invokes it. Callers do not need to know which backend they are using;
// they pass the registry and the already-open Repository.
func EnsureSchema(ctx context.Context, kind string, repo Repository, reg *schema.Registry) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, reg)
}
