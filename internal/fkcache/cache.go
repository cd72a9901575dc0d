// Package fkcache snapshots referenced key columns and filters records
// against them. A snapshot is taken once per table pass, so parent rows
// inserted mid-pass are invisible to the dependent table until the next
// run.
package fkcache

import (
	"context"
	"fmt"
	"strings"

	"sheetsync/internal/schema"
)

// Set holds the distinct non-blank values of one referenced column.
type Set map[string]struct{}

func (s Set) Add(v string) { s[v] = struct{}{} }

func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s Set) Len() int { return len(s) }

// KeyReader supplies the current values of a key column.
type KeyReader interface {
	ListKeys(ctx context.Context, table, column string) ([]string, error)
}

// CacheLoadError reports a failed snapshot load. Without the snapshot
// the dependent table cannot be filtered, so the caller must abort that
// table's pass rather than guess.
type CacheLoadError struct {
	Table  string
	Column string
	Err    error
}

func (e *CacheLoadError) Error() string {
	return fmt.Sprintf("load key cache %s.%s: %v", e.Table, e.Column, e.Err)
}

func (e *CacheLoadError) Unwrap() error { return e.Err }

// LoadSet reads every value of table.column in one bulk call. Values
// are trimmed and blanks dropped.
func LoadSet(ctx context.Context, r KeyReader, table, column string) (Set, error) {
	keys, err := r.ListKeys(ctx, table, column)
	if err != nil {
		return nil, &CacheLoadError{Table: table, Column: column, Err: err}
	}
	set := make(Set, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			set.Add(k)
		}
	}
	return set, nil
}

// BuildCaches loads one Set per foreign key column of t, keyed by the
// referencing column name. Loads run sequentially in declared column
// order. Tables without foreign keys need no caches and return nil.
func BuildCaches(ctx context.Context, r KeyReader, t *schema.Table) (map[string]Set, error) {
	if !t.HasForeignKeys() {
		return nil, nil
	}
	caches := make(map[string]Set, len(t.ForeignKeys))
	for _, col := range t.FKColumns() {
		set, err := LoadSet(ctx, r, t.ForeignKeys[col], col)
		if err != nil {
			return nil, err
		}
		caches[col] = set
	}
	return caches, nil
}
