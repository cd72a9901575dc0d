// Package schema holds the static table declarations driving validation,
// referential checks, and DDL generation. The registry is built once at
// startup and is read-only afterwards; a malformed declaration is a startup
// failure, never a per-row condition.
package schema

import (
	"errors"
	"fmt"
)

// FieldType is the declared logical type of a column.
type FieldType string

const (
	TypeText    FieldType = "text"
	TypeDecimal FieldType = "decimal"
	TypeInteger FieldType = "integer"
	TypeDate    FieldType = "date"
)

// ErrUnknownTable is returned (wrapped) by Registry.Get for tables that were
// never declared.
var ErrUnknownTable = errors.New("unknown table")

// Table declares the expected shape of one spreadsheet tab / target table.
//
// ForeignKeys maps a column to the referenced table; by convention the key
// column in the referenced table carries the same name (id_produto in vendas
// references id_produto in produtos). NonNegative lists decimal columns that
// must not hold values below zero (prices). ExtraIndexes lists non-FK
// columns that get a secondary index in the store.
type Table struct {
	Name         string
	Columns      []string
	Required     []string
	Types        map[string]FieldType
	ForeignKeys  map[string]string
	PrimaryKey   string
	NonNegative  []string
	ExtraIndexes []string

	columnSet   map[string]bool
	requiredSet map[string]bool
	nonNegSet   map[string]bool
}

// check validates the declaration invariants and builds the lookup sets.
func (t *Table) check() error {
	if t.Name == "" {
		return errors.New("schema: table with empty name")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("schema: table %q declares no columns", t.Name)
	}

	t.columnSet = make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c == "" {
			return fmt.Errorf("schema: table %q has an empty column name", t.Name)
		}
		if t.columnSet[c] {
			return fmt.Errorf("schema: table %q declares column %q twice", t.Name, c)
		}
		t.columnSet[c] = true
	}

	t.requiredSet = make(map[string]bool, len(t.Required))
	for _, c := range t.Required {
		if !t.columnSet[c] {
			return fmt.Errorf("schema: table %q marks unknown column %q required", t.Name, c)
		}
		t.requiredSet[c] = true
	}

	for c, typ := range t.Types {
		if !t.columnSet[c] {
			return fmt.Errorf("schema: table %q types unknown column %q", t.Name, c)
		}
		switch typ {
		case TypeText, TypeDecimal, TypeInteger, TypeDate:
		default:
			return fmt.Errorf("schema: table %q column %q has unsupported type %q", t.Name, c, typ)
		}
	}

	for c := range t.ForeignKeys {
		if !t.columnSet[c] {
			return fmt.Errorf("schema: table %q declares FK on unknown column %q", t.Name, c)
		}
	}

	t.nonNegSet = make(map[string]bool, len(t.NonNegative))
	for _, c := range t.NonNegative {
		if !t.columnSet[c] {
			return fmt.Errorf("schema: table %q marks unknown column %q non-negative", t.Name, c)
		}
		if t.TypeOf(c) != TypeDecimal {
			return fmt.Errorf("schema: table %q non-negative column %q is not decimal", t.Name, c)
		}
		t.nonNegSet[c] = true
	}

	if t.PrimaryKey != "" && !t.columnSet[t.PrimaryKey] {
		return fmt.Errorf("schema: table %q primary key %q is not a declared column", t.Name, t.PrimaryKey)
	}
	for _, c := range t.ExtraIndexes {
		if !t.columnSet[c] {
			return fmt.Errorf("schema: table %q indexes unknown column %q", t.Name, c)
		}
	}
	return nil
}

// TypeOf returns the declared type of a column, defaulting to text.
func (t *Table) TypeOf(column string) FieldType {
	if typ, ok := t.Types[column]; ok {
		return typ
	}
	return TypeText
}

// IsRequired reports whether the column must hold a value.
func (t *Table) IsRequired(column string) bool { return t.requiredSet[column] }

// IsNonNegative reports whether the column refuses negative values.
func (t *Table) IsNonNegative(column string) bool { return t.nonNegSet[column] }

// HasColumn reports whether the column is declared.
func (t *Table) HasColumn(column string) bool { return t.columnSet[column] }

// HasForeignKeys reports whether the table references other tables.
func (t *Table) HasForeignKeys() bool { return len(t.ForeignKeys) > 0 }

// FKColumns returns the FK columns in declared column order, so diagnostics
// and cache construction are deterministic.
func (t *Table) FKColumns() []string {
	out := make([]string, 0, len(t.ForeignKeys))
	for _, c := range t.Columns {
		if _, ok := t.ForeignKeys[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// IndexColumns returns the columns that receive a secondary index: every FK
// column plus the declared extras, in column order, without duplicates.
func (t *Table) IndexColumns() []string {
	extra := make(map[string]bool, len(t.ExtraIndexes))
	for _, c := range t.ExtraIndexes {
		extra[c] = true
	}
	out := make([]string, 0, len(t.ForeignKeys)+len(t.ExtraIndexes))
	for _, c := range t.Columns {
		if _, ok := t.ForeignKeys[c]; ok || extra[c] {
			out = append(out, c)
		}
	}
	return out
}

// Registry is the process-wide set of table declarations. Declaration order
// is the load order: a table must appear after every table it references, so
// masters load before transactional tables and FK caches are never built
// against a table that still holds last run's keys.
type Registry struct {
	order  []string
	tables map[string]*Table
}

// New builds a Registry, validating each table and the cross-table
// invariants (FK targets declared, and declared earlier in the order).
func New(tables ...*Table) (*Registry, error) {
	r := &Registry{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if err := t.check(); err != nil {
			return nil, err
		}
		if _, dup := r.tables[t.Name]; dup {
			return nil, fmt.Errorf("schema: table %q declared twice", t.Name)
		}
		for col, ref := range t.ForeignKeys {
			target, ok := r.tables[ref]
			if !ok {
				return nil, fmt.Errorf("schema: table %q column %q references %q, which is not declared before it", t.Name, col, ref)
			}
			if !target.HasColumn(col) {
				return nil, fmt.Errorf("schema: table %q column %q has no counterpart in referenced table %q", t.Name, col, ref)
			}
		}
		r.tables[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r, nil
}

// MustNew is New for fixed declarations; it panics on a malformed schema.
func MustNew(tables ...*Table) *Registry {
	r, err := New(tables...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the declaration for name, or an ErrUnknownTable error.
func (r *Registry) Get(name string) (*Table, error) {
	t, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return t, nil
}

// Order returns the table names in dependency order (masters first).
func (r *Registry) Order() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ReverseOrder returns the table names dependents-first, the safe order for
// clearing data.
func (r *Registry) ReverseOrder() []string {
	out := make([]string, len(r.order))
	for i, name := range r.order {
		out[len(out)-1-i] = name
	}
	return out
}

// Len returns the number of declared tables.
func (r *Registry) Len() int { return len(r.order) }
