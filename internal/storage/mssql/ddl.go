package mssql

import (
	"context"
	"fmt"
	"strings"

	"sheetsync/internal/schema"
	"sheetsync/internal/storage"
)

// keyedColumn reports whether the column is the primary key or carries a
// secondary index. NVARCHAR(MAX) cannot be an index key, so keyed text
// columns need a bounded type.
func keyedColumn(t *schema.Table, col string) bool {
	if col == t.PrimaryKey {
		return true
	}
	for _, c := range t.IndexColumns() {
		if c == col {
			return true
		}
	}
	return false
}

// columnType maps a declared field type to the SQL Server column type.
func columnType(t *schema.Table, col string) string {
	switch t.TypeOf(col) {
	case schema.TypeDate:
		return "DATE"
	case schema.TypeDecimal:
		return "DECIMAL(10,2)"
	case schema.TypeInteger:
		return "INT"
	default:
		if keyedColumn(t, col) {
			return "NVARCHAR(64)"
		}
		return "NVARCHAR(MAX)"
	}
}

// CreateTableSQL renders a guarded CREATE TABLE script for t. T-SQL has
// no CREATE TABLE IF NOT EXISTS, so the statement is wrapped in an
// IF OBJECT_ID(...) IS NULL block.
func CreateTableSQL(t *schema.Table) string {
	cols := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		def := "    " + msIdent(col) + " " + columnType(t, col)
		if col == t.PrimaryKey {
			def += " PRIMARY KEY"
		}
		if parent, ok := t.ForeignKeys[col]; ok {
			def += fmt.Sprintf(" REFERENCES %s(%s) ON DELETE CASCADE", msIdent(parent), msIdent(col))
		}
		cols = append(cols, def)
	}
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n%s\n  );\nEND;",
		msIdent(t.Name), msIdent(t.Name), strings.Join(cols, ",\n"),
	)
}

// CreateIndexSQL renders one guarded CREATE INDEX per indexed column
// (foreign keys plus declared extras), checking sys.indexes because
// T-SQL has no CREATE INDEX IF NOT EXISTS either.
func CreateIndexSQL(t *schema.Table) []string {
	cols := t.IndexColumns()
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		name := "idx_" + t.Name + "_" + col
		out = append(out, fmt.Sprintf(
			"IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'%s' AND object_id = OBJECT_ID(N'%s'))\n  CREATE INDEX %s ON %s(%s);",
			name, msIdent(t.Name), msIdent(name), msIdent(t.Name), msIdent(col),
		))
	}
	return out
}

// ensureSchema applies the DDL for every registry table in dependency
// order, so referenced tables exist before their REFERENCES clauses.
func ensureSchema(ctx context.Context, repo storage.Repository, reg *schema.Registry) error {
	for _, name := range reg.Order() {
		t, err := reg.Get(name)
		if err != nil {
			return err
		}
		if err := repo.Exec(ctx, CreateTableSQL(t)); err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
		for _, stmt := range CreateIndexSQL(t) {
			if err := repo.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create index on %s: %w", name, err)
			}
		}
	}
	return nil
}
