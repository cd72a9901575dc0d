package postgres

import (
	"context"
	"fmt"
	"strings"

	"sheetsync/internal/schema"
	"sheetsync/internal/storage"
)

// columnType maps a declared field type to the Postgres column type.
func columnType(ft schema.FieldType) string {
	switch ft {
	case schema.TypeDate:
		return "DATE"
	case schema.TypeDecimal:
		return "DECIMAL(10,2)"
	case schema.TypeInteger:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS for t, with inline
// PRIMARY KEY and REFERENCES clauses. Foreign keys cascade on delete:
// clearing a parent table also clears its dependents, which reload later
// in the same run.
func CreateTableSQL(t *schema.Table) string {
	cols := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		def := "  " + pgIdent(col) + " " + columnType(t.TypeOf(col))
		if col == t.PrimaryKey {
			def += " PRIMARY KEY"
		}
		if parent, ok := t.ForeignKeys[col]; ok {
			def += fmt.Sprintf(" REFERENCES %s(%s) ON DELETE CASCADE", pgIdent(parent), pgIdent(col))
		}
		cols = append(cols, def)
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n%s\n);",
		pgIdent(t.Name), strings.Join(cols, ",\n"),
	)
}

// CreateIndexSQL renders one CREATE INDEX IF NOT EXISTS per indexed
// column (foreign keys plus declared extras).
func CreateIndexSQL(t *schema.Table) []string {
	cols := t.IndexColumns()
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		out = append(out, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s(%s);",
			pgIdent("idx_"+t.Name+"_"+col), pgIdent(t.Name), pgIdent(col),
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
