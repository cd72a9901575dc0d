package sqlite

import (
	"context"
	"fmt"
	"strings"

	"sheetsync/internal/schema"
	"sheetsync/internal/storage"
)

// columnType maps a declared field type to a SQLite column type. Dates
// stay TEXT so the canonical ISO form round-trips unchanged through the
// NUMERIC-affinity rules.
func columnType(ft schema.FieldType) string {
	switch ft {
	case schema.TypeDecimal:
		return "REAL"
	case schema.TypeInteger:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS for t.
func CreateTableSQL(t *schema.Table) string {
	cols := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		def := "  " + sqlIdent(col) + " " + columnType(t.TypeOf(col))
		if col == t.PrimaryKey {
			def += " PRIMARY KEY"
		}
		if parent, ok := t.ForeignKeys[col]; ok {
			def += fmt.Sprintf(" REFERENCES %s(%s) ON DELETE CASCADE", sqlIdent(parent), sqlIdent(col))
		}
		cols = append(cols, def)
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n%s\n);",
		sqlIdent(t.Name), strings.Join(cols, ",\n"),
	)
}

// CreateIndexSQL renders one CREATE INDEX IF NOT EXISTS per indexed
// column.
func CreateIndexSQL(t *schema.Table) []string {
	cols := t.IndexColumns()
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		out = append(out, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s(%s);",
			sqlIdent("idx_"+t.Name+"_"+col), sqlIdent(t.Name), sqlIdent(col),
		))
	}
	return out
}

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
