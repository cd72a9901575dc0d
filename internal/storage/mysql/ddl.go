package mysql

import (
	"context"
	"fmt"
	"strings"

	"sheetsync/internal/schema"
	"sheetsync/internal/storage"
)

// keyedColumn reports whether the column is the primary key or carries a
// secondary index. MySQL cannot index a bare TEXT column, so keyed text
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

// columnType maps a declared field type to the MySQL column type.
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
			return "VARCHAR(64)"
		}
		return "TEXT"
	}
}

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS for t. Foreign keys
// are table-level clauses (InnoDB ignores column-level REFERENCES), and
// secondary indexes are declared inline because MySQL has no
// CREATE INDEX IF NOT EXISTS.
func CreateTableSQL(t *schema.Table) string {
	defs := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+4)
	for _, col := range t.Columns {
		def := "  " + myIdent(col) + " " + columnType(t, col)
		if col == t.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	for _, col := range t.FKColumns() {
		parent := t.ForeignKeys[col]
		defs = append(defs, fmt.Sprintf(
			"  FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE CASCADE",
			myIdent(col), myIdent(parent), myIdent(col),
		))
	}
	for _, col := range t.IndexColumns() {
		defs = append(defs, fmt.Sprintf(
			"  INDEX %s (%s)",
			myIdent("idx_"+t.Name+"_"+col), myIdent(col),
		))
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n%s\n) ENGINE=InnoDB;",
		myIdent(t.Name), strings.Join(defs, ",\n"),
	)
}

// ensureSchema applies the DDL for every registry table in dependency
// order, so referenced tables exist before their FOREIGN KEY clauses.
// Indexes ride along inside CREATE TABLE, covered by the same IF NOT
// EXISTS guard.
func ensureSchema(ctx context.Context, repo storage.Repository, reg *schema.Registry) error {
	for _, name := range reg.Order() {
		t, err := reg.Get(name)
		if err != nil {
			return err
		}
		if err := repo.Exec(ctx, CreateTableSQL(t)); err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}
	return nil
}
