// Package mysql implements a MySQL-backed storage.Repository using
// database/sql and go-sql-driver. Batch inserts run inside a transaction
// with a prepared statement.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Config holds MySQL repository configuration.
type Config struct {
	// DSN is a go-sql-driver DSN, e.g.
	// "user:pass@tcp(localhost:3306)/shop?parseTime=true".
	DSN string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository opens a MySQL connection pool and returns a Repository
// plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("mysql: DSN must not be empty")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db}, closeFn, nil
}

// ListKeys returns every non-NULL value of table.column.
func (r *Repository) ListKeys(ctx context.Context, table, column string) ([]string, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s IS NOT NULL",
		myIdent(column), myIdent(table), myIdent(column),
	)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("mysql: list keys %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("mysql: scan key %s.%s: %w", table, column, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql: list keys %s.%s: %w", table, column, err)
	}
	return keys, nil
}

// Clear deletes every row of the table.
func (r *Repository) Clear(ctx context.Context, table string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM "+myIdent(table)); err != nil {
		return fmt.Errorf("mysql: clear %s: %w", table, err)
	}
	return nil
}

// InsertBatch inserts the rows inside a single transaction with a
// prepared statement. The transaction rolls back on any failure, so a
// failed batch inserts nothing.
func (r *Repository) InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: InsertBatch: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(table, columns))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("mysql: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mysql: InsertBatch: row %d length %d != columns length %d", i, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mysql: insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return int64(len(rows)), nil
}

// InsertOne inserts a single row.
func (r *Repository) InsertOne(ctx context.Context, table string, columns []string, row []any) error {
	if _, err := r.db.ExecContext(ctx, insertSQL(table, columns), row...); err != nil {
		return fmt.Errorf("mysql: insert into %s: %w", table, err)
	}
	return nil
}

// Exec executes an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mysql: exec: %w", err)
	}
	return nil
}

func insertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		myIdent(table),
		strings.Join(mapIdent(columns), ", "),
		strings.Join(placeholders, ", "),
	)
}

// myIdent quotes a single identifier with backticks.
func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = myIdent(c)
	}
	return out
}
