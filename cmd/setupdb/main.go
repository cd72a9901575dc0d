// Command setupdb prepares the destination database: it prints the
// rendered DDL, applies it, wipes table contents, or checks that every
// table is reachable. Tables are created in dependency order and wiped
// in reverse.
//
// Example:
//
//	setupdb -storage=postgres -sql
//	setupdb -storage=postgres -dsn=postgres://localhost/ecommerce -create
//	setupdb -config=configs/sample.json -wipe
//	setupdb -config=configs/sample.json -probe
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"sheetsync/internal/config"
	"sheetsync/internal/schema"
	"sheetsync/internal/storage"
	"sheetsync/internal/storage/mssql"
	"sheetsync/internal/storage/mysql"
	"sheetsync/internal/storage/postgres"
	"sheetsync/internal/storage/sqlite"
)

func main() {
	var (
		flagConfig = flag.String(
			"config",
			"",
			"import config JSON to take storage kind and DSN from",
		)
		flagStorage = flag.String(
			"storage",
			"",
			"storage kind (postgres, mysql, mssql, sqlite); overrides config",
		)
		flagDSN = flag.String(
			"dsn",
			"",
			"database DSN; overrides config",
		)
		flagSQL = flag.Bool(
			"sql",
			false,
			"print the DDL and exit without connecting",
		)
		flagCreate = flag.Bool(
			"create",
			false,
			"create tables and indexes",
		)
		flagWipe = flag.Bool(
			"wipe",
			false,
			"delete every row, dependents first",
		)
		flagProbe = flag.Bool(
			"probe",
			false,
			"probe each table and report its key count",
		)
		flagTimeout = flag.Duration(
			"timeout",
			2*time.Minute,
			"overall deadline for database work",
		)
	)
	flag.Parse()

	kind, dsn := *flagStorage, *flagDSN
	if *flagConfig != "" {
		cfg, err := config.Load(*flagConfig)
		if err != nil {
			log.Fatalf("setupdb: %v", err)
		}
		if kind == "" {
			kind = cfg.Storage.Kind
		}
		if dsn == "" {
			dsn = cfg.Storage.DSN
		}
	}

	if kind == "" {
		fmt.Fprintln(os.Stderr, "setupdb: -storage or -config is required")
		flag.Usage()
		os.Exit(2)
	}
	if !*flagSQL && !*flagCreate && !*flagWipe && !*flagProbe {
		fmt.Fprintln(os.Stderr, "setupdb: one of -sql, -create, -wipe, -probe is required")
		flag.Usage()
		os.Exit(2)
	}

	reg := schema.Default()

	if *flagSQL {
		if err := printDDL(os.Stdout, kind, reg); err != nil {
			log.Fatalf("setupdb: %v", err)
		}
		return
	}

	if dsn == "" {
		fmt.Fprintln(os.Stderr, "setupdb: -dsn or -config is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	repo, err := storage.New(ctx, storage.Config{Kind: kind, DSN: dsn})
	if err != nil {
		log.Fatalf("setupdb: %v", err)
	}
	defer repo.Close()

	if *flagCreate {
		if err := storage.EnsureSchema(ctx, kind, repo, reg); err != nil {
			log.Fatalf("setupdb: ensure schema: %v", err)
		}
		log.Printf("schema ensured (%s)", kind)
	}

	if *flagWipe {
		for _, table := range reg.ReverseOrder() {
			if err := repo.Clear(ctx, table); err != nil {
				log.Fatalf("setupdb: wipe %s: %v", table, err)
			}
			log.Printf("wiped %s", table)
		}
	}

	if *flagProbe {
		failed := false
		for _, table := range reg.Order() {
			t, err := reg.Get(table)
			if err != nil {
				log.Fatalf("setupdb: %v", err)
			}
			keys, err := repo.ListKeys(ctx, table, probeColumn(t))
			if err != nil {
				failed = true
				fmt.Printf("%-20s ERROR %v\n", table, err)
				continue
			}
			fmt.Printf("%-20s ok    %d keys\n", table, len(keys))
		}
		if failed {
			os.Exit(1)
		}
	}
}

// printDDL writes the statements EnsureSchema would apply. Backends that
// inline their indexes in CREATE TABLE emit no separate index statements.
func printDDL(w io.Writer, kind string, reg *schema.Registry) error {
	for _, name := range reg.Order() {
		t, err := reg.Get(name)
		if err != nil {
			return err
		}
		var stmts []string
		switch kind {
		case "postgres":
			stmts = append(stmts, postgres.CreateTableSQL(t))
			stmts = append(stmts, postgres.CreateIndexSQL(t)...)
		case "mysql":
			stmts = append(stmts, mysql.CreateTableSQL(t))
		case "mssql":
			stmts = append(stmts, mssql.CreateTableSQL(t))
			stmts = append(stmts, mssql.CreateIndexSQL(t)...)
		case "sqlite":
			stmts = append(stmts, sqlite.CreateTableSQL(t))
			stmts = append(stmts, sqlite.CreateIndexSQL(t)...)
		default:
			return fmt.Errorf("unsupported storage kind %q", kind)
		}
		for _, s := range stmts {
			fmt.Fprintf(w, "%s\n\n", s)
		}
	}
	return nil
}

// probeColumn picks the column used for the connectivity check: the
// primary key when there is one, otherwise the first required column.
func probeColumn(t *schema.Table) string {
	if t.PrimaryKey != "" {
		return t.PrimaryKey
	}
	if len(t.Required) > 0 {
		return t.Required[0]
	}
	return t.Columns[0]
}
