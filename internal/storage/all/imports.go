// Package all wires every built-in storage backend into the storage
// factory.
//
// This package exists purely for side effects: importing it (even as a
// blank import) runs the init functions of each concrete backend, which
// register their factories and DDL bootstrappers with the storage
// package. After
//
//	import _ "sheetsync/internal/storage/all"
//
// the kinds "mssql", "mysql", "postgres", and "sqlite" are available
// through storage.New and storage.EnsureSchema. A binary that needs only
// a subset can import the individual backend packages instead.
package all

import (
	_ "sheetsync/internal/storage/mssql"
	_ "sheetsync/internal/storage/mysql"
	_ "sheetsync/internal/storage/postgres"
	_ "sheetsync/internal/storage/sqlite"
)
