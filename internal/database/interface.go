// Package database is the contract for the lab databases blindsight can
// target directly.
//
// The lab oracle evaluates probe conditions against a live engine instead of
// a vulnerable web application. Drivers live in sub-packages (postgres,
// mysql, sqlite); callers hold only a database.DB, obtained through lab.Open.
package database

import "context"

// DB is the set of operations the lab needs from an engine.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	// Errors are deferred to Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Exec runs a statement that returns no rows and reports rows affected.
	// The lab uses it to seed fixtures.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// ListTables returns the user tables of the current schema in name order.
	ListTables(ctx context.Context) ([]string, error)
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}
