// Package types contains the core definitions shared by the query builder,
// its connectors and their test doubles. They live apart from the database
// package to avoid import cycles and to keep them easy to mock.
//
//nolint:revive // Package name "types" is intentionally generic to avoid circular imports
package types

import (
	"context"
	"database/sql"
)

// Database vendor identifiers shared across the database packages.
type Vendor = string

const (
	MySQL      Vendor = "mysql"
	SQLite     Vendor = "sqlite"
	PostgreSQL Vendor = "postgresql"
)

// Connector is the external collaborator the builder hands finished SQL to.
// The builder never parses what the connector returns; it only needs text
// execution, the vendor's string escaping primitive, column introspection for
// ColumnsExcept and a way to release the connection on fatal paths.
type Connector interface {
	// Query executes a statement that returns rows, typically a SELECT.
	// The caller is responsible for closing the returned rows.
	Query(ctx context.Context, query string) (*sql.Rows, error)

	// Exec executes a statement that doesn't return rows (INSERT, UPDATE, DELETE).
	Exec(ctx context.Context, query string) (sql.Result, error)

	// Escape escapes a raw string so it can be embedded between single quotes.
	// It must not add the surrounding quotes itself.
	Escape(raw string) string

	// ListColumns returns the physical column names of table in ordinal order.
	// Unknown tables fail with a *SchemaError.
	ListColumns(ctx context.Context, table string) ([]string, error)

	// Release closes the underlying connection. It is safe to call more than once.
	Release() error

	// DatabaseType returns the vendor identifier for this connector.
	DatabaseType() string
}
