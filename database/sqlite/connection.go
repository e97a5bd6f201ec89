// Package sqlite provides the SQLite connector, backed by the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/gaborage/qdb/config"
	"github.com/gaborage/qdb/database/internal/encode"
	"github.com/gaborage/qdb/database/internal/sqlconn"
	"github.com/gaborage/qdb/database/types"
	"github.com/gaborage/qdb/logger"
)

// MemoryDatabase opens a private in-memory database.
const MemoryDatabase = ":memory:"

// Connection implements types.Connector for SQLite.
type Connection struct {
	*sqlconn.Conn
}

var openSQLiteDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("sqlite", dsn)
}

// DSN returns the connection string, else the database path, else MemoryDatabase.
func DSN(cfg *config.DatabaseConfig) string {
	switch {
	case cfg.ConnectionString != "":
		return cfg.ConnectionString
	case cfg.Database != "":
		return cfg.Database
	default:
		return MemoryDatabase
	}
}

// NewConnection opens a SQLite database. Every pooled connection to
// ":memory:" would see its own empty database, so in-memory pools are pinned
// to a single connection.
func NewConnection(cfg *config.DatabaseConfig, log logger.Logger) (*Connection, error) {
	dsn := DSN(cfg)
	db, err := openSQLiteDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	conn, err := sqlconn.Open(db, cfg, log, types.SQLite)
	if err != nil {
		return nil, err
	}
	if dsn == MemoryDatabase {
		db.SetMaxOpenConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	}

	log.Info().Str("database", dsn).Msg("Connected to SQLite database")
	return &Connection{Conn: conn}, nil
}

// Escape doubles single quotes.
func (c *Connection) Escape(raw string) string {
	return encode.Standard(raw)
}

// ListColumns reads pragma_table_info. A "schema.table" name looks in that
// attached schema.
func (c *Connection) ListColumns(ctx context.Context, table string) ([]string, error) {
	schema, name := sqlconn.SplitTable(table)
	if schema == "" {
		schema = "main"
	}
	query := sq.Expr("SELECT name FROM pragma_table_info(?, ?) ORDER BY cid", name, schema)
	return c.ScanColumns(ctx, table, query)
}
