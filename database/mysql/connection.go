// Package mysql provides the MySQL connector, backed by go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/gaborage/qdb/config"
	"github.com/gaborage/qdb/database/internal/encode"
	"github.com/gaborage/qdb/database/internal/sqlconn"
	"github.com/gaborage/qdb/database/types"
	"github.com/gaborage/qdb/logger"
)

const defaultPort = 3306

// Connection implements types.Connector for MySQL.
type Connection struct {
	*sqlconn.Conn
}

var openMySQLDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("mysql", dsn)
}

// DSN builds a go-sql-driver DSN from cfg.
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}

	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	dc := mysqldrv.NewConfig()
	dc.User = cfg.Username
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	dc.DBName = cfg.Database
	dc.ParseTime = true
	return dc.FormatDSN()
}

// NewConnection opens and pings a MySQL pool.
func NewConnection(cfg *config.DatabaseConfig, log logger.Logger) (*Connection, error) {
	db, err := openMySQLDB(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	conn, err := sqlconn.Open(db, cfg, log, types.MySQL)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to MySQL database")

	return &Connection{Conn: conn}, nil
}

// Escape applies backslash escaping, matching a server without NO_BACKSLASH_ESCAPES.
func (c *Connection) Escape(raw string) string {
	return encode.MySQL(raw)
}

// ListColumns reads information_schema.COLUMNS. Unqualified names resolve in
// the connection's default database.
func (c *Connection) ListColumns(ctx context.Context, table string) ([]string, error) {
	schema, name := sqlconn.SplitTable(table)

	query := sq.Select("COLUMN_NAME").
		From("information_schema.COLUMNS").
		Where(sq.Eq{"TABLE_NAME": name}).
		OrderBy("ORDINAL_POSITION")
	if schema == "" {
		query = query.Where("TABLE_SCHEMA = DATABASE()")
	} else {
		query = query.Where(sq.Eq{"TABLE_SCHEMA": schema})
	}
	return c.ScanColumns(ctx, table, query)
}
