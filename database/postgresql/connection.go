// Package postgresql provides the PostgreSQL connector, backed by pgx.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/gaborage/qdb/config"
	"github.com/gaborage/qdb/database/internal/encode"
	"github.com/gaborage/qdb/database/internal/sqlconn"
	"github.com/gaborage/qdb/database/types"
	"github.com/gaborage/qdb/logger"
)

// Connection implements types.Connector for PostgreSQL.
type Connection struct {
	*sqlconn.Conn
}

var openPostgresDB = func(cfg *pgx.ConnConfig) *sql.DB {
	return stdlib.OpenDB(*cfg)
}

// quoteDSN quotes a DSN value according to libpq rules.
func quoteDSN(value string) string {
	if value == "" {
		return "''"
	}

	needsQuoting := false
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') && r != '.' && r != '_' && r != '-' {
			needsQuoting = true
			break
		}
	}
	if !needsQuoting {
		return value
	}

	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "'", "\\'")
	return "'" + escaped + "'"
}

// DSN builds a libpq keyword/value connection string from cfg.
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}
	return strings.Join([]string{
		fmt.Sprintf("host=%s", quoteDSN(cfg.Host)),
		fmt.Sprintf("port=%d", cfg.Port),
		fmt.Sprintf("user=%s", quoteDSN(cfg.Username)),
		fmt.Sprintf("password=%s", quoteDSN(cfg.Password)),
		fmt.Sprintf("dbname=%s", quoteDSN(cfg.Database)),
	}, " ")
}

// NewConnection opens and pings a PostgreSQL pool.
func NewConnection(cfg *config.DatabaseConfig, log logger.Logger) (*Connection, error) {
	pgxConfig, err := pgx.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	conn, err := sqlconn.Open(openPostgresDB(pgxConfig), cfg, log, types.PostgreSQL)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL database")

	return &Connection{Conn: conn}, nil
}

// Escape doubles single quotes. Backslashes are literal under
// standard_conforming_strings, the server default since 9.1.
func (c *Connection) Escape(raw string) string {
	return encode.Standard(raw)
}

// ListColumns reads information_schema.columns. Unqualified names resolve in
// current_schema().
func (c *Connection) ListColumns(ctx context.Context, table string) ([]string, error) {
	schema, name := sqlconn.SplitTable(table)

	query := sq.Select("column_name").
		From("information_schema.columns").
		Where(sq.Eq{"table_name": name}).
		OrderBy("ordinal_position").
		PlaceholderFormat(sq.Dollar)
	if schema == "" {
		query = query.Where("table_schema = current_schema()")
	} else {
		query = query.Where(sq.Eq{"table_schema": schema})
	}
	return c.ScanColumns(ctx, table, query)
}
