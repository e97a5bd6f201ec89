// Package sqlconn holds the database/sql plumbing shared by the vendor
// connectors.
package sqlconn

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/gaborage/qdb/config"
	"github.com/gaborage/qdb/database/types"
	"github.com/gaborage/qdb/logger"
)

const (
	connectTimeout = 10 * time.Second
	healthTimeout  = 5 * time.Second
)

// Ping is swapped in tests that run against sqlmock without ping monitoring.
var Ping = func(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}

// ConfigurePool applies the pool settings of cfg to db. Zero values keep the
// database/sql defaults.
func ConfigurePool(db *sql.DB, cfg *config.DatabaseConfig) {
	pool := cfg.Pool
	if pool.Max.Connections > 0 {
		db.SetMaxOpenConns(pool.Max.Connections)
	}
	if pool.Idle.Connections > 0 {
		db.SetMaxIdleConns(pool.Idle.Connections)
	}
	if pool.Idle.Time > 0 {
		db.SetConnMaxIdleTime(pool.Idle.Time)
	}
	if pool.Lifetime.Max > 0 {
		db.SetConnMaxLifetime(pool.Lifetime.Max)
	}
}

// Conn is a types.Connector over *sql.DB, minus the vendor specific Escape
// and ListColumns.
type Conn struct {
	db     *sql.DB
	log    logger.Logger
	vendor string

	once     sync.Once
	closeErr error
}

// Open configures the pool of db and checks connectivity. On failure db is closed.
func Open(db *sql.DB, cfg *config.DatabaseConfig, log logger.Logger, vendor string) (*Conn, error) {
	ConfigurePool(db, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := Ping(ctx, db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("vendor", vendor).Msg("Failed to close database after ping failure")
		}
		return nil, fmt.Errorf("failed to ping %s database: %w", vendor, err)
	}
	return New(db, log, vendor), nil
}

// New wraps an already verified db.
func New(db *sql.DB, log logger.Logger, vendor string) *Conn {
	return &Conn{db: db, log: log, vendor: vendor}
}

// DB returns the underlying pool.
func (c *Conn) DB() *sql.DB {
	return c.db
}

func (c *Conn) Query(ctx context.Context, query string) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query)
}

func (c *Conn) Exec(ctx context.Context, query string) (sql.Result, error) {
	return c.db.ExecContext(ctx, query)
}

// Health checks database connectivity.
func (c *Conn) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return c.db.PingContext(ctx)
}

// Stats returns the pool statistics.
func (c *Conn) Stats() sql.DBStats {
	return c.db.Stats()
}

// Release closes the pool once; later calls return the first result.
func (c *Conn) Release() error {
	c.once.Do(func() {
		c.log.Info().Str("vendor", c.vendor).Msg("Closing database connection")
		c.closeErr = c.db.Close()
	})
	return c.closeErr
}

func (c *Conn) DatabaseType() string {
	return c.vendor
}

// ScanColumns runs the introspection query and collects the first column of
// every row. No rows means the table does not exist.
func (c *Conn) ScanColumns(ctx context.Context, table string, query sq.Sqlizer) ([]string, error) {
	text, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build column query for %q: %w", table, err)
	}

	rows, err := c.db.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %q: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column of %q: %w", table, err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list columns of %q: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, &types.SchemaError{Table: table}
	}
	return columns, nil
}

// SplitTable separates an optional schema qualifier from a table name and
// strips identifier quotes: "`shop`.`users`" gives "shop" and "users".
func SplitTable(table string) (schema, name string) {
	table = strings.NewReplacer("`", "", `"`, "").Replace(strings.TrimSpace(table))
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		return table[:i], table[i+1:]
	}
	return "", table
}
