package tracking

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/gaborage/qdb/config"
	"github.com/gaborage/qdb/database/types"
	"github.com/gaborage/qdb/logger"
)

// Connection wraps a types.Connector and tracks every statement it runs.
type Connection struct {
	conn       types.Connector
	tc         *Context
	unregister func()
	once       sync.Once
}

// NewConnection returns conn wrapped with statement tracking. Settings come
// from cfg, which may be nil. When conn exposes pool statistics they are
// reported as gauges until Release.
func NewConnection(conn types.Connector, log logger.Logger, cfg *config.DatabaseConfig) *Connection {
	vendor := conn.DatabaseType()
	c := &Connection{
		conn: conn,
		tc: &Context{
			Logger:   log,
			Vendor:   vendor,
			Settings: NewSettings(cfg),
		},
		unregister: func() {},
	}
	if sp, ok := conn.(StatsProvider); ok {
		c.unregister = RegisterConnectionPoolMetrics(sp, vendor)
	}
	return c
}

// Query runs query through the wrapped connector.
func (c *Connection) Query(ctx context.Context, query string) (*sql.Rows, error) {
	start := time.Now()
	rows, err := c.conn.Query(ctx, query)
	TrackDBOperation(ctx, c.tc, Operation{Query: query, Start: start, Err: err})
	return rows, err
}

// Exec runs query through the wrapped connector and records the affected rows.
func (c *Connection) Exec(ctx context.Context, query string) (sql.Result, error) {
	start := time.Now()
	res, err := c.conn.Exec(ctx, query)
	TrackDBOperation(ctx, c.tc, Operation{
		Query:        query,
		Start:        start,
		RowsAffected: extractRowsAffected(res, err),
		Err:          err,
	})
	return res, err
}

// ListColumns is tracked as a list_columns operation on table.
func (c *Connection) ListColumns(ctx context.Context, table string) ([]string, error) {
	start := time.Now()
	cols, err := c.conn.ListColumns(ctx, table)
	TrackDBOperation(ctx, c.tc, Operation{
		Name:  OperationListColumns,
		Query: "LIST COLUMNS " + table,
		Start: start,
		Err:   err,
	})
	return cols, err
}

// Escape delegates to the wrapped connector.
func (c *Connection) Escape(raw string) string {
	return c.conn.Escape(raw)
}

// DatabaseType delegates to the wrapped connector.
func (c *Connection) DatabaseType() string {
	return c.conn.DatabaseType()
}

// Release stops pool reporting and releases the wrapped connector.
func (c *Connection) Release() error {
	c.once.Do(c.unregister)
	return c.conn.Release()
}

// Stats forwards pool statistics when the wrapped connector has them.
func (c *Connection) Stats() sql.DBStats {
	if sp, ok := c.conn.(StatsProvider); ok {
		return sp.Stats()
	}
	return sql.DBStats{}
}

// Unwrap returns the wrapped connector.
func (c *Connection) Unwrap() types.Connector {
	return c.conn
}
