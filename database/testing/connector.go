// Package testing provides an in-memory Connector for testing code built on
// the qdb query builder without a real database.
//
// The primary type is TestConnector. It records every statement it receives,
// answers them from expectations and serves ListColumns from a fixed table map.
//
// # Resource Management
//
// Rows returned by Query are backed by a temporary *sql.DB. Callers MUST close
// them with defer rows.Close() right after a successful Select.
package testing

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/gaborage/qdb/database/internal/encode"
	"github.com/gaborage/qdb/database/types"
)

// TestConnector is an in-memory types.Connector with expectation-based answers.
//
// It supports two SQL matching modes:
//   - Partial matching (default): the expected SQL is a substring of the actual SQL
//   - Strict matching: exact match after trimming (enable with StrictSQLMatching())
//
// Usage example:
//
//	conn := NewTestConnector(types.MySQL).
//	    WithTable("users", "id", "name", "password").
//	    ExpectQuery("FROM users").
//	        WillReturnRows(NewRowSet("id", "name").AddRow(1, "Alice"))
//
//	qb := database.NewExtended(conn)
type TestConnector struct {
	vendor      string
	queries     []*QueryExpectation
	execs       []*ExecExpectation
	queryLog    []string
	execLog     []string
	columnCalls map[string]int
	tables      map[string][]string
	strictMatch bool
	releases    int
	mu          sync.RWMutex
}

// QueryExpectation defines what a matching Query returns.
type QueryExpectation struct {
	sql  string
	rows *RowSet
	err  error
}

// ExecExpectation defines what a matching Exec returns.
type ExecExpectation struct {
	sql          string
	rowsAffected int64
	lastInsertID int64
	err          error
}

// NewTestConnector creates a connector for vendor. The vendor picks the escape
// primitive: MySQL uses backslash escapes, the others double single quotes.
func NewTestConnector(vendor string) *TestConnector {
	return &TestConnector{
		vendor:      vendor,
		columnCalls: make(map[string]int),
		tables:      make(map[string][]string),
	}
}

// StrictSQLMatching enables exact SQL matching instead of substring matching.
func (c *TestConnector) StrictSQLMatching() *TestConnector {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strictMatch = true
	return c
}

// WithTable registers the physical columns ListColumns reports for table.
func (c *TestConnector) WithTable(table string, columns ...string) *TestConnector {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[table] = append([]string(nil), columns...)
	return c
}

// ExpectQuery sets up an answer for Query calls matching sqlPattern.
//
// Example:
//
//	conn.ExpectQuery("SELECT `id` FROM `users`").
//	    WillReturnRows(NewRowSet("id").AddRow(1))
func (c *TestConnector) ExpectQuery(sqlPattern string) *QueryExpectation {
	exp := &QueryExpectation{sql: sqlPattern}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, exp)
	return exp
}

// ExpectExec sets up an answer for Exec calls matching sqlPattern.
//
// Example:
//
//	conn.ExpectExec("INSERT INTO users").WillReturnRowsAffected(1)
func (c *TestConnector) ExpectExec(sqlPattern string) *ExecExpectation {
	exp := &ExecExpectation{sql: sqlPattern}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, exp)
	return exp
}

// QueryLog returns the SQL of every Query call in order.
func (c *TestConnector) QueryLog() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.queryLog...)
}

// ExecLog returns the SQL of every Exec call in order.
func (c *TestConnector) ExecLog() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.execLog...)
}

// ColumnCalls reports how often ListColumns was asked about table.
func (c *TestConnector) ColumnCalls(table string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.columnCalls[table]
}

// Releases reports how often Release was called.
func (c *TestConnector) Releases() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.releases
}

func (c *TestConnector) matchSQL(expected, actual string) bool {
	if c.strictMatch {
		return strings.TrimSpace(expected) == strings.TrimSpace(actual)
	}
	return strings.Contains(actual, expected)
}

// Query implements types.Connector. Unmatched statements fail.
func (c *TestConnector) Query(_ context.Context, query string) (*sql.Rows, error) {
	c.mu.Lock()
	c.queryLog = append(c.queryLog, query)
	c.mu.Unlock()

	c.mu.RLock()
	var exp *QueryExpectation
	for _, q := range c.queries {
		if c.matchSQL(q.sql, query) {
			exp = q
			break
		}
	}
	c.mu.RUnlock()

	if exp == nil {
		return nil, fmt.Errorf("unexpected query: %s (no matching expectation)", query)
	}
	if exp.err != nil {
		return nil, exp.err
	}
	if exp.rows == nil {
		return nil, fmt.Errorf("query expectation for %q has no rows configured (use WillReturnRows)", query)
	}
	return exp.rows.toSQLRows()
}

// Exec implements types.Connector. Unmatched statements fail.
func (c *TestConnector) Exec(_ context.Context, query string) (sql.Result, error) {
	c.mu.Lock()
	c.execLog = append(c.execLog, query)
	c.mu.Unlock()

	c.mu.RLock()
	var exp *ExecExpectation
	for _, e := range c.execs {
		if c.matchSQL(e.sql, query) {
			exp = e
			break
		}
	}
	c.mu.RUnlock()

	if exp == nil {
		return nil, fmt.Errorf("unexpected exec: %s (no matching expectation)", query)
	}
	if exp.err != nil {
		return nil, exp.err
	}
	return &testResult{rowsAffected: exp.rowsAffected, lastInsertID: exp.lastInsertID}, nil
}

// Escape implements types.Connector with the vendor's escaping rules.
func (c *TestConnector) Escape(raw string) string {
	if c.vendor == types.MySQL {
		return encode.MySQL(raw)
	}
	return encode.Standard(raw)
}

// ListColumns implements types.Connector from the tables registered with WithTable.
func (c *TestConnector) ListColumns(_ context.Context, table string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.columnCalls[table]++
	cols, ok := c.tables[table]
	if !ok {
		return nil, &types.SchemaError{Table: table}
	}
	return append([]string(nil), cols...), nil
}

// Release implements types.Connector and counts calls.
func (c *TestConnector) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases++
	return nil
}

// DatabaseType implements types.Connector.
func (c *TestConnector) DatabaseType() string {
	return c.vendor
}

// WillReturnRows configures the rows returned by matching queries.
func (qe *QueryExpectation) WillReturnRows(rows *RowSet) *QueryExpectation {
	qe.rows = rows
	return qe
}

// WillReturnError makes matching queries fail with err.
func (qe *QueryExpectation) WillReturnError(err error) *QueryExpectation {
	qe.err = err
	return qe
}

// WillReturnRowsAffected configures the rows affected count of matching execs.
func (ee *ExecExpectation) WillReturnRowsAffected(n int64) *ExecExpectation {
	ee.rowsAffected = n
	return ee
}

// WillReturnLastInsertID configures the last insert id of matching execs.
func (ee *ExecExpectation) WillReturnLastInsertID(id int64) *ExecExpectation {
	ee.lastInsertID = id
	return ee
}

// WillReturnError makes matching execs fail with err.
func (ee *ExecExpectation) WillReturnError(err error) *ExecExpectation {
	ee.err = err
	return ee
}

// testResult implements sql.Result for Exec answers.
type testResult struct {
	rowsAffected int64
	lastInsertID int64
}

func (r *testResult) LastInsertId() (int64, error) {
	return r.lastInsertID, nil
}

func (r *testResult) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}

var _ types.Connector = (*TestConnector)(nil)
