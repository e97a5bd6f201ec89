package testing

import (
	"fmt"
	"strings"
	"testing"
)

// AssertQueryExecuted asserts that a query matching sqlPattern reached the connector.
// Uses partial matching unless StrictSQLMatching() was enabled.
//
// Example:
//
//	AssertQueryExecuted(t, conn, "FROM `users`")
func AssertQueryExecuted(t *testing.T, c *TestConnector, sqlPattern string) {
	t.Helper()
	log := c.QueryLog()
	for _, q := range log {
		if c.matchSQL(sqlPattern, q) {
			return
		}
	}
	t.Errorf("expected query not executed: %q\nActual queries:\n%s", sqlPattern, formatLog(log))
}

// AssertExecExecuted asserts that an exec matching sqlPattern reached the connector.
func AssertExecExecuted(t *testing.T, c *TestConnector, sqlPattern string) {
	t.Helper()
	log := c.ExecLog()
	for _, e := range log {
		if c.matchSQL(sqlPattern, e) {
			return
		}
	}
	t.Errorf("expected exec not executed: %q\nActual execs:\n%s", sqlPattern, formatLog(log))
}

// AssertNothingExecuted asserts that the connector received no statement at all.
//
// Example:
//
//	_, err := qb.Where("a;DROP", 1).Select(ctx)
//	AssertNothingExecuted(t, conn)
func AssertNothingExecuted(t *testing.T, c *TestConnector) {
	t.Helper()
	queries, execs := c.QueryLog(), c.ExecLog()
	if len(queries)+len(execs) == 0 {
		return
	}
	t.Errorf("expected no statements, got queries:\n%s\nexecs:\n%s", formatLog(queries), formatLog(execs))
}

// AssertReleased asserts that the connector was released exactly once.
func AssertReleased(t *testing.T, c *TestConnector) {
	t.Helper()
	if n := c.Releases(); n != 1 {
		t.Errorf("expected connector to be released once, got %d", n)
	}
}

// AssertNotReleased asserts that the connector was never released.
func AssertNotReleased(t *testing.T, c *TestConnector) {
	t.Helper()
	if n := c.Releases(); n != 0 {
		t.Errorf("expected connector to stay open, released %d times", n)
	}
}

func formatLog(log []string) string {
	if len(log) == 0 {
		return "  (none)"
	}
	var b strings.Builder
	for i, q := range log {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, q)
	}
	return b.String()
}
