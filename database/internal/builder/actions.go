package builder

import (
	"context"
	"database/sql"
	"strings"

	"github.com/gaborage/qdb/database/types"
)

// multilineThreshold is the combined column text length above which SELECT
// puts every column on its own line.
const multilineThreshold = 50

// Result is the outcome of an action call.
type Result struct {
	// Lines is the assembled statement, one clause per element.
	Lines []string

	// Rows holds the result set of an executed root SELECT. The caller closes it.
	Rows *sql.Rows

	// Exec holds the outcome of an executed INSERT, UPDATE or DELETE.
	Exec sql.Result

	// Previewed is set when the statement was returned instead of executed.
	Previewed bool

	// Nested is set when a SELECT closed a subquery instead of running.
	Nested bool
}

// SQL returns the statement text with lines joined by newlines.
func (r *Result) SQL() string {
	return strings.Join(r.Lines, "\n")
}

// Select assembles a SELECT. At the root it runs the statement; inside a
// subquery it closes the subquery and returns a Nested result.
func (b *Builder) Select(ctx context.Context) (*Result, error) {
	return b.selectStatement(ctx, "Select", false)
}

// SelectDistinct is Select with SELECT DISTINCT.
func (b *Builder) SelectDistinct(ctx context.Context) (*Result, error) {
	if b.ok() && !b.requireExtended("SelectDistinct") {
		return nil, b.err
	}
	return b.selectStatement(ctx, "SelectDistinct", true)
}

func (b *Builder) selectStatement(ctx context.Context, op string, distinct bool) (*Result, error) {
	if err := b.checkAction(); err != nil {
		return nil, err
	}

	c := b.live
	c.distinct = distinct
	c.sql = b.selectLines(c)

	if b.level > 0 {
		lines := c.sql
		b.finishSubquery()
		return &Result{Lines: lines, Nested: true}, nil
	}
	return b.run(ctx, op, c.sql, true)
}

// Insert assembles and runs INSERT INTO table (columns) VALUES (values).
func (b *Builder) Insert(ctx context.Context) (*Result, error) {
	if err := b.checkWrite("Insert"); err != nil {
		return nil, err
	}
	c := b.live
	c.sql = []string{
		"INSERT INTO " + b.tableName(c.table),
		"\t(" + strings.Join(c.columns, ", ") + ")",
		"VALUES (" + strings.Join(c.values, ", ") + ")",
	}
	return b.run(ctx, "Insert", c.sql, false)
}

// Update assembles and runs UPDATE table SET column = value, ... followed by
// WHERE, GROUP BY, HAVING, ORDER BY and LIMIT.
func (b *Builder) Update(ctx context.Context) (*Result, error) {
	if err := b.checkWrite("Update"); err != nil {
		return nil, err
	}
	c := b.live
	lines := make([]string, 0, len(c.columns)+6)
	lines = append(lines, "UPDATE "+b.tableName(c.table)+" SET")
	for i, col := range c.columns {
		line := "\t" + col + " = " + c.values[i]
		if i < len(c.columns)-1 {
			line += ","
		}
		lines = append(lines, line)
	}
	c.sql = append(lines, b.trailing(c)...)
	return b.run(ctx, "Update", c.sql, false)
}

// Delete assembles and runs DELETE FROM table followed by the trailing clauses.
func (b *Builder) Delete(ctx context.Context) (*Result, error) {
	if err := b.checkAction(); err != nil {
		return nil, err
	}
	if err := b.checkRoot("Delete"); err != nil {
		return nil, err
	}
	c := b.live
	if c.table == "" {
		return nil, b.fail("Delete", "no table set").err
	}
	c.sql = append([]string{"DELETE FROM " + b.tableName(c.table)}, b.trailing(c)...)
	return b.run(ctx, "Delete", c.sql, false)
}

func (b *Builder) selectLines(c *components) []string {
	head := "SELECT"
	if c.distinct {
		head += " DISTINCT"
	}

	lines := make([]string, 0, len(c.columns)+8)
	switch {
	case len(c.columns) == 0:
		lines = append(lines, head+" *")
	case totalLen(c.columns) > multilineThreshold:
		lines = append(lines, head)
		for i, col := range c.columns {
			line := "\t" + col
			if i < len(c.columns)-1 {
				line += ","
			}
			lines = append(lines, line)
		}
	default:
		lines = append(lines, head+" "+strings.Join(c.columns, ", "))
	}

	if c.table != "" {
		from := "FROM "
		if c.tableSub {
			from += c.table
		} else {
			from += b.tableName(c.table)
		}
		if c.tableAlias != "" {
			from += " AS " + c.tableAlias
		}
		lines = append(lines, from)
	}
	lines = append(lines, c.joins...)
	return append(lines, b.trailing(c)...)
}

// trailing returns the non-empty WHERE, GROUP BY, HAVING, ORDER BY and LIMIT clauses in order.
func (b *Builder) trailing(c *components) []string {
	return nonEmpty(c.where, c.groupBy, c.having, c.orderBy, c.limit)
}

// checkAction returns the sticky error, if any.
func (b *Builder) checkAction() error {
	if b.err != nil {
		return b.err
	}
	if b.released {
		return types.ErrReleased
	}
	return nil
}

// checkRoot fails write statements inside a subquery.
func (b *Builder) checkRoot(op string) error {
	if b.level > 0 {
		return b.fail(op, "%s cannot run inside a subquery (level %d)", op, b.level).err
	}
	return nil
}

// checkWrite validates what Insert and Update need.
func (b *Builder) checkWrite(op string) error {
	if err := b.checkAction(); err != nil {
		return err
	}
	if err := b.checkRoot(op); err != nil {
		return err
	}
	c := b.live
	switch {
	case c.table == "":
		return b.fail(op, "no table set").err
	case c.tableSub:
		return b.fail(op, "cannot write into a subquery").err
	case len(c.values) == 0:
		return b.fail(op, "no values set; call Values first").err
	case len(c.columns) != len(c.values):
		return b.fail(op, "%d columns but %d values; Values must come after Columns", len(c.columns), len(c.values)).err
	}
	return nil
}

// run hands a root statement to the connector, or returns it in preview mode,
// and resets the builder either way.
func (b *Builder) run(ctx context.Context, op string, lines []string, query bool) (*Result, error) {
	b.last = lines
	res := &Result{Lines: lines}
	text := res.SQL()

	b.log.Debug().Str("op", op).Int("lines", len(lines)).Msg("Statement assembled")

	if b.preview {
		res.Previewed = true
		b.reset()
		return res, nil
	}

	var err error
	if query {
		res.Rows, err = b.conn.Query(ctx, text)
	} else {
		res.Exec, err = b.conn.Exec(ctx, text)
	}
	if err != nil {
		file, line := callSite()
		qe := &types.QueryError{Op: op, SQL: text, File: file, Line: line, Err: err}
		b.log.Error().Err(err).Str("op", op).Msg("Statement failed")
		b.abort(qe)
		return nil, qe
	}

	b.reset()
	return res, nil
}
