// Package builder assembles SQL statements from incremental clause calls.
//
// A Builder keeps one live set of clause components per nesting level. Setter
// calls mutate the live frame; an action call (Select, Insert, Update,
// Delete) turns it into ordered SQL lines and either hands them to the
// connector or, inside a subquery, splices them into the enclosing frame.
package builder

import (
	"github.com/gaborage/qdb/database/internal/columns"
	"github.com/gaborage/qdb/database/types"
	"github.com/gaborage/qdb/logger"
)

// Options configures a Builder.
type Options struct {
	// Extended enables joins, HAVING, DISTINCT and subqueries.
	Extended bool

	// Prefix is joined to every bare table name with an underscore.
	Prefix string

	// DefaultTable is a table spec ("name", "name alias" or "name AS alias")
	// that every fresh statement starts with.
	DefaultTable string

	// Backticks turns identifier quoting on for every statement.
	Backticks bool

	Logger logger.Logger
}

// Builder assembles one statement at a time. It is not safe for concurrent use;
// use one Builder per goroutine.
type Builder struct {
	conn     types.Connector
	extended bool
	log      logger.Logger

	defaults settings
	registry *columns.Registry

	live    *components
	spheres []*components
	level   int

	preview  bool
	last     []string
	err      error
	released bool
}

// New creates a Builder that executes through conn.
func New(conn types.Connector, opts Options) *Builder {
	b := &Builder{
		conn:     conn,
		extended: opts.Extended,
		log:      opts.Logger,
		defaults: settings{prefix: opts.Prefix, backticks: opts.Backticks},
		registry: columns.NewRegistry(),
	}
	if b.log == nil {
		b.log = logger.New("disabled", false)
	}
	b.reset()

	if opts.DefaultTable != "" {
		b.setDefaultTable(opts.DefaultTable)
	}
	return b
}

// Extended reports whether joins, HAVING, DISTINCT and subqueries are available.
func (b *Builder) Extended() bool {
	return b.extended
}

// Level returns the current subquery depth. Zero is the root statement.
func (b *Builder) Level() int {
	return b.level
}

// SQL returns the lines of the most recently assembled root statement.
func (b *Builder) SQL() []string {
	return b.last
}

// Err returns the error that aborted the builder, if any.
func (b *Builder) Err() error {
	return b.err
}

// Release closes the connector. Later actions fail with types.ErrReleased.
func (b *Builder) Release() error {
	if b.released {
		return nil
	}
	b.released = true
	return b.conn.Release()
}

// reset starts a fresh root statement. Configuration and the column cache survive.
func (b *Builder) reset() {
	b.live = newComponents(&b.defaults)
	b.spheres = nil
	b.level = 0
	b.preview = false
}

// ok reports whether setters may still mutate state.
func (b *Builder) ok() bool {
	return b.err == nil && !b.released
}

// fail aborts the builder with a malformed specification error raised by op.
func (b *Builder) fail(op, format string, args ...any) *Builder {
	file, line := callSite()
	b.abort(&types.SpecError{Op: op, Message: sprintf(format, args...), File: file, Line: line})
	return b
}

// halt aborts with the terse error used for input that looks like an injection attempt.
func (b *Builder) halt(code int) *Builder {
	b.log.Warn().Int("code", code).Msg("Statement halted")
	b.abort(&types.HaltError{Code: code})
	return b
}

// abort records the first fatal error, drops the statement and releases the connector.
func (b *Builder) abort(err error) {
	if b.err != nil {
		return
	}
	b.err = err
	b.reset()
	if relErr := b.Release(); relErr != nil {
		b.log.Error().Err(relErr).Msg("Failed to release connector after abort")
	}
}

// requireExtended fails op when the builder is the basic variant.
func (b *Builder) requireExtended(op string) bool {
	if b.extended {
		return true
	}
	b.fail(op, "%s needs the extended builder", op)
	return false
}

// quote reports whether the live frame quotes identifiers.
func (b *Builder) quote() bool {
	return b.live.backticks
}
