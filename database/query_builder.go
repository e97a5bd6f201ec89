// Package database is the entry point of qdb: it opens tracked connectors and
// creates query builders on top of them.
package database

import (
	"github.com/gaborage/qdb/config"
	"github.com/gaborage/qdb/database/internal/builder"
	"github.com/gaborage/qdb/database/types"
	"github.com/gaborage/qdb/logger"
)

type (
	// Builder assembles one statement at a time. See NewBasic and NewExtended.
	Builder = builder.Builder
	// Result is what an action returns.
	Result = builder.Result
)

// Re-exports of the value helpers most callers need.
type (
	Connector  = types.Connector
	EscapeRule = types.EscapeRule
	Value      = types.Value
	Pair       = types.Pair
	BoolOp     = types.BoolOp
	Subquery   = types.Subquery
)

const (
	And      = types.And
	Or       = types.Or
	SubToken = types.SubToken
)

var (
	EscapeFull    = types.EscapeFull
	EscapeNone    = types.EscapeNone
	EscapePartial = types.EscapePartial
	Escaped       = types.Escaped
	Raw           = types.Raw
	Partial       = types.Partial
	P             = types.P
	Sub           = types.Sub
	SubOp         = types.SubOp
)

// Option configures a builder.
type Option func(*builder.Options)

// WithTablePrefix joins prefix to every bare table name: "wp" and "posts" give "wp_posts".
func WithTablePrefix(prefix string) Option {
	return func(o *builder.Options) { o.Prefix = prefix }
}

// WithDefaultTable makes every fresh statement start on spec.
func WithDefaultTable(spec string) Option {
	return func(o *builder.Options) { o.DefaultTable = spec }
}

// WithBackticks turns identifier quoting on or off for every statement.
func WithBackticks(on bool) Option {
	return func(o *builder.Options) { o.Backticks = on }
}

func WithLogger(log logger.Logger) Option {
	return func(o *builder.Options) { o.Logger = log }
}

// FromConfig applies prefix, default table and backticks from cfg. The
// Extended flag is honored by New only; NewBasic and NewExtended decide it
// themselves.
func FromConfig(cfg *config.BuilderConfig) Option {
	return func(o *builder.Options) {
		if cfg == nil {
			return
		}
		o.Prefix = cfg.Prefix
		o.DefaultTable = cfg.Table
		o.Backticks = cfg.Backticks
	}
}

// NewBasic creates a builder limited to single-table statements: no joins,
// HAVING, DISTINCT or subqueries.
func NewBasic(conn types.Connector, opts ...Option) *Builder {
	return newBuilder(conn, false, opts)
}

// NewExtended creates a builder with every clause available.
func NewExtended(conn types.Connector, opts ...Option) *Builder {
	return newBuilder(conn, true, opts)
}

// New creates a builder whose variant comes from cfg.Extended.
func New(conn types.Connector, cfg *config.BuilderConfig, opts ...Option) *Builder {
	extended := cfg != nil && cfg.Extended
	return newBuilder(conn, extended, append([]Option{FromConfig(cfg)}, opts...))
}

func newBuilder(conn types.Connector, extended bool, opts []Option) *Builder {
	o := builder.Options{Extended: extended}
	for _, opt := range opts {
		opt(&o)
	}
	return builder.New(conn, o)
}
