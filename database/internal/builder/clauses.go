package builder

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/gaborage/qdb/database/internal/columns"
	"github.com/gaborage/qdb/database/internal/encode"
	"github.com/gaborage/qdb/database/internal/sqllex"
	"github.com/gaborage/qdb/database/types"
)

var limitPattern = regexp.MustCompile(`^\d+$`)

// Table sets the statement's table from a spec of the form "name",
// "name alias" or "name AS alias". The spec types.SubToken opens a subquery
// whose result is selected from.
func (b *Builder) Table(spec string) *Builder {
	if !b.ok() {
		return b
	}
	ref, err := types.ParseTable(spec)
	if err != nil {
		return b.fail("Table", "%v, got %q", err, spec)
	}

	if ref.IsSub() {
		if !b.requireExtended("Table") {
			return b
		}
		b.live.table = ""
		b.live.tableSub = false
		b.live.tableAlias = ref.Alias()
		b.startSubquery(slotTable)
		return b
	}

	b.live.table = b.defaults.prefixed(ref.Name())
	b.live.tableAlias = ref.Alias()
	b.live.tableSub = false
	return b
}

// TableAsDefault is Table that also makes spec the table every later statement starts with.
func (b *Builder) TableAsDefault(spec string) *Builder {
	if !b.ok() {
		return b
	}
	if strings.TrimSpace(spec) == types.SubToken {
		return b.fail("TableAsDefault", "a subquery cannot be the default table")
	}
	b.setDefaultTable(spec)
	return b.Table(spec)
}

func (b *Builder) setDefaultTable(spec string) {
	ref, err := types.ParseTable(spec)
	if err != nil {
		b.fail("DefaultTable", "%v, got %q", err, spec)
		return
	}
	ref = ref.WithName(b.defaults.prefixed(ref.Name()))
	b.defaults.table = &ref
	if b.level == 0 && b.live.table == "" {
		b.live.table = ref.Name()
		b.live.tableAlias = ref.Alias()
	}
}

// Columns appends a comma-joined column list. Commas inside parentheses do
// not split, so "COUNT(a, b), c" adds two columns. An item equal to
// types.SubToken opens a subquery in its place.
func (b *Builder) Columns(spec string) *Builder {
	if !b.ok() {
		return b
	}
	var items []string
	if spec == "*" || spec == "1" {
		items = []string{spec}
	} else {
		items = columns.Split(spec)
	}
	return b.appendColumns("Columns", items)
}

// ColumnList appends columns that are already separated.
func (b *Builder) ColumnList(cols ...string) *Builder {
	if !b.ok() {
		return b
	}
	return b.appendColumns("ColumnList", cols)
}

func (b *Builder) appendColumns(op string, items []string) *Builder {
	if b.quote() {
		items = columns.Quote(items)
	}

	sub := -1
	for i, item := range items {
		if item != types.SubToken {
			continue
		}
		if sub >= 0 {
			return b.fail(op, "only one subquery can be opened per call")
		}
		sub = i
	}
	if sub >= 0 && !b.requireExtended(op) {
		return b
	}

	offset := len(b.live.columns)
	b.live.columns = append(b.live.columns, items...)
	if sub >= 0 {
		b.live.pendingColumn = offset + sub
		b.startSubquery(slotColumns)
	}
	return b
}

// ColumnsExcept appends every physical column of the current table except the
// excluded ones. Column names come from the connector once per table and are
// cached for the builder's lifetime.
func (b *Builder) ColumnsExcept(ctx context.Context, excluded ...string) *Builder {
	if !b.ok() {
		return b
	}
	table := b.live.table
	if table == "" || b.live.tableSub {
		return b.fail("ColumnsExcept", "set a table before listing its columns")
	}

	all, err := b.registry.Table(ctx, table, b.conn.ListColumns)
	if err != nil {
		file, line := callSite()
		b.log.Error().Err(err).Str("table", table).Msg("Column lookup failed")
		b.abort(&types.QueryError{Op: "ColumnsExcept", File: file, Line: line, Err: err})
		return b
	}

	skip := make(map[string]struct{})
	for _, e := range excluded {
		for _, name := range columns.Split(e) {
			skip[strings.TrimSpace(name)] = struct{}{}
		}
	}

	for _, col := range all {
		if _, drop := skip[col]; drop {
			continue
		}
		if b.quote() {
			col = sqllex.QuoteIdentifier(col)
		}
		b.live.columns = append(b.live.columns, col)
	}
	return b
}

// ColumnsOf appends the `db` tagged columns of a struct, in field order.
func (b *Builder) ColumnsOf(v any) *Builder {
	if !b.ok() {
		return b
	}
	s, err := b.registry.Struct(v)
	if err != nil {
		return b.fail("ColumnsOf", "%v", err)
	}
	return b.appendColumns("ColumnsOf", s.Names())
}

// Values replaces the column and value lists used by Insert and Update.
// Plain values are fully escaped; wrap them with types.Raw, types.Partial or
// types.Escaped to pick another rule.
func (b *Builder) Values(pairs ...types.Pair) *Builder {
	if !b.ok() {
		return b
	}
	if len(pairs) == 0 {
		return b.fail("Values", "expected column/value pairs, got none")
	}

	cols := make([]string, 0, len(pairs))
	vals := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if strings.TrimSpace(p.Column) == "" {
			return b.fail("Values", "input is not associative: every value needs a column name")
		}
		if _, isSub := subquery(p.Value); isSub {
			return b.fail("Values", "subqueries are only supported in Table, Columns and Where")
		}
		col := p.Column
		if b.quote() {
			col = sqllex.QuoteIdentifier(col)
		}
		raw, rule := types.Unwrap(p.Value)
		cols = append(cols, col)
		vals = append(vals, encode.Value(raw, rule, b.conn.Escape))
	}

	b.live.columns = cols
	b.live.values = vals
	return b
}

// ValuesMap is Values for a column → value map, applied in column name order.
func (b *Builder) ValuesMap(m map[string]any) *Builder {
	if !b.ok() {
		return b
	}
	if len(m) == 0 {
		return b.fail("ValuesMap", "expected column/value pairs, got none")
	}
	pairs := make([]types.Pair, 0, len(m))
	for _, k := range sortedKeys(m) {
		pairs = append(pairs, types.P(k, m[k]))
	}
	return b.Values(pairs...)
}

// ValuesOf is Values for the `db` tagged fields of a struct.
func (b *Builder) ValuesOf(v any) *Builder {
	if !b.ok() {
		return b
	}
	s, err := b.registry.Struct(v)
	if err != nil {
		return b.fail("ValuesOf", "%v", err)
	}
	pairs, err := s.Pairs(v)
	if err != nil {
		return b.fail("ValuesOf", "%v", err)
	}
	return b.Values(pairs...)
}

// GroupBy sets the GROUP BY clause. A comma-joined list is accepted.
func (b *Builder) GroupBy(column string) *Builder {
	if !b.ok() {
		return b
	}
	if strings.TrimSpace(column) == "" {
		return b.fail("GroupBy", "column cannot be empty")
	}
	items := columns.Split(column)
	if b.quote() {
		items = columns.Quote(items)
	}
	b.live.groupBy = "GROUP BY " + strings.Join(items, ", ")
	return b
}

// OrderBy sets the ORDER BY clause. ASC and DESC keep their meaning when
// identifiers are quoted.
func (b *Builder) OrderBy(expr string) *Builder {
	if !b.ok() {
		return b
	}
	if strings.TrimSpace(expr) == "" {
		return b.fail("OrderBy", "expression cannot be empty")
	}
	if b.quote() {
		expr = sqllex.QuoteOrderBy(expr)
	}
	b.live.orderBy = "ORDER BY " + expr
	return b
}

// Having sets the HAVING clause. The value may start with an operator, as in Where.
func (b *Builder) Having(column string, value any) *Builder {
	if !b.ok() || !b.requireExtended("Having") {
		return b
	}
	if strings.TrimSpace(column) == "" {
		return b.fail("Having", "column cannot be empty")
	}
	if _, isSub := subquery(value); isSub {
		return b.fail("Having", "subqueries are only supported in Table, Columns and Where")
	}
	if b.quote() {
		column = columns.Quote([]string{column})[0]
	}
	b.live.having = "HAVING " + b.predicate(column, value)
	return b
}

// Limit sets LIMIT count, optionally followed by OFFSET. Both must be
// non-negative integers.
func (b *Builder) Limit(count any, offset ...any) *Builder {
	if !b.ok() {
		return b
	}
	if len(offset) > 1 {
		return b.fail("Limit", "expected at most one offset, got %d", len(offset))
	}

	n, ok := limitArg(count)
	if !ok {
		return b.fail("Limit", "count must be a non-negative integer, got %#v", count)
	}
	clause := "LIMIT " + n

	if len(offset) == 1 {
		o, ok := limitArg(offset[0])
		if !ok {
			return b.fail("Limit", "offset must be a non-negative integer, got %#v", offset[0])
		}
		if strings.TrimLeft(o, "0") != "" {
			clause += " OFFSET " + o
		}
	}
	b.live.limit = clause
	return b
}

// limitArg renders an integer kind or a string of digits. Floats and any other
// type are refused even when they print like an integer.
func limitArg(v any) (string, bool) {
	switch n := v.(type) {
	case int:
		return strconv.FormatInt(int64(n), 10), n >= 0
	case int8:
		return strconv.FormatInt(int64(n), 10), n >= 0
	case int16:
		return strconv.FormatInt(int64(n), 10), n >= 0
	case int32:
		return strconv.FormatInt(int64(n), 10), n >= 0
	case int64:
		return strconv.FormatInt(n, 10), n >= 0
	case uint:
		return strconv.FormatUint(uint64(n), 10), true
	case uint8:
		return strconv.FormatUint(uint64(n), 10), true
	case uint16:
		return strconv.FormatUint(uint64(n), 10), true
	case uint32:
		return strconv.FormatUint(uint64(n), 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case string:
		return n, limitPattern.MatchString(n)
	default:
		return "", false
	}
}

// Join appends a plain JOIN.
func (b *Builder) Join(spec, on string) *Builder {
	return b.JoinWith("", spec, on)
}

// LeftJoin appends a LEFT JOIN.
func (b *Builder) LeftJoin(spec, on string) *Builder {
	return b.JoinWith("LEFT", spec, on)
}

// InnerJoin appends an INNER JOIN.
func (b *Builder) InnerJoin(spec, on string) *Builder {
	return b.JoinWith("INNER", spec, on)
}

// JoinWith appends a join of the given mode ("LEFT", "RIGHT OUTER", ...).
// The ON condition is emitted as written.
func (b *Builder) JoinWith(mode, spec, on string) *Builder {
	if !b.ok() || !b.requireExtended("Join") {
		return b
	}
	ref, err := types.ParseTable(spec)
	if err != nil {
		return b.fail("Join", "%v, got %q", err, spec)
	}
	if ref.IsSub() {
		return b.fail("Join", "subqueries cannot be joined; select from them with Table")
	}
	if strings.TrimSpace(on) == "" {
		return b.fail("Join", "join on %s needs an ON condition", ref.Name())
	}

	var sb strings.Builder
	if mode = strings.ToUpper(strings.Join(strings.Fields(mode), " ")); mode != "" {
		sb.WriteString(mode)
		sb.WriteByte(' ')
	}
	sb.WriteString("JOIN ")
	sb.WriteString(b.tableName(b.defaults.prefixed(ref.Name())))
	if ref.HasAlias() {
		sb.WriteString(" AS ")
		sb.WriteString(ref.Alias())
	}
	sb.WriteString(" ON ")
	sb.WriteString(on)

	b.live.joins = append(b.live.joins, sb.String())
	return b
}

// As names the subquery being built. The alias follows the closing parenthesis.
func (b *Builder) As(alias string) *Builder {
	if !b.ok() || !b.requireExtended("As") {
		return b
	}
	if b.level == 0 {
		return b.fail("As", "alias %q set outside of a subquery", alias)
	}
	if b.live.opening == slotWhere {
		return b.fail("As", "subqueries in WHERE cannot be aliased")
	}
	if !sqllex.ValidIdentifier(alias) || strings.Contains(alias, ".") {
		return b.halt(types.HaltAlias)
	}
	b.live.alias = alias
	return b
}

// Backticks turns identifier quoting on or off for the rest of the current
// statement level. The default comes back with the next statement.
func (b *Builder) Backticks(on bool) *Builder {
	if !b.ok() {
		return b
	}
	b.live.backticks = on
	return b
}

// BackticksAsDefault changes the quoting mode of the current and every later statement.
func (b *Builder) BackticksAsDefault(on bool) *Builder {
	if !b.ok() {
		return b
	}
	b.defaults.backticks = on
	b.live.backticks = on
	return b
}

// Preview makes the next root action return its lines without executing them.
func (b *Builder) Preview() *Builder {
	if !b.ok() {
		return b
	}
	b.preview = true
	return b
}

// tableName quotes a table name when backticks are on.
func (b *Builder) tableName(name string) string {
	if b.quote() {
		return sqllex.QuoteIdentifier(name)
	}
	return name
}
