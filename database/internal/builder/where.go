package builder

import (
	"strings"

	"github.com/gaborage/qdb/database/internal/encode"
	"github.com/gaborage/qdb/database/internal/sqllex"
	"github.com/gaborage/qdb/database/types"
)

// Where adds "column = value" joined to earlier conditions with AND.
//
// A string value may open with one of < <= >= > IN, NOT IN or LIKE to pick
// another operator:
//
//	b.Where("age", ">= 18")
//	b.Where("id", types.Raw("IN (1, 2, 3)"))
//	b.Where("id", types.SubOp("IN")) // opens a subquery
func (b *Builder) Where(column string, value any) *Builder {
	return b.WhereAll(types.And, types.P(column, value))
}

// OrWhere is Where joined with OR.
func (b *Builder) OrWhere(column string, value any) *Builder {
	return b.WhereAll(types.Or, types.P(column, value))
}

// WhereEscaped is Where with an explicit escaping rule and boolean operator.
func (b *Builder) WhereEscaped(column string, value any, rule types.EscapeRule, op types.BoolOp) *Builder {
	return b.WhereAll(op, types.P(column, types.Escaped(value, rule)))
}

// WhereAll adds a group of conditions, all joined with op. When a WHERE clause
// already exists and it joins more than one predicate, it is wrapped in
// parentheses first, so earlier groups keep their precedence:
//
//	Where("a", 1).OrWhere("b", 2).Where("c", 3)
//	// WHERE (a = 1 OR b = 2) AND c = 3
//
// A group of several pairs appended to an existing clause is parenthesized as a unit.
func (b *Builder) WhereAll(op types.BoolOp, pairs ...types.Pair) *Builder {
	if !b.ok() {
		return b
	}
	if len(pairs) == 0 {
		return b.fail("Where", "expected at least one column/value pair")
	}
	if op != types.Or {
		op = types.And
	}

	sub := -1
	for i, p := range pairs {
		if strings.TrimSpace(p.Column) == "" {
			return b.fail("Where", "input is not associative: every value needs a column name")
		}
		if sqllex.ContainsOperator(p.Column) {
			return b.fail("Where", "put comparison operators into the value, like Where(%q, \"> 1\")",
				strings.TrimRight(strings.TrimRight(strings.TrimSpace(p.Column), "=<>!"), " "))
		}
		if !sqllex.ValidIdentifier(p.Column) {
			return b.halt(types.HaltWhereColumn)
		}
		if _, isSub := subquery(p.Value); isSub {
			if sub >= 0 {
				return b.fail("Where", "only one subquery can be opened per call")
			}
			sub = i
		}
	}
	if sub >= 0 && !b.requireExtended("Where") {
		return b
	}

	c := b.live
	existing := c.where != ""
	group := existing && len(pairs) > 1

	var head, tail strings.Builder
	out := &head
	if existing {
		prior := strings.TrimPrefix(c.where, "WHERE ")
		if c.whereBool {
			prior = "(" + prior + ")"
		}
		head.WriteString("WHERE ")
		head.WriteString(prior)
	} else {
		head.WriteString("WHERE ")
	}

	joiner := " " + string(op) + " "
	for i, p := range pairs {
		if existing || i > 0 {
			out.WriteString(joiner)
		}
		if group && i == 0 {
			out.WriteString("(")
		}

		column := p.Column
		if b.quote() {
			column = sqllex.QuoteIdentifier(column)
		}

		if i == sub {
			s, _ := subquery(p.Value)
			out.WriteString(column + " " + s.Operator() + " ")
			out = &tail
		} else {
			out.WriteString(b.predicate(column, p.Value))
		}

		if group && i == len(pairs)-1 {
			out.WriteString(")")
		}
	}

	c.where = head.String()
	c.whereTail = tail.String()
	if existing || len(pairs) > 1 {
		c.whereBool = true
	}

	if sub >= 0 {
		b.startSubquery(slotWhere)
	}
	return b
}

// predicate renders "column op value". Strings carry their own operator; nil
// compares with IS NULL.
func (b *Builder) predicate(column string, value any) string {
	raw, rule := types.Unwrap(value)
	if raw == nil {
		return column + " IS NULL"
	}

	op := "="
	if s, ok := raw.(string); ok {
		var operand string
		op, operand = sqllex.SplitOperator(s)
		raw = operand
	}
	return column + " " + op + " " + encode.Value(raw, rule, b.conn.Escape)
}

// subquery reports whether v opens a subquery, looking through any escaping wrapper.
func subquery(v any) (types.Subquery, bool) {
	raw, _ := types.Unwrap(v)
	s, ok := raw.(types.Subquery)
	return s, ok
}
