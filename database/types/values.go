//revive:disable-next-line:var-naming // Package name "types" avoids circular imports.
package types

import "strings"

type escapeKind int

const (
	escapeFull escapeKind = iota
	escapeNone
	escapePartial
)

// EscapeRule decides how a value becomes SQL literal text.
// The zero value is EscapeFull.
type EscapeRule struct {
	kind   escapeKind
	target string
}

var (
	// EscapeFull quotes the value and escapes every special character.
	EscapeFull = EscapeRule{kind: escapeFull}

	// EscapeNone passes the value through verbatim. Use it for expressions,
	// IN lists and anything already valid SQL.
	EscapeNone = EscapeRule{kind: escapeNone}
)

// EscapePartial escapes only the occurrences of target inside the value and
// leaves the rest of it untouched and unquoted.
func EscapePartial(target string) EscapeRule {
	return EscapeRule{kind: escapePartial, target: target}
}

// IsFull reports whether the rule quotes and escapes the whole value.
func (r EscapeRule) IsFull() bool { return r.kind == escapeFull }

// IsNone reports whether the rule leaves the value untouched.
func (r EscapeRule) IsNone() bool { return r.kind == escapeNone }

// Target returns the substring escaped by a partial rule, and whether the rule is partial.
func (r EscapeRule) Target() (string, bool) {
	return r.target, r.kind == escapePartial
}

func (r EscapeRule) String() string {
	switch r.kind {
	case escapeNone:
		return "none"
	case escapePartial:
		return "partial(" + r.target + ")"
	default:
		return "full"
	}
}

// Value pairs a raw value with the escaping rule to apply to it.
type Value struct {
	V    any
	Rule EscapeRule
}

// Escaped attaches an explicit escaping rule to v.
func Escaped(v any, rule EscapeRule) Value {
	return Value{V: v, Rule: rule}
}

// Raw marks v to be emitted verbatim.
//
//	b.Where("id", types.Raw("IN (1, 2, 3)"))
func Raw(v any) Value {
	return Value{V: v, Rule: EscapeNone}
}

// Partial marks v to have only target escaped.
//
//	b.Where("name", types.Partial("LIKE 'O'Brien%'", "'Brien"))
func Partial(v any, target string) Value {
	return Value{V: v, Rule: EscapePartial(target)}
}

// Unwrap returns the raw value and its escaping rule. Plain values get EscapeFull.
func Unwrap(v any) (any, EscapeRule) {
	switch val := v.(type) {
	case Value:
		return val.V, val.Rule
	case *Value:
		if val == nil {
			return nil, EscapeFull
		}
		return val.V, val.Rule
	default:
		return v, EscapeFull
	}
}

// Pair is one column/value assignment or predicate.
type Pair struct {
	Column string
	Value  any
}

// P is shorthand for building a Pair.
func P(column string, value any) Pair {
	return Pair{Column: column, Value: value}
}

// BoolOp joins WHERE predicates.
type BoolOp string

const (
	And BoolOp = "AND"
	Or  BoolOp = "OR"
)

// ParseBoolOp maps "and"/"or" in any case to a BoolOp. Anything else is AND.
func ParseBoolOp(s string) BoolOp {
	if strings.EqualFold(strings.TrimSpace(s), string(Or)) {
		return Or
	}
	return And
}

// SubToken stands for "a subquery goes here" when it is passed as a whole
// table spec or as a whole item of a column list.
const SubToken = "[sub]"

// Subquery is the WHERE value that opens a nested SELECT in place of the
// operand. It is a distinct type so that no string value can be mistaken for it.
type Subquery struct {
	op string
}

// Sub opens a subquery compared with "=".
var Sub = Subquery{op: "="}

// SubOp opens a subquery compared with op, e.g. SubOp("IN").
func SubOp(op string) Subquery {
	op = strings.ToUpper(strings.TrimSpace(op))
	if op == "" {
		op = "="
	}
	return Subquery{op: op}
}

// Operator returns the comparison operator placed before the subquery.
func (s Subquery) Operator() string {
	if s.op == "" {
		return "="
	}
	return s.op
}
