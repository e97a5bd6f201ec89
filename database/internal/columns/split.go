// Package columns parses column lists for the builder and caches column names
// per table and per tagged struct type.
package columns

import (
	"strings"

	"github.com/gaborage/qdb/database/internal/sqllex"
	"github.com/gaborage/qdb/database/types"
)

// separator splits items in a comma-joined column list.
const separator = ", "

// mask stands in for separators that sit inside parentheses while the list is split.
// It is a control character so it cannot collide with column text.
const mask = "\x1f"

// Split breaks a comma-joined column list into items at top-level ", "
// separators. Separators nested inside parentheses are kept verbatim, so
// "COUNT(a, b), c" yields "COUNT(a, b)" and "c".
func Split(raw string) []string {
	masked := maskNested(raw)
	items := strings.Split(masked, separator)
	for i, item := range items {
		items[i] = strings.ReplaceAll(item, mask, separator)
	}
	return items
}

// maskNested replaces every separator at parenthesis depth above zero with mask.
// Parentheses inside quoted literals do not count.
func maskNested(raw string) string {
	if !strings.Contains(raw, "(") {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))

	depth := 0
	var quote byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth > 0 && strings.HasPrefix(raw[i:], separator):
			b.WriteString(mask)
			i += len(separator) - 1
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Quote backticks the identifiers of each item. "*", "1" and the subquery
// token pass through, as do keyword-like words inside expressions.
func Quote(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = quoteItem(item)
	}
	return out
}

func quoteItem(item string) string {
	switch item {
	case "*", "1", types.SubToken, "":
		return item
	}
	if sqllex.ValidIdentifier(item) {
		if sqllex.IsKeyword(item) {
			return item
		}
		return sqllex.QuoteIdentifier(item)
	}
	return sqllex.QuoteExpr(item)
}
