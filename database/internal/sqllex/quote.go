package sqllex

import "strings"

// QuoteIdentifier wraps every dot-separated part of ident in backticks.
// Parts that are already quoted or equal to * are left alone.
//
//	QuoteIdentifier("shop.orders") // `shop`.`orders`
func QuoteIdentifier(ident string) string {
	if ident == "" {
		return ident
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		if p == "*" || p == "" || strings.HasPrefix(p, "`") {
			continue
		}
		parts[i] = "`" + p + "`"
	}
	return strings.Join(parts, ".")
}

// QuoteExpr backticks the identifier words of a column or ORDER BY expression.
// Keyword-like words (see IsKeyword) stay bare, as do numbers and anything
// inside single-quoted strings or existing backticks.
//
//	QuoteExpr("COUNT(id) AS total") // COUNT(`id`) AS `total`
func QuoteExpr(expr string) string {
	return quoteWords(expr, false)
}

// QuoteOrderBy is QuoteExpr with ASC and DESC recognized in any case and
// normalized to upper case.
//
//	QuoteOrderBy("created desc, id") // `created` DESC, `id`
func QuoteOrderBy(expr string) string {
	return quoteWords(expr, true)
}

func quoteWords(expr string, orderBy bool) string {
	var b strings.Builder
	b.Grow(len(expr) + 8)

	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == '\'' || c == '`':
			end := closingQuote(expr, i)
			b.WriteString(expr[i:end])
			i = end
		case isWordStart(c):
			j := i + 1
			for j < len(expr) && isWordPart(expr[j]) {
				j++
			}
			b.WriteString(quoteWord(expr[i:j], orderBy))
			i = j
		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(expr) && isWordPart(expr[j]) {
				j++
			}
			b.WriteString(expr[i:j])
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func quoteWord(word string, orderBy bool) string {
	if orderBy {
		if upper := strings.ToUpper(word); upper == "ASC" || upper == "DESC" {
			return upper
		}
	}
	if IsKeyword(word) {
		return word
	}
	return "`" + word + "`"
}

// closingQuote returns the index just past the quoted region starting at
// start. Backslash escapes and doubled quotes are honored. An unterminated
// region runs to the end of the string.
func closingQuote(s string, start int) int {
	q := s[start]
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if q == '\'' {
				i++
			}
		case q:
			if i+1 < len(s) && s[i+1] == q {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(s)
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordPart(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9')
}
