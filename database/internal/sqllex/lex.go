// Package sqllex holds the small lexical helpers the builder needs: operator
// extraction from WHERE values, identifier validation and backtick quoting.
package sqllex

import (
	"regexp"
	"strings"
)

// Operators recognized at the start of a value, in upper case.
var operators = map[string]struct{}{
	"<": {}, "<=": {}, ">=": {}, ">": {}, "IN": {}, "NOT IN": {}, "LIKE": {},
}

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
	comparisonPattern = regexp.MustCompile(`[=<>]`)
)

// SplitOperator separates a leading relational operator from its operand.
//
//	SplitOperator("> 5")          // ">", "5"
//	SplitOperator("not in (1,2)") // "NOT IN", "(1,2)"
//	SplitOperator("Lisbon")       // "=", "Lisbon"
//
// Only the first whitespace run is considered, so text inside the operand is
// never mistaken for an operator.
func SplitOperator(value string) (op, operand string) {
	head, rest, ok := cutSpace(value)
	if !ok {
		return "=", value
	}

	upper := strings.ToUpper(head)
	if upper == "NOT" {
		if next, tail, found := cutSpace(rest); found && strings.EqualFold(next, "IN") {
			return "NOT IN", tail
		}
		return "=", value
	}
	if _, known := operators[upper]; known {
		return upper, rest
	}
	return "=", value
}

// cutSpace splits s at its first run of whitespace. A leading space means no split.
func cutSpace(s string) (head, rest string, ok bool) {
	i := strings.IndexAny(s, " \t\n")
	if i <= 0 {
		return s, "", false
	}
	j := i
	for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n') {
		j++
	}
	return s[:i], s[j:], true
}

// IsKeyword reports whether word consists only of upper-case letters and
// underscores. Such words are treated as SQL keywords or function names and
// never quoted.
func IsKeyword(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		c := word[i]
		if (c < 'A' || c > 'Z') && c != '_' {
			return false
		}
	}
	return true
}

// ValidIdentifier reports whether name only uses letters, digits, underscores and dots.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// ContainsOperator reports whether a column argument carries a comparison
// that belongs in the value instead, like "age >" or "id in".
func ContainsOperator(column string) bool {
	return comparisonPattern.MatchString(column) || strings.HasSuffix(strings.ToLower(column), " in")
}
