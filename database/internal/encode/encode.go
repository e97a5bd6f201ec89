// Package encode turns Go values into SQL literal text under an escaping rule.
package encode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gaborage/qdb/database/types"
)

// TimeLayout is the literal format used for time.Time values.
const TimeLayout = "2006-01-02 15:04:05"

var numericPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// IsNumeric reports whether s reads as a decimal or scientific number.
// Leading or trailing whitespace disqualifies it.
func IsNumeric(s string) bool {
	return numericPattern.MatchString(s)
}

// Value renders v as a SQL literal. Booleans become 1 or 0 and nil becomes
// NULL. Numbers, and strings that read as numbers, are emitted unquoted under
// every rule. Other values follow rule: full quoting through escape, verbatim,
// or escaping only the partial rule's target substring.
func Value(v any, rule types.EscapeRule, escape func(string) string) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(val)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return String(val.Format(TimeLayout), rule, escape)
	case []byte:
		return String(string(val), rule, escape)
	case fmt.Stringer:
		return String(val.String(), rule, escape)
	case string:
		return String(val, rule, escape)
	default:
		return String(fmt.Sprint(val), rule, escape)
	}
}

// String applies rule to a string value.
func String(s string, rule types.EscapeRule, escape func(string) string) string {
	if IsNumeric(s) {
		return s
	}
	if rule.IsNone() {
		return s
	}
	if target, ok := rule.Target(); ok {
		if target == "" {
			return s
		}
		return strings.ReplaceAll(s, target, escape(target))
	}
	return "'" + escape(s) + "'"
}
