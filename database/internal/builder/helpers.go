package builder

import (
	"sort"
	"strings"
)

// sortedKeys returns a deterministically ordered slice of keys from the provided map.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// nonEmpty drops blank lines so optional clauses never show up as empty keywords.
func nonEmpty(lines ...string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// indentLines prefixes every element of lines with prefix and joins them with newlines.
func indentLines(lines []string, prefix string) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(prefix)
		b.WriteString(l)
	}
	return b.String()
}

// totalLen sums the byte length of all items.
func totalLen(items []string) int {
	n := 0
	for _, s := range items {
		n += len(s)
	}
	return n
}
