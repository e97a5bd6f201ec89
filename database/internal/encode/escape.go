package encode

import "strings"

var mysqlEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\x00", "\\0",
	"\n", "\\n",
	"\r", "\\r",
	"'", "\\'",
	"\"", "\\\"",
	"\x1a", "\\Z",
)

// MySQL escapes s the way mysql_real_escape_string does for a connection
// without NO_BACKSLASH_ESCAPES.
func MySQL(s string) string {
	if !strings.ContainsAny(s, "\\\x00\n\r'\"\x1a") {
		return s
	}
	return mysqlEscaper.Replace(s)
}

// Standard escapes s for engines that follow the SQL standard, where the only
// special character inside a literal is the single quote.
func Standard(s string) string {
	if !strings.Contains(s, "'") {
		return s
	}
	return strings.ReplaceAll(s, "'", "''")
}
