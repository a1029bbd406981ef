package stringutil

import (
	"fmt"
	"strings"
)

// EscapeIdentifier escapes a SQL identifier (double-quote escaping).
func EscapeIdentifier(input string) string {
	return strings.ReplaceAll(input, "\"", "\"\"")
}

// QuoteLiteral escapes a string literal for SQL (single-quote escaping).
func QuoteLiteral(input string) string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(input, "'", "''"))
}

// CopyStrings creates a copy of a string slice.
func CopyStrings(src []string) []string {
	if len(src) == 0 {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
