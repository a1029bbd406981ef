package sqlutil

import "strings"

// IsSQLSelectQuery checks if a SQL query is a SELECT statement.
func IsSQLSelectQuery(query string) bool {
	for i := range len(query) {
		ch := query[i]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			continue
		}
		return len(query) >= i+6 &&
			(query[i] == 's' || query[i] == 'S') &&
			(query[i+1] == 'e' || query[i+1] == 'E') &&
			(query[i+2] == 'l' || query[i+2] == 'L') &&
			(query[i+3] == 'e' || query[i+3] == 'E') &&
			(query[i+4] == 'c' || query[i+4] == 'C') &&
			(query[i+5] == 't' || query[i+5] == 'T')
	}
	return false
}

// mutatingKeywords are statement keywords that change data or schema.
var mutatingKeywords = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "DROP": {}, "CREATE": {},
	"ALTER": {}, "TRUNCATE": {}, "REPLACE": {}, "UPSERT": {}, "MERGE": {},
	"COPY": {}, "GRANT": {}, "REVOKE": {},
}

// StripComments removes -- line comments and terminated /* */ block
// comments from a SQL string.
func StripComments(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); {
		if query[i] == '-' && i+1 < len(query) && query[i+1] == '-' {
			j := strings.IndexByte(query[i:], '\n')
			if j < 0 {
				break
			}
			i += j
			continue
		}
		if query[i] == '/' && i+1 < len(query) && query[i+1] == '*' {
			j := strings.Index(query[i+2:], "*/")
			if j >= 0 {
				i += j + 4
				continue
			}
		}
		b.WriteByte(query[i])
		i++
	}
	return b.String()
}

// IsReadOnlyQuery reports whether the statement contains no mutating
// keyword outside of comments. Keywords are matched on word boundaries,
// so identifiers like insert_log pass.
func IsReadOnlyQuery(query string) bool {
	stripped := StripComments(query)
	start := -1
	for i := 0; i <= len(stripped); i++ {
		var wordByte bool
		if i < len(stripped) {
			ch := stripped[i]
			wordByte = ch == '_' ||
				('a' <= ch && ch <= 'z') ||
				('A' <= ch && ch <= 'Z') ||
				('0' <= ch && ch <= '9')
		}
		if wordByte {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			word := strings.ToUpper(stripped[start:i])
			if _, bad := mutatingKeywords[word]; bad {
				return false
			}
			start = -1
		}
	}
	return true
}
