package nlsql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qodeinvest/qode-engine/internal/pkg/sqlutil"
)

// ErrNotReadOnly is returned when the model produced a mutating statement.
var ErrNotReadOnly = errors.New("generated query is not read-only")

// maxSchemaTables caps how many table names are injected into the prompt.
const maxSchemaTables = 40

const promptHeader = `### Task
Generate a SQL query for DuckDB that answers the following question.
IMPORTANT: Only generate read-only SELECT queries. Do not generate any queries that modify data.

### Database Schema
The database has tables such as:
`

const promptColumns = `
Each has columns:
- timestamp, o, h, l, c, v, oi

### Question`

// exampleTables is used when no live table list is available.
var exampleTables = []string{
	"options_nifty_20240101_18000_C",
	"index_nifty50",
	"futures_banknifty_20240101",
}

// Translate turns a question into a SELECT statement. The tables slice
// carries the warehouse's live table names; when empty, representative
// examples are used. Output that fails the read-only check is rejected.
func (t *Translator) Translate(ctx context.Context, question string, tables []string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("nlsql: question must be provided")
	}

	raw, err := t.complete(ctx, buildSystemPrompt(tables), question)
	if err != nil {
		return "", fmt.Errorf("nlsql: completion failed: %w", err)
	}

	query := ExtractSQL(raw)
	if query == "" {
		return "", fmt.Errorf("nlsql: no SQL found in response")
	}
	if !sqlutil.IsReadOnlyQuery(query) {
		return "", ErrNotReadOnly
	}
	return query, nil
}

func buildSystemPrompt(tables []string) string {
	if len(tables) == 0 {
		tables = exampleTables
	}
	if len(tables) > maxSchemaTables {
		tables = tables[:maxSchemaTables]
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	for _, table := range tables {
		b.WriteString("- ")
		b.WriteString(table)
		b.WriteString("\n")
	}
	b.WriteString(promptColumns)
	return b.String()
}

// ExtractSQL pulls the SQL statement out of a model response: a fenced
// sql block when present, otherwise the text from the first SELECT up to
// the next section marker.
func ExtractSQL(decoded string) string {
	if idx := strings.Index(decoded, "```sql"); idx != -1 {
		rest := decoded[idx+len("```sql"):]
		if end := strings.Index(rest, "```"); end != -1 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	if idx := strings.Index(decoded, "SELECT"); idx != -1 {
		rest := decoded[idx+len("SELECT"):]
		if end := strings.Index(rest, "###"); end != -1 {
			rest = rest[:end]
		}
		return strings.TrimSpace("SELECT " + strings.TrimSpace(rest))
	}
	return ""
}
