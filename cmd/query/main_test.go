package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/service"
)

func writeCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "resources.yaml")
	catalog := `resources:
  - name: bars
    engine: duckdb
    path: bars.db
    readOnly: true
`
	if err := os.WriteFile(path, []byte(catalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func fixedRunner(result *service.QueryResult) runner {
	return func(ctx context.Context, resource *model.Resource, baseDir, sql string, maxRows int) (*service.QueryResult, error) {
		return result, nil
	}
}

func TestRunRendersRows(t *testing.T) {
	catalogPath := writeCatalog(t)
	result := &service.QueryResult{
		Status:   service.JobStatusSuccess,
		Columns:  []service.QueryColumn{{Name: "symbol", Type: "VARCHAR"}, {Name: "c", Type: "DOUBLE"}},
		Rows:     [][]any{{"NIFTY", 21500.5}, {"BANKNIFTY", 47200.0}},
		RowCount: 2,
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", catalogPath, "-resource", "bars", "-sql", "SELECT symbol, c FROM quotes"}, fixedRunner(result), &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr.String())
	}
	out := stdout.String()
	if !strings.HasPrefix(out, "symbol\tc\n") {
		t.Fatalf("missing header, got %q", out)
	}
	if !strings.Contains(out, "NIFTY\t21500.5") {
		t.Fatalf("missing row, got %q", out)
	}
}

func TestRunReportsQueryFailureInBand(t *testing.T) {
	catalogPath := writeCatalog(t)
	result := &service.QueryResult{Status: service.JobStatusFailed, Error: "Parser Error: syntax error"}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", catalogPath, "-resource", "bars", "-sql", "SELEC 1"}, fixedRunner(result), &stdout, &stderr)

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout = %q, want empty", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Parser Error") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunRejectsUnknownResource(t *testing.T) {
	catalogPath := writeCatalog(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", catalogPath, "-resource", "missing", "-sql", "SELECT 1"}, fixedRunner(nil), &stdout, &stderr)

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr.String(), "Exception: ") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunSavesHistory(t *testing.T) {
	catalogPath := writeCatalog(t)
	historyDir := t.TempDir()
	result := &service.QueryResult{
		Status:   service.JobStatusSuccess,
		Columns:  []service.QueryColumn{{Name: "n", Type: "INTEGER"}},
		Rows:     [][]any{{int64(1)}},
		RowCount: 1,
	}

	var stdout, stderr bytes.Buffer
	args := []string{
		"-config", catalogPath,
		"-resource", "bars",
		"-sql", "SELECT 1 AS n",
		"-save", "smoke check",
		"-history-dir", historyDir,
		"-user", "asha_patel",
	}
	code := run(context.Background(), args, fixedRunner(result), &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "saved: ") {
		t.Fatalf("stdout = %q, want saved folder line", stdout.String())
	}

	entries, err := os.ReadDir(filepath.Join(historyDir, "asha_patel"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("history entries = %v, err = %v", entries, err)
	}
	sqlBytes, err := os.ReadFile(filepath.Join(historyDir, "asha_patel", entries[0].Name(), "query.sql"))
	if err != nil {
		t.Fatalf("read saved sql: %v", err)
	}
	if string(sqlBytes) != "SELECT 1 AS n" {
		t.Fatalf("saved sql = %q", sqlBytes)
	}
}

func TestRunRequiresSQL(t *testing.T) {
	catalogPath := writeCatalog(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", catalogPath, "-resource", "bars"}, fixedRunner(nil), &stdout, &stderr)

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "-sql is required") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}
