package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/qodeinvest/qode-engine/internal/service"
)

func fixedLister(result *service.QueryResult, err error) lister {
	return func(ctx context.Context, dbPath, schema string) (*service.QueryResult, error) {
		return result, err
	}
}

func TestRunPrintsTableNames(t *testing.T) {
	result := &service.QueryResult{
		Status:   service.JobStatusSuccess,
		Columns:  []service.QueryColumn{{Name: "table_name", Type: "VARCHAR"}},
		Rows:     [][]any{{"NSE_Index_NIFTY"}, {"NSE_Index_BANKNIFTY"}},
		RowCount: 2,
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, fixedLister(result, nil), &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	want := "Tables in database:\n- NSE_Index_NIFTY\n- NSE_Index_BANKNIFTY\n"
	if stdout.String() != want {
		t.Fatalf("stdout = %q, want %q", stdout.String(), want)
	}
	if stderr.Len() != 0 {
		t.Fatalf("stderr = %q, want empty", stderr.String())
	}
}

func TestRunChecksResultErrorBeforeIterating(t *testing.T) {
	result := &service.QueryResult{
		Status: service.JobStatusFailed,
		Error:  "Catalog Error: schema missing",
		Rows:   [][]any{{"should-not-print"}},
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, fixedLister(result, nil), &stdout, &stderr)

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout = %q, want empty", stdout.String())
	}
	if got := stderr.String(); got != "Query failed: Catalog Error: schema missing\n" {
		t.Fatalf("stderr = %q", got)
	}
}

func TestRunReportsOpenFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, fixedLister(nil, errors.New("IO Error: locked")), &stdout, &stderr)

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if got := stderr.String(); got != "Exception: IO Error: locked\n" {
		t.Fatalf("stderr = %q", got)
	}
}

func TestRunHonorsDatabaseFlag(t *testing.T) {
	var gotPath, gotSchema string
	capture := func(ctx context.Context, dbPath, schema string) (*service.QueryResult, error) {
		gotPath, gotSchema = dbPath, schema
		return &service.QueryResult{Status: service.JobStatusSuccess}, nil
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-db", "bars.db", "-schema", "market_data"}, capture, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if gotPath != "bars.db" || gotSchema != "market_data" {
		t.Fatalf("lister called with (%q, %q)", gotPath, gotSchema)
	}
}
