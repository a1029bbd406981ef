package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/qodeinvest/qode-engine/internal/warehouse"
)

func TestRunPrintsSummary(t *testing.T) {
	fake := func(ctx context.Context, dbPath, schema string) (*warehouse.OptimizeStats, error) {
		if dbPath != "bars.db" || schema != "market_data" {
			t.Fatalf("called with (%q, %q)", dbPath, schema)
		}
		return &warehouse.OptimizeStats{Indexed: 4, DroppedStd: 2}, nil
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-db", "bars.db"}, fake, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "done: 4 indexed, 2 dropped, 0 failed") {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestRunFailuresFlipExitCode(t *testing.T) {
	fake := func(ctx context.Context, dbPath, schema string) (*warehouse.OptimizeStats, error) {
		return &warehouse.OptimizeStats{Indexed: 3, Failed: 2}, nil
	}

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), nil, fake, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunReportsHardFailure(t *testing.T) {
	fake := func(ctx context.Context, dbPath, schema string) (*warehouse.OptimizeStats, error) {
		return nil, errors.New("VACUUM failed")
	}

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), nil, fake, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr.String(), "Exception: ") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}
