package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/qodeinvest/qode-engine/internal/warehouse"
)

func TestRunReportsStatsAndProgress(t *testing.T) {
	fake := func(ctx context.Context, dbPath, dataDir string, cfg warehouse.BuilderConfig, onObject func(string)) (*warehouse.BuildStats, error) {
		onObject("NSE_Index_NIFTY")
		onObject("NSE_Index_NIFTY_std")
		return &warehouse.BuildStats{Objects: 2}, nil
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-data", "/tmp/parquet"}, fake, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "registered NSE_Index_NIFTY\n") {
		t.Fatalf("missing progress line, stdout = %q", out)
	}
	if !strings.Contains(out, "done: 2 objects, 0 skipped, 0 failed") {
		t.Fatalf("missing summary, stdout = %q", out)
	}
}

func TestRunDefaultsToTablesMode(t *testing.T) {
	var gotCfg warehouse.BuilderConfig
	fake := func(ctx context.Context, dbPath, dataDir string, cfg warehouse.BuilderConfig, onObject func(string)) (*warehouse.BuildStats, error) {
		gotCfg = cfg
		return &warehouse.BuildStats{}, nil
	}

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-data", "/tmp/parquet", "-skip", "BSE"}, fake, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	if gotCfg.Mode != warehouse.ModeTables {
		t.Fatalf("mode = %q, want tables", gotCfg.Mode)
	}
	if len(gotCfg.SkipExchanges) != 1 || gotCfg.SkipExchanges[0] != "BSE" {
		t.Fatalf("skip = %v", gotCfg.SkipExchanges)
	}
}

func TestRunViewsFlagSwitchesMode(t *testing.T) {
	var gotCfg warehouse.BuilderConfig
	fake := func(ctx context.Context, dbPath, dataDir string, cfg warehouse.BuilderConfig, onObject func(string)) (*warehouse.BuildStats, error) {
		gotCfg = cfg
		return &warehouse.BuildStats{}, nil
	}

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-data", "/tmp/parquet", "-views"}, fake, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotCfg.Mode != warehouse.ModeViews {
		t.Fatalf("mode = %q, want views", gotCfg.Mode)
	}
}

func TestRunFailuresFlipExitCode(t *testing.T) {
	fake := func(ctx context.Context, dbPath, dataDir string, cfg warehouse.BuilderConfig, onObject func(string)) (*warehouse.BuildStats, error) {
		return &warehouse.BuildStats{Objects: 3, Failed: 1}, nil
	}

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-data", "/tmp/parquet"}, fake, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunRequiresDataDir(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, nil, &stdout, &stderr)

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "-data is required") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunReportsBuildError(t *testing.T) {
	fake := func(ctx context.Context, dbPath, dataDir string, cfg warehouse.BuilderConfig, onObject func(string)) (*warehouse.BuildStats, error) {
		return nil, errors.New("IO Error: cannot open database")
	}

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-data", "/tmp/parquet"}, fake, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr.String(), "Exception: ") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}
