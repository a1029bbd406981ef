// Command ingest registers a cold-storage parquet tree as warehouse
// relations, either materialized tables or views over the files.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	duckdbadapter "github.com/qodeinvest/qode-engine/internal/infrastructure/database/duckdb"
	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/service"
	"github.com/qodeinvest/qode-engine/internal/warehouse"
)

// buildRunner executes one build over a parquet tree.
type buildRunner func(ctx context.Context, dbPath, dataDir string, cfg warehouse.BuilderConfig, onObject func(string)) (*warehouse.BuildStats, error)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	os.Exit(run(context.Background(), os.Args[1:], runBuild, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, build buildRunner, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("ingest", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dbPath := flags.String("db", "my_duck_database.db", "Path to the warehouse file")
	dataDir := flags.String("data", "", "Root of the parquet tree")
	schema := flags.String("schema", "market_data", "Schema the relations are created in")
	views := flags.Bool("views", false, "Create views over the parquet files instead of tables")
	skip := flags.String("skip", "", "Comma-separated exchanges to skip")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if strings.TrimSpace(*dataDir) == "" {
		fmt.Fprintln(stderr, "Exception: -data is required")
		return 1
	}

	mode := warehouse.ModeTables
	if *views {
		mode = warehouse.ModeViews
	}
	cfg := warehouse.BuilderConfig{
		Schema:        *schema,
		Mode:          mode,
		SkipExchanges: splitList(*skip),
	}

	stats, err := build(ctx, *dbPath, *dataDir, cfg, func(name string) {
		fmt.Fprintf(stdout, "registered %s\n", name)
	})
	if err != nil {
		fmt.Fprintf(stderr, "Exception: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "done: %d objects, %d skipped, %d failed\n", stats.Objects, stats.Skipped, stats.Failed)
	if stats.Failed > 0 {
		return 1
	}
	return 0
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func runBuild(ctx context.Context, dbPath, dataDir string, cfg warehouse.BuilderConfig, onObject func(string)) (*warehouse.BuildStats, error) {
	resource := &model.Resource{Name: "warehouse", Engine: model.EngineDuckDB, Path: dbPath}
	adapter, err := duckdbadapter.NewAdapter(service.AdapterFactoryParams{ResourceName: resource.Name, Resource: resource})
	if err != nil {
		return nil, err
	}
	if err := adapter.Connect(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = adapter.Close()
	}()

	builder := warehouse.NewBuilder(adapter, cfg, slog.Default())
	builder.OnObject(onObject)
	return builder.Build(ctx, dataDir)
}
