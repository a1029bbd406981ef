// Command optimize prepares a built warehouse for query traffic: drops
// _std leftovers, indexes every table on timestamp and vacuums the file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	duckdbadapter "github.com/qodeinvest/qode-engine/internal/infrastructure/database/duckdb"
	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/service"
	"github.com/qodeinvest/qode-engine/internal/warehouse"
)

type optimizeRunner func(ctx context.Context, dbPath, schema string) (*warehouse.OptimizeStats, error)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	os.Exit(run(context.Background(), os.Args[1:], runOptimize, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, optimize optimizeRunner, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("optimize", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dbPath := flags.String("db", "my_duck_database.db", "Path to the warehouse file")
	schema := flags.String("schema", "market_data", "Schema whose tables are optimized")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	stats, err := optimize(ctx, *dbPath, *schema)
	if err != nil {
		fmt.Fprintf(stderr, "Exception: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "done: %d indexed, %d dropped, %d failed\n", stats.Indexed, stats.DroppedStd, stats.Failed)
	if stats.Failed > 0 {
		return 1
	}
	return 0
}

func runOptimize(ctx context.Context, dbPath, schema string) (*warehouse.OptimizeStats, error) {
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

	return warehouse.Optimize(ctx, adapter, schema, slog.Default())
}
