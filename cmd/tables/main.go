// Command tables lists the relations of a warehouse file, one per line.
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
)

// lister runs the introspection query against one warehouse file. A hard
// error means the database could not be opened; a query failure rides
// inside the result.
type lister func(ctx context.Context, dbPath, schema string) (*service.QueryResult, error)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	os.Exit(run(context.Background(), os.Args[1:], listTables, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, list lister, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("tables", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dbPath := flags.String("db", "my_duck_database.db", "Path to the warehouse file")
	schema := flags.String("schema", "main", "Schema whose tables are listed")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	result, err := list(ctx, *dbPath, *schema)
	if err != nil {
		fmt.Fprintf(stderr, "Exception: %v\n", err)
		return 1
	}
	if result.HasError() {
		fmt.Fprintf(stderr, "Query failed: %s\n", result.Error)
		return 1
	}

	fmt.Fprintln(stdout, "Tables in database:")
	for _, row := range result.Rows {
		if len(row) == 0 {
			continue
		}
		fmt.Fprintf(stdout, "- %s\n", service.FormatValue(row[0]))
	}
	return 0
}

func listTables(ctx context.Context, dbPath, schema string) (*service.QueryResult, error) {
	resource := &model.Resource{Name: "warehouse", Engine: model.EngineDuckDB, Path: dbPath, ReadOnly: true}
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

	query := "SELECT table_name FROM information_schema.tables WHERE table_schema = ?"
	return service.Execute(ctx, adapter, query, []interface{}{schema}, nil), nil
}
