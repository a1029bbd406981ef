// Command query runs one SQL statement against a catalog resource and
// prints the rows tab-separated. With -save the executed query and its
// results are archived under the user's history.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/qodeinvest/qode-engine/internal/history"
	duckdbadapter "github.com/qodeinvest/qode-engine/internal/infrastructure/database/duckdb"
	sqliteadapter "github.com/qodeinvest/qode-engine/internal/infrastructure/database/sqlite"
	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/service"
)

// runner executes one statement against a resolved resource. Hard errors
// are open failures; query failures ride inside the result.
type runner func(ctx context.Context, resource *model.Resource, baseDir, sql string, maxRows int) (*service.QueryResult, error)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], executeOnce, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, exec runner, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("query", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "./resources.yaml", "Path to resource catalog file")
	resourceName := flags.String("resource", "", "Catalog resource to query")
	sqlText := flags.String("sql", "", "SQL statement to execute")
	maxRows := flags.Int("max-rows", 0, "Row cap; 0 uses the service default")
	saveName := flags.String("save", "", "Save the query and results to history under this name")
	historyDir := flags.String("history-dir", "./query_history", "History directory used with -save")
	user := flags.String("user", "anonymous", "User the history entry belongs to")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if strings.TrimSpace(*resourceName) == "" {
		fmt.Fprintln(stderr, "Exception: -resource is required")
		return 1
	}
	if strings.TrimSpace(*sqlText) == "" {
		fmt.Fprintln(stderr, "Exception: -sql is required")
		return 1
	}

	catalog := service.NewResourceCatalogService(*configPath)
	if err := catalog.LoadResources(); err != nil {
		fmt.Fprintf(stderr, "Exception: %v\n", err)
		return 1
	}
	resource, err := catalog.ByName(*resourceName)
	if err != nil {
		fmt.Fprintf(stderr, "Exception: %v\n", err)
		return 1
	}

	result, err := exec(ctx, resource, catalog.ResourcesBaseDir(), *sqlText, *maxRows)
	if err != nil {
		fmt.Fprintf(stderr, "Exception: %v\n", err)
		return 1
	}
	if result.HasError() {
		fmt.Fprintf(stderr, "Query failed: %s\n", result.Error)
		return 1
	}

	renderResult(stdout, result)

	if *saveName != "" {
		store := history.NewStore(*historyDir)
		folder, err := store.Save(*user, *sqlText, *sqlText, *saveName, result)
		if err != nil {
			fmt.Fprintf(stderr, "Exception: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "saved: %s\n", folder)
	}
	return 0
}

func renderResult(stdout io.Writer, result *service.QueryResult) {
	if len(result.Columns) > 0 {
		names := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			names[i] = col.Name
		}
		fmt.Fprintln(stdout, strings.Join(names, "\t"))
	}
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = service.FormatValue(value)
		}
		fmt.Fprintln(stdout, strings.Join(cells, "\t"))
	}
	if result.RowsAffected != nil {
		fmt.Fprintf(stdout, "rows affected: %d\n", *result.RowsAffected)
	}
	if result.Truncated {
		fmt.Fprintf(stdout, "(truncated at %d rows)\n", result.RowCount)
	}
}

func executeOnce(ctx context.Context, resource *model.Resource, baseDir, sql string, maxRows int) (*service.QueryResult, error) {
	params := service.AdapterFactoryParams{ResourceName: resource.Name, Resource: resource, BaseDir: baseDir}

	var (
		adapter service.ConnectionAdapter
		err     error
	)
	switch resource.Engine {
	case model.EngineSQLite:
		adapter, err = sqliteadapter.NewAdapter(params)
	default:
		adapter, err = duckdbadapter.NewAdapter(params)
	}
	if err != nil {
		return nil, err
	}
	if err := adapter.Connect(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = adapter.Close()
	}()

	var options *service.QueryExecOptions
	if maxRows > 0 {
		options = &service.QueryExecOptions{MaxRows: maxRows}
	}
	return service.ExecuteGuarded(ctx, adapter, resource, sql, nil, options), nil
}
