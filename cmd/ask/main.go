// Command ask turns a natural language question into SQL, runs it against
// a catalog resource and prints the generated statement and its rows.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	duckdbadapter "github.com/qodeinvest/qode-engine/internal/infrastructure/database/duckdb"
	sqliteadapter "github.com/qodeinvest/qode-engine/internal/infrastructure/database/sqlite"
	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/nlsql"
	"github.com/qodeinvest/qode-engine/internal/service"
)

// asker translates one question over a resource's live table list and runs
// the generated statement.
type asker func(ctx context.Context, resource *model.Resource, baseDir, question string, maxRows int) (string, *service.QueryResult, error)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], translateAndRun, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, ask asker, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("ask", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "./resources.yaml", "Path to resource catalog file")
	resourceName := flags.String("resource", "", "Catalog resource to query")
	question := flags.String("question", "", "Natural language question")
	maxRows := flags.Int("max-rows", 0, "Row cap; 0 uses the service default")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if strings.TrimSpace(*resourceName) == "" {
		fmt.Fprintln(stderr, "Exception: -resource is required")
		return 1
	}
	if strings.TrimSpace(*question) == "" {
		fmt.Fprintln(stderr, "Exception: -question is required")
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

	sql, result, err := ask(ctx, resource, catalog.ResourcesBaseDir(), *question, *maxRows)
	if err != nil {
		fmt.Fprintf(stderr, "Exception: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "SQL: %s\n", sql)
	if result.HasError() {
		fmt.Fprintf(stderr, "Query failed: %s\n", result.Error)
		return 1
	}

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
	return 0
}

func translateAndRun(ctx context.Context, resource *model.Resource, baseDir, question string, maxRows int) (string, *service.QueryResult, error) {
	apiKey := os.Getenv("NLSQL_API_KEY")
	if apiKey == "" {
		return "", nil, fmt.Errorf("NLSQL_API_KEY is not set")
	}
	translator, err := nlsql.New(nlsql.Config{
		APIKey:  apiKey,
		BaseURL: os.Getenv("NLSQL_BASE_URL"),
		Model:   os.Getenv("NLSQL_MODEL"),
		Timeout: 60 * time.Second,
	})
	if err != nil {
		return "", nil, err
	}

	params := service.AdapterFactoryParams{ResourceName: resource.Name, Resource: resource, BaseDir: baseDir}
	var adapter service.ConnectionAdapter
	switch resource.Engine {
	case model.EngineSQLite:
		adapter, err = sqliteadapter.NewAdapter(params)
	default:
		adapter, err = duckdbadapter.NewAdapter(params)
	}
	if err != nil {
		return "", nil, err
	}
	if err := adapter.Connect(ctx); err != nil {
		return "", nil, err
	}
	defer func() {
		_ = adapter.Close()
	}()

	relations, err := adapter.GetRelations(ctx, resource.DefaultSchemaOrFallback())
	if err != nil {
		return "", nil, err
	}
	tables := make([]string, len(relations))
	for i, rel := range relations {
		tables[i] = rel.Name
	}

	sql, err := translator.Translate(ctx, question, tables)
	if err != nil {
		return "", nil, err
	}

	var options *service.QueryExecOptions
	if maxRows > 0 {
		options = &service.QueryExecOptions{MaxRows: maxRows}
	}
	return sql, service.ExecuteGuarded(ctx, adapter, resource, sql, nil, options), nil
}
