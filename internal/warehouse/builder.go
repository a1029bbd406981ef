package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/qodeinvest/qode-engine/internal/pkg/stringutil"
	"github.com/qodeinvest/qode-engine/internal/service"
)

// Mode selects whether the builder materializes tables or registers views
// over the parquet files.
type Mode string

const (
	ModeViews  Mode = "views"
	ModeTables Mode = "tables"
)

// Executor runs SQL against a warehouse resource. A connection adapter
// satisfies it.
type Executor interface {
	ExecuteQuery(ctx context.Context, query string, params interface{}, options *service.QueryExecOptions) (*service.QueryResult, error)
}

// BuilderConfig controls a warehouse build run.
type BuilderConfig struct {
	Schema        string
	Mode          Mode
	SkipExchanges []string
}

// BuildStats summarizes a build run.
type BuildStats struct {
	Objects int
	Skipped int
	Failed  int
}

// Builder registers the cold storage parquet tree as relations in a schema.
//
// The tree is laid out as <root>/<EXCHANGE>/<instrument>/..., where instrument
// is one of Index, Options or Futures. Every parquet file becomes a relation
// named after its path components plus a _std companion with standardized
// column names.
type Builder struct {
	exec     Executor
	schema   string
	mode     Mode
	skip     map[string]struct{}
	onObject func(name string)
	logger   *slog.Logger
}

// NewBuilder wires a builder to the adapter it will run DDL through.
func NewBuilder(exec Executor, cfg BuilderConfig, logger *slog.Logger) *Builder {
	schema := cfg.Schema
	if schema == "" {
		schema = "market_data"
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeViews
	}
	skip := make(map[string]struct{}, len(cfg.SkipExchanges))
	for _, exchange := range cfg.SkipExchanges {
		skip[exchange] = struct{}{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{exec: exec, schema: schema, mode: mode, skip: skip, logger: logger}
}

// OnObject registers a progress callback invoked once per registered relation.
func (b *Builder) OnObject(fn func(name string)) {
	b.onObject = fn
}

// Build walks the parquet tree under dataDir and registers every instrument
// file. Individual failures are logged and counted, not fatal.
func (b *Builder) Build(ctx context.Context, dataDir string) (*BuildStats, error) {
	info, err := os.Stat(dataDir)
	if err != nil {
		return nil, fmt.Errorf("stat data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data dir %s is not a directory", dataDir)
	}

	if _, err := b.exec.ExecuteQuery(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", b.schema), nil, nil); err != nil {
		return nil, fmt.Errorf("create schema %s: %w", b.schema, err)
	}

	stats := &BuildStats{}
	exchanges, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	for _, exchange := range exchanges {
		if !exchange.IsDir() {
			continue
		}
		if _, skipped := b.skip[exchange.Name()]; skipped {
			b.logger.Info("skipping exchange", "exchange", exchange.Name())
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := b.buildExchange(ctx, dataDir, exchange.Name(), stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (b *Builder) buildExchange(ctx context.Context, dataDir, exchange string, stats *BuildStats) error {
	exchangePath := filepath.Join(dataDir, exchange)
	instruments, err := os.ReadDir(exchangePath)
	if err != nil {
		return fmt.Errorf("read exchange dir %s: %w", exchange, err)
	}

	for _, instrument := range instruments {
		if !instrument.IsDir() {
			continue
		}
		instrumentPath := filepath.Join(exchangePath, instrument.Name())
		switch instrument.Name() {
		case InstrumentIndex:
			b.buildIndexTree(ctx, instrumentPath, exchange, stats)
		case InstrumentOptions:
			b.buildOptionsTree(ctx, instrumentPath, exchange, stats)
		case InstrumentFutures:
			b.buildFuturesTree(ctx, instrumentPath, exchange, stats)
		default:
			b.logger.Warn("unknown instrument directory", "exchange", exchange, "instrument", instrument.Name())
			stats.Skipped++
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildIndexTree(ctx context.Context, instrumentPath, exchange string, stats *BuildStats) {
	for _, indexName := range subdirs(instrumentPath) {
		indexDir := filepath.Join(instrumentPath, indexName)
		for _, file := range parquetFiles(indexDir) {
			components := Components{
				Exchange:   SanitizeName(exchange),
				Instrument: InstrumentIndex,
				Underlying: SanitizeName(indexName),
			}
			b.register(ctx, components, filepath.Join(indexDir, file), stats)
		}
	}
}

func (b *Builder) buildOptionsTree(ctx context.Context, instrumentPath, exchange string, stats *BuildStats) {
	for _, underlying := range subdirs(instrumentPath) {
		underlyingDir := filepath.Join(instrumentPath, underlying)
		for _, expiry := range subdirs(underlyingDir) {
			expiryDir := filepath.Join(underlyingDir, expiry)
			for _, strike := range subdirs(expiryDir) {
				strikeDir := filepath.Join(expiryDir, strike)
				for _, file := range parquetFiles(strikeDir) {
					optionType := optionTypeFromFile(file)
					if optionType == "" {
						b.logger.Warn("cannot infer option side from file name", "file", file)
						stats.Skipped++
						continue
					}
					components := Components{
						Exchange:   SanitizeName(exchange),
						Instrument: InstrumentOptions,
						Underlying: SanitizeName(underlying),
						Expiry:     SanitizeName(expiry),
						Strike:     SanitizeName(strike),
						OptionType: optionType,
					}
					b.register(ctx, components, filepath.Join(strikeDir, file), stats)
				}
			}
		}
	}
}

func (b *Builder) buildFuturesTree(ctx context.Context, instrumentPath, exchange string, stats *BuildStats) {
	for _, underlying := range subdirs(instrumentPath) {
		underlyingDir := filepath.Join(instrumentPath, underlying)
		for _, file := range parquetFiles(underlyingDir) {
			components := Components{
				Exchange:   SanitizeName(exchange),
				Instrument: InstrumentFutures,
				Underlying: SanitizeName(underlying),
			}
			b.register(ctx, components, filepath.Join(underlyingDir, file), stats)
		}
	}
}

func (b *Builder) register(ctx context.Context, components Components, parquetPath string, stats *BuildStats) {
	name := fmt.Sprintf("%s.%s", b.schema, components.TableName())
	source := fmt.Sprintf("SELECT * FROM read_parquet(%s)", stringutil.QuoteLiteral(parquetPath))

	if err := b.execDDL(ctx, name, source); err != nil {
		b.logger.Error("failed to register relation", "relation", name, "error", err)
		stats.Failed++
		return
	}

	stdSource := fmt.Sprintf("%s FROM read_parquet(%s)", stdProjection(components.Instrument), stringutil.QuoteLiteral(parquetPath))
	if err := b.execDDL(ctx, name+"_std", stdSource); err != nil {
		b.logger.Error("failed to register std relation", "relation", name+"_std", "error", err)
		stats.Failed++
		return
	}

	stats.Objects++
	b.logger.Info("registered relation", "relation", name, "mode", string(b.mode))
	if b.onObject != nil {
		b.onObject(name)
	}
}

func (b *Builder) execDDL(ctx context.Context, name, source string) error {
	if b.mode == ModeTables {
		if _, err := b.exec.ExecuteQuery(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", name), nil, nil); err != nil {
			return err
		}
		_, err := b.exec.ExecuteQuery(ctx, fmt.Sprintf("CREATE TABLE %s AS %s", name, source), nil, nil)
		return err
	}
	_, err := b.exec.ExecuteQuery(ctx, fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", name, source), nil, nil)
	return err
}

// stdProjection renders the SELECT list of the standardized companion
// relation. Index data carries no volume or open interest.
func stdProjection(instrument string) string {
	base := "SELECT timestamp as datetime, o as open, h as high, l as low, c as close"
	if instrument == InstrumentIndex {
		return base
	}
	return base + ", v as volume, oi as open_interest"
}

func optionTypeFromFile(file string) string {
	stem := strings.TrimSuffix(file, ".parquet")
	parts := strings.Split(stem, "_")
	return NormalizeOptionType(parts[len(parts)-1])
}

func subdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}

func parquetFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".parquet") {
			names = append(names, entry.Name())
		}
	}
	return names
}
