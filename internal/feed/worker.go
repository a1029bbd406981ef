package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/qodeinvest/qode-engine/internal/cache"
	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/warehouse"
)

// MessageReader is the consuming side of the bar topic. *kafka.Reader
// satisfies it.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// WorkerConfig controls where consumed bars land.
type WorkerConfig struct {
	Schema string
}

// Worker drains the bar topic into the warehouse and refreshes the hot cache.
// Each instrument gets its own relation, created on first sight.
type Worker struct {
	exec     warehouse.Executor
	barCache cache.BarCache
	schema   string

	// knownMu guards known; one worker may serve several consumer goroutines.
	knownMu sync.Mutex
	known   map[string]bool

	logger *slog.Logger
}

// NewWorker wires a worker to the warehouse adapter it writes through.
func NewWorker(exec warehouse.Executor, barCache cache.BarCache, cfg WorkerConfig, logger *slog.Logger) *Worker {
	schema := cfg.Schema
	if schema == "" {
		schema = "market_data"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		exec:     exec,
		barCache: barCache,
		schema:   schema,
		known:    make(map[string]bool),
		logger:   logger,
	}
}

// Consume reads messages until the context is canceled. Malformed or
// unwritable messages are logged and skipped so one bad bar cannot wedge the
// partition.
func (w *Worker) Consume(ctx context.Context, reader MessageReader) error {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("read message failed", "error", err)
			continue
		}
		if err := w.Handle(ctx, msg); err != nil {
			w.logger.Error("handle message failed", "key", string(msg.Key), "error", err)
		}
	}
}

// Handle lands a single bar message in the warehouse and the cache.
func (w *Worker) Handle(ctx context.Context, msg kafka.Message) error {
	bar, err := DecodeBarMessage(msg)
	if err != nil {
		return err
	}

	table := bar.Table
	if table == "" {
		table = warehouse.ParseSymbol(bar.Symbol, bar.Segment).TableName()
	}
	qualified := fmt.Sprintf("%s.%s", w.schema, warehouse.SanitizeName(table))

	if err := w.ensureTable(ctx, qualified); err != nil {
		return fmt.Errorf("ensure table %s: %w", qualified, err)
	}
	if err := w.insertBar(ctx, qualified, bar.Bar); err != nil {
		return fmt.Errorf("insert into %s: %w", qualified, err)
	}

	if w.barCache != nil {
		if err := w.barCache.PutBars(ctx, bar.Symbol, []model.Bar{bar.Bar}); err != nil {
			w.logger.Warn("cache write failed", "symbol", bar.Symbol, "error", err)
		}
	}
	return nil
}

func (w *Worker) ensureTable(ctx context.Context, qualified string) error {
	w.knownMu.Lock()
	defer w.knownMu.Unlock()
	if w.known[qualified] {
		return nil
	}
	if !w.known[w.schema] {
		if _, err := w.exec.ExecuteQuery(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema), nil, nil); err != nil {
			return err
		}
		w.known[w.schema] = true
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (timestamp TIMESTAMP, o DOUBLE, h DOUBLE, l DOUBLE, c DOUBLE, v DOUBLE, oi DOUBLE)",
		qualified)
	if _, err := w.exec.ExecuteQuery(ctx, ddl, nil, nil); err != nil {
		return err
	}
	w.known[qualified] = true
	return nil
}

func (w *Worker) insertBar(ctx context.Context, qualified string, bar model.Bar) error {
	query := fmt.Sprintf("INSERT INTO %s (timestamp, o, h, l, c, v, oi) VALUES (?, ?, ?, ?, ?, ?, ?)", qualified)
	params := []interface{}{bar.Timestamp, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.OpenInterest}
	_, err := w.exec.ExecuteQuery(ctx, query, params, nil)
	return err
}
