// Command feed_worker consumes bar messages from Kafka and appends them to
// the warehouse, updating the hot cache as it goes. Several consumers can
// run in one process, each with its own reader in the same group.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/qodeinvest/qode-engine/internal/cache"
	"github.com/qodeinvest/qode-engine/internal/feed"
	duckdbadapter "github.com/qodeinvest/qode-engine/internal/infrastructure/database/duckdb"
	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})).With(slog.String("app", "feed-worker")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	brokers := feed.Brokers()
	topic := feed.TopicFromEnv("BAR_KAFKA_TOPIC", feed.DefaultBarTopic)
	group := envString("FEED_WORKER_GROUP", "feed-worker")
	workerCount := envInt("FEED_WORKER_CONCURRENCY", 1)

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	err := feed.WaitForBroker(waitCtx, brokers)
	cancel()
	if err != nil {
		slog.Error("broker never became reachable", slog.Any("err", err))
		return 1
	}

	resource := &model.Resource{
		Name:   "warehouse",
		Engine: model.EngineDuckDB,
		Path:   envString("WAREHOUSE_DB", "my_duck_database.db"),
	}
	adapter, err := duckdbadapter.NewAdapter(service.AdapterFactoryParams{ResourceName: resource.Name, Resource: resource})
	if err != nil {
		slog.Error("failed to build warehouse adapter", slog.Any("err", err))
		return 1
	}
	if err := adapter.Connect(ctx); err != nil {
		slog.Error("failed to open warehouse", slog.Any("err", err))
		return 1
	}
	defer func() {
		_ = adapter.Close()
	}()

	barCache := buildBarCache()
	if barCache != nil {
		defer func() {
			_ = barCache.Close()
		}()
	}

	worker := feed.NewWorker(adapter, barCache, feed.WorkerConfig{Schema: envString("WAREHOUSE_SCHEMA", "market_data")}, slog.Default())

	slog.Info("feed worker started", slog.String("topic", topic), slog.String("group", group), slog.Int("workers", workerCount))
	runConsumers(ctx, worker, brokers, topic, group, workerCount)
	return 0
}

func runConsumers(ctx context.Context, worker *feed.Worker, brokers []string, topic, group string, workerCount int) {
	if workerCount <= 0 {
		workerCount = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reader := feed.NewReader(brokers, topic, group)
			defer func() {
				_ = reader.Close()
			}()
			_ = worker.Consume(ctx, reader)
		}()
	}
	<-ctx.Done()
	wg.Wait()
}

func buildBarCache() cache.BarCache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		slog.Info("REDIS_ADDR not set, hot cache disabled")
		return nil
	}
	db := envInt("REDIS_DB", 0)
	barCache, err := cache.NewRedisBarCache(addr, os.Getenv("REDIS_PASSWORD"), db, os.Getenv("REDIS_PREFIX"))
	if err != nil {
		slog.Warn("failed to build hot cache", slog.Any("err", err))
		return nil
	}
	return barCache
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
