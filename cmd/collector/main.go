// Command collector polls the TrueData minute feed and publishes bars to
// the Kafka bar topic, mirroring them into the hot cache when configured.
// With -from/-to it backfills a historic minute range instead of running
// the live loop.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/qodeinvest/qode-engine/internal/cache"
	"github.com/qodeinvest/qode-engine/internal/feed"
	"github.com/qodeinvest/qode-engine/internal/secrets"
	"github.com/qodeinvest/qode-engine/internal/truedata"
)

const minuteFlagLayout = "2006-01-02 15:04"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})).With(slog.String("app", "collector")))

	from := flag.String("from", "", "Backfill start minute (2006-01-02 15:04)")
	to := flag.String("to", "", "Backfill end minute, inclusive")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	password, err := secrets.NewResolver().Resolve(&secrets.Ref{
		Type: envString("TRUEDATA_PWD_SOURCE", "env"),
		Key:  envString("TRUEDATA_PWD_KEY", "TRUEDATA_LOGIN_PWD"),
	})
	if err != nil {
		slog.Error("failed to resolve feed password", slog.Any("err", err))
		return 1
	}

	client, err := truedata.NewClient(truedata.Config{
		AuthURL:    os.Getenv("TRUEDATA_AUTH_URL"),
		HistoryURL: os.Getenv("TRUEDATA_HISTORY_URL"),
		LoginID:    os.Getenv("TRUEDATA_LOGIN_ID"),
		Password:   password,
	})
	if err != nil {
		slog.Error("failed to build feed client", slog.Any("err", err))
		return 1
	}

	brokers := feed.Brokers()
	topic := feed.TopicFromEnv("BAR_KAFKA_TOPIC", feed.DefaultBarTopic)

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	err = feed.WaitForBroker(waitCtx, brokers)
	cancel()
	if err != nil {
		slog.Error("broker never became reachable", slog.Any("err", err))
		return 1
	}
	if err := feed.EnsureTopic(ctx, brokers, topic); err != nil {
		slog.Error("failed to ensure topic", slog.String("topic", topic), slog.Any("err", err))
		return 1
	}

	writer := feed.NewWriter(brokers, topic)
	defer func() {
		_ = writer.Close()
	}()

	barCache := buildBarCache()
	if barCache != nil {
		defer func() {
			_ = barCache.Close()
		}()
	}

	collector := feed.NewCollector(client, writer, barCache, feed.CollectorConfig{
		Segments: splitList(os.Getenv("TRUEDATA_SEGMENTS")),
		Interval: time.Duration(envInt("COLLECT_INTERVAL_SECONDS", 60)) * time.Second,
	}, slog.Default())

	if *from != "" || *to != "" {
		return backfill(ctx, collector, *from, *to)
	}

	slog.Info("collector started", slog.String("topic", topic))
	collector.Run(ctx)
	return 0
}

func backfill(ctx context.Context, collector *feed.Collector, from, to string) int {
	fromMinute, err := time.Parse(minuteFlagLayout, from)
	if err != nil {
		slog.Error("invalid -from minute", slog.Any("err", err))
		return 1
	}
	toMinute, err := time.Parse(minuteFlagLayout, to)
	if err != nil {
		slog.Error("invalid -to minute", slog.Any("err", err))
		return 1
	}

	published, err := collector.CollectRange(ctx, fromMinute, toMinute)
	if err != nil {
		slog.Error("backfill failed", slog.Any("err", err))
		return 1
	}
	slog.Info("backfill complete", slog.Int("bars", published))
	return 0
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
