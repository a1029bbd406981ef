package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/qodeinvest/qode-engine/internal/model"
)

const barTimestampLayout = "2006-01-02 15:04:05"

// BarCache keeps the most recent bars per instrument in Redis so collectors and
// API readers can share ticks without touching the warehouse.
//
// Layout: one hash per symbol keyed by bar timestamp, one reverse hash per
// timestamp ("tick_<ts>") keyed by symbol, and an "instruments" set listing
// every symbol seen.
type BarCache interface {
	PutBars(ctx context.Context, symbol string, bars []model.Bar) error
	BarAt(ctx context.Context, symbol string, ts time.Time) (*model.Bar, bool, error)
	LatestBar(ctx context.Context, symbol string) (*model.Bar, bool, error)
	TickAt(ctx context.Context, ts time.Time) (map[string]model.Bar, error)
	Instruments(ctx context.Context) ([]string, error)
	Close() error
}

type redisBarCache struct {
	client *redis.Client
	prefix string
}

// NewRedisBarCache builds a cache over a single Redis endpoint.
func NewRedisBarCache(addr, password string, db int, prefix string) (BarCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if prefix == "" {
		prefix = "bars"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisBarCache{client: client, prefix: prefix}, nil
}

// NewRedisBarCacheWithClient wraps an existing client, mainly for tests.
func NewRedisBarCacheWithClient(client *redis.Client, prefix string) BarCache {
	if prefix == "" {
		prefix = "bars"
	}
	return &redisBarCache{client: client, prefix: prefix}
}

func (c *redisBarCache) symbolKey(symbol string) string {
	return fmt.Sprintf("%s:%s", c.prefix, symbol)
}

func (c *redisBarCache) tickKey(ts time.Time) string {
	return fmt.Sprintf("%s:tick_%s", c.prefix, ts.UTC().Format(barTimestampLayout))
}

func (c *redisBarCache) latestKey(symbol string) string {
	return fmt.Sprintf("%s:latest:%s", c.prefix, symbol)
}

func (c *redisBarCache) instrumentsKey() string {
	return fmt.Sprintf("%s:instruments", c.prefix)
}

func (c *redisBarCache) PutBars(ctx context.Context, symbol string, bars []model.Bar) error {
	if c == nil || c.client == nil {
		return nil
	}
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if len(bars) == 0 {
		return nil
	}

	sorted := make([]model.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	pipe := c.client.Pipeline()
	for _, bar := range sorted {
		payload, err := json.Marshal(bar)
		if err != nil {
			return fmt.Errorf("marshal bar for %s: %w", symbol, err)
		}
		field := bar.Timestamp.UTC().Format(barTimestampLayout)
		pipe.HSet(ctx, c.symbolKey(symbol), field, payload)
		pipe.HSet(ctx, c.tickKey(bar.Timestamp), symbol, payload)
	}
	latest, err := json.Marshal(sorted[len(sorted)-1])
	if err != nil {
		return fmt.Errorf("marshal bar for %s: %w", symbol, err)
	}
	pipe.Set(ctx, c.latestKey(symbol), latest, 0)
	pipe.SAdd(ctx, c.instrumentsKey(), symbol)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write bars for %s: %w", symbol, err)
	}
	return nil
}

func (c *redisBarCache) BarAt(ctx context.Context, symbol string, ts time.Time) (*model.Bar, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	field := ts.UTC().Format(barTimestampLayout)
	raw, err := c.client.HGet(ctx, c.symbolKey(symbol), field).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return decodeBar(raw)
}

func (c *redisBarCache) LatestBar(ctx context.Context, symbol string) (*model.Bar, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, c.latestKey(symbol)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return decodeBar(raw)
}

func (c *redisBarCache) TickAt(ctx context.Context, ts time.Time) (map[string]model.Bar, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.HGetAll(ctx, c.tickKey(ts)).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	tick := make(map[string]model.Bar, len(raw))
	for symbol, value := range raw {
		var bar model.Bar
		if err := json.Unmarshal([]byte(value), &bar); err != nil {
			return nil, fmt.Errorf("decode bar for %s: %w", symbol, err)
		}
		tick[symbol] = bar
	}
	return tick, nil
}

func (c *redisBarCache) Instruments(ctx context.Context) ([]string, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	symbols, err := c.client.SMembers(ctx, c.instrumentsKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (c *redisBarCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func decodeBar(raw []byte) (*model.Bar, bool, error) {
	var bar model.Bar
	if err := json.Unmarshal(raw, &bar); err != nil {
		return nil, false, err
	}
	return &bar, true, nil
}
