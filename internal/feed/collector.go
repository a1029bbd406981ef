package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/qodeinvest/qode-engine/internal/cache"
	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/pkg/stringutil"
	"github.com/qodeinvest/qode-engine/internal/truedata"
)

// Source produces per-minute bars for a market segment.
type Source interface {
	Name() string
	AllBars(ctx context.Context, segment string, minute time.Time) ([]truedata.SegmentBar, error)
}

// Publisher sends encoded messages to the bar topic. *kafka.Writer satisfies it.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// CollectorConfig controls what a collector polls.
type CollectorConfig struct {
	Segments []string
	Interval time.Duration
}

// Collector pulls minute bars from the feed source and fans them out to the
// bar topic and the hot cache. The warehouse write happens downstream in the
// feed worker.
type Collector struct {
	source    Source
	publisher Publisher
	barCache  cache.BarCache
	segments  []string
	interval  time.Duration
	logger    *slog.Logger
}

// NewCollector wires a collector. The cache may be nil when only the topic is
// wanted.
func NewCollector(source Source, publisher Publisher, barCache cache.BarCache, cfg CollectorConfig, logger *slog.Logger) *Collector {
	segments := stringutil.CopyStrings(cfg.Segments)
	if len(segments) == 0 {
		segments = []string{truedata.SegmentNSEFutOpt, truedata.SegmentNSEIndex}
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		source:    source,
		publisher: publisher,
		barCache:  barCache,
		segments:  segments,
		interval:  interval,
		logger:    logger,
	}
}

// CollectMinute fetches every configured segment for one minute and publishes
// the bars. Source failures are logged per segment and do not abort the other
// segments; publish failures do.
func (c *Collector) CollectMinute(ctx context.Context, minute time.Time) (int, error) {
	published := 0
	for _, segment := range c.segments {
		if err := ctx.Err(); err != nil {
			return published, err
		}

		bars, err := c.source.AllBars(ctx, segment, minute)
		if err != nil {
			c.logger.Error("fetch failed", "source", c.source.Name(), "segment", segment, "minute", minute, "error", err)
			continue
		}
		if len(bars) == 0 {
			c.logger.Debug("no data", "segment", segment, "minute", minute)
			continue
		}

		n, err := c.publish(ctx, segment, bars)
		published += n
		if err != nil {
			return published, err
		}
	}
	return published, nil
}

// CollectRange backfills every minute between from and to, inclusive.
func (c *Collector) CollectRange(ctx context.Context, from, to time.Time) (int, error) {
	published := 0
	for minute := from.Truncate(time.Minute); !minute.After(to); minute = minute.Add(time.Minute) {
		n, err := c.CollectMinute(ctx, minute)
		published += n
		if err != nil {
			return published, err
		}
	}
	return published, nil
}

// Run polls the just-completed minute on every interval tick until the
// context is canceled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			minute := tick.Truncate(time.Minute).Add(-c.interval)
			n, err := c.CollectMinute(ctx, minute)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Error("collect failed", "minute", minute, "error", err)
				continue
			}
			c.logger.Info("collected minute", "minute", minute, "bars", n)
		}
	}
}

func (c *Collector) publish(ctx context.Context, segment string, bars []truedata.SegmentBar) (int, error) {
	messages := make([]kafka.Message, 0, len(bars))
	perSymbol := make(map[string][]truedata.SegmentBar)
	for _, bar := range bars {
		symbol := bar.Symbol
		if symbol == "" {
			symbol = bar.SymbolID
		}
		if symbol == "" {
			c.logger.Warn("dropping bar without a symbol", "segment", segment)
			continue
		}
		msg, err := BarMessage{Symbol: symbol, Segment: segment, Bar: bar.Bar}.Encode()
		if err != nil {
			c.logger.Warn("dropping unencodable bar", "symbol", symbol, "error", err)
			continue
		}
		messages = append(messages, msg)
		perSymbol[symbol] = append(perSymbol[symbol], bar)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	if c.publisher != nil {
		if err := c.publisher.WriteMessages(ctx, messages...); err != nil {
			return 0, err
		}
	}

	if c.barCache != nil {
		for symbol, symbolBars := range perSymbol {
			plain := make([]model.Bar, 0, len(symbolBars))
			for _, bar := range symbolBars {
				plain = append(plain, bar.Bar)
			}
			if err := c.barCache.PutBars(ctx, symbol, plain); err != nil {
				c.logger.Warn("cache write failed", "symbol", symbol, "error", err)
			}
		}
	}
	return len(messages), nil
}
