package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/truedata"
)

type fakeSource struct {
	bars    map[string][]truedata.SegmentBar
	failOn  string
	fetches []string
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) AllBars(ctx context.Context, segment string, minute time.Time) ([]truedata.SegmentBar, error) {
	f.fetches = append(f.fetches, segment)
	if segment == f.failOn {
		return nil, fmt.Errorf("segment down")
	}
	return f.bars[segment], nil
}

type fakePublisher struct {
	messages []kafka.Message
	err      error
}

func (f *fakePublisher) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

type fakeBarCache struct {
	puts map[string][]model.Bar
	err  error
}

func (f *fakeBarCache) PutBars(ctx context.Context, symbol string, bars []model.Bar) error {
	if f.err != nil {
		return f.err
	}
	if f.puts == nil {
		f.puts = make(map[string][]model.Bar)
	}
	f.puts[symbol] = append(f.puts[symbol], bars...)
	return nil
}

func (f *fakeBarCache) BarAt(ctx context.Context, symbol string, ts time.Time) (*model.Bar, bool, error) {
	return nil, false, nil
}

func (f *fakeBarCache) LatestBar(ctx context.Context, symbol string) (*model.Bar, bool, error) {
	return nil, false, nil
}

func (f *fakeBarCache) TickAt(ctx context.Context, ts time.Time) (map[string]model.Bar, error) {
	return nil, nil
}

func (f *fakeBarCache) Instruments(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeBarCache) Close() error { return nil }

func segmentBar(symbol string, minute time.Time, close float64) truedata.SegmentBar {
	return truedata.SegmentBar{
		Symbol: symbol,
		Bar:    model.Bar{Timestamp: minute, Close: close},
	}
}

func TestCollectMinutePublishesAndCaches(t *testing.T) {
	minute := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	source := &fakeSource{bars: map[string][]truedata.SegmentBar{
		"fo":  {segmentBar("NSE_NIFTY_20240125_21000_CE", minute, 106), segmentBar("NSE_NIFTY_20240125_21000_PE", minute, 88)},
		"ind": {segmentBar("NSE_NIFTY50", minute, 21505)},
	}}
	publisher := &fakePublisher{}
	barCache := &fakeBarCache{}

	collector := NewCollector(source, publisher, barCache, CollectorConfig{Segments: []string{"fo", "ind"}}, nil)
	n, err := collector.CollectMinute(context.Background(), minute)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 published bars, got %d", n)
	}
	if len(publisher.messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(publisher.messages))
	}
	if got := len(barCache.puts); got != 3 {
		t.Fatalf("expected 3 cached symbols, got %d", got)
	}
	if bars := barCache.puts["NSE_NIFTY50"]; len(bars) != 1 || bars[0].Close != 21505 {
		t.Fatalf("unexpected cached bars for index: %+v", bars)
	}
}

func TestCollectMinuteContinuesPastSegmentFailure(t *testing.T) {
	minute := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	source := &fakeSource{
		failOn: "fo",
		bars: map[string][]truedata.SegmentBar{
			"ind": {segmentBar("NSE_NIFTY50", minute, 21505)},
		},
	}
	publisher := &fakePublisher{}

	collector := NewCollector(source, publisher, nil, CollectorConfig{Segments: []string{"fo", "ind"}}, nil)
	n, err := collector.CollectMinute(context.Background(), minute)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the healthy segment to publish, got %d", n)
	}
	if len(source.fetches) != 2 {
		t.Fatalf("expected both segments fetched, got %v", source.fetches)
	}
}

func TestCollectMinutePublishFailureIsFatal(t *testing.T) {
	minute := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	source := &fakeSource{bars: map[string][]truedata.SegmentBar{
		"ind": {segmentBar("NSE_NIFTY50", minute, 21505)},
	}}
	publisher := &fakePublisher{err: fmt.Errorf("broker gone")}

	collector := NewCollector(source, publisher, nil, CollectorConfig{Segments: []string{"ind"}}, nil)
	if _, err := collector.CollectMinute(context.Background(), minute); err == nil {
		t.Fatal("expected publish failure to surface")
	}
}

func TestCollectRangeWalksInclusiveMinutes(t *testing.T) {
	from := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	to := from.Add(2 * time.Minute)
	source := &fakeSource{bars: map[string][]truedata.SegmentBar{}}
	collector := NewCollector(source, &fakePublisher{}, nil, CollectorConfig{Segments: []string{"ind"}}, nil)

	if _, err := collector.CollectRange(context.Background(), from, to); err != nil {
		t.Fatalf("collect range: %v", err)
	}
	if len(source.fetches) != 3 {
		t.Fatalf("expected 3 minutes fetched, got %d", len(source.fetches))
	}
}

func TestCollectMinuteFallsBackToSymbolID(t *testing.T) {
	minute := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	source := &fakeSource{bars: map[string][]truedata.SegmentBar{
		"fo": {{SymbolID: "800000123", Bar: model.Bar{Timestamp: minute, Close: 10}}},
	}}
	publisher := &fakePublisher{}

	collector := NewCollector(source, publisher, nil, CollectorConfig{Segments: []string{"fo"}}, nil)
	n, err := collector.CollectMinute(context.Background(), minute)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 bar, got %d", n)
	}
	if string(publisher.messages[0].Key) != "800000123" {
		t.Fatalf("expected symbol id key, got %q", publisher.messages[0].Key)
	}
}
