package feed

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/service"
)

type fakeExecutor struct {
	queries []string
	params  [][]interface{}
	failOn  string
}

func (f *fakeExecutor) ExecuteQuery(ctx context.Context, query string, params interface{}, options *service.QueryExecOptions) (*service.QueryResult, error) {
	f.queries = append(f.queries, query)
	if list, ok := params.([]interface{}); ok {
		f.params = append(f.params, list)
	}
	if f.failOn != "" && strings.Contains(query, f.failOn) {
		return nil, fmt.Errorf("forced failure")
	}
	return &service.QueryResult{}, nil
}

func encodedBar(t *testing.T, msg BarMessage) kafka.Message {
	t.Helper()
	encoded, err := msg.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return encoded
}

func TestHandleCreatesTableInsertsAndCaches(t *testing.T) {
	exec := &fakeExecutor{}
	barCache := &fakeBarCache{}
	worker := NewWorker(exec, barCache, WorkerConfig{}, nil)

	ts := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	msg := encodedBar(t, BarMessage{
		Symbol:  "NSE_NIFTY_20240125_21000_CE",
		Segment: "fo",
		Bar:     model.Bar{Timestamp: ts, Open: 105.5, Close: 106, Volume: 1500, OpenInterest: 42000},
	})

	if err := worker.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	joined := strings.Join(exec.queries, "\n")
	for _, want := range []string{
		"CREATE SCHEMA IF NOT EXISTS market_data",
		"CREATE TABLE IF NOT EXISTS market_data.NSE_Options_NIFTY_20240125_21000_call",
		"INSERT INTO market_data.NSE_Options_NIFTY_20240125_21000_call (timestamp, o, h, l, c, v, oi)",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in queries:\n%s", want, joined)
		}
	}
	if len(exec.params) != 1 || len(exec.params[0]) != 7 {
		t.Fatalf("expected one 7-value insert, got %+v", exec.params)
	}
	if got := barCache.puts["NSE_NIFTY_20240125_21000_CE"]; len(got) != 1 || got[0].Close != 106 {
		t.Fatalf("unexpected cache state: %+v", barCache.puts)
	}
}

func TestHandleEnsuresTableOnlyOnce(t *testing.T) {
	exec := &fakeExecutor{}
	worker := NewWorker(exec, nil, WorkerConfig{}, nil)

	ts := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		msg := encodedBar(t, BarMessage{Symbol: "NSE_NIFTY50", Segment: "ind", Bar: model.Bar{Timestamp: ts.Add(time.Duration(i) * time.Minute)}})
		if err := worker.Handle(context.Background(), msg); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}

	creates := 0
	for _, q := range exec.queries {
		if strings.HasPrefix(q, "CREATE TABLE") {
			creates++
		}
	}
	if creates != 1 {
		t.Fatalf("expected a single create, got %d", creates)
	}
}

func TestHandleHonorsExplicitTable(t *testing.T) {
	exec := &fakeExecutor{}
	worker := NewWorker(exec, nil, WorkerConfig{Schema: "staging"}, nil)

	msg := encodedBar(t, BarMessage{
		Symbol: "NSE_NIFTY50",
		Table:  "NSE_Index_NIFTY50_raw",
		Bar:    model.Bar{Timestamp: time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)},
	})
	if err := worker.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	joined := strings.Join(exec.queries, "\n")
	if !strings.Contains(joined, "staging.NSE_Index_NIFTY50_raw") {
		t.Fatalf("expected explicit table in queries:\n%s", joined)
	}
}

func TestHandleRejectsMalformedMessage(t *testing.T) {
	worker := NewWorker(&fakeExecutor{}, nil, WorkerConfig{}, nil)
	if err := worker.Handle(context.Background(), kafka.Message{Value: []byte("oops")}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHandleSurfacesInsertFailure(t *testing.T) {
	exec := &fakeExecutor{failOn: "INSERT INTO"}
	worker := NewWorker(exec, nil, WorkerConfig{}, nil)

	msg := encodedBar(t, BarMessage{Symbol: "NSE_NIFTY50", Segment: "ind", Bar: model.Bar{Timestamp: time.Now()}})
	if err := worker.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected insert failure to surface")
	}
}

type scriptedReader struct {
	messages []kafka.Message
	idx      int
}

func (s *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if s.idx >= len(s.messages) {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := s.messages[s.idx]
	s.idx++
	return msg, nil
}

func TestConsumeStopsOnContextCancel(t *testing.T) {
	exec := &fakeExecutor{}
	worker := NewWorker(exec, nil, WorkerConfig{}, nil)

	msg := encodedBar(t, BarMessage{Symbol: "NSE_NIFTY50", Segment: "ind", Bar: model.Bar{Timestamp: time.Now()}})
	reader := &scriptedReader{messages: []kafka.Message{msg}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Consume(ctx, reader) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consume did not stop after cancel")
	}

	if len(exec.params) != 1 {
		t.Fatalf("expected the scripted message to be inserted, got %+v", exec.params)
	}
}
