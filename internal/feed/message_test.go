package feed

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/qodeinvest/qode-engine/internal/model"
)

func TestBarMessageEncodeDecode(t *testing.T) {
	in := BarMessage{
		Symbol:  "NSE_NIFTY_20240125_21000_CE",
		Segment: "fo",
		Bar: model.Bar{
			Timestamp: time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC),
			Open:      105.5, High: 107, Low: 104.25, Close: 106,
			Volume: 1500, OpenInterest: 42000,
		},
	}

	msg, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(msg.Key) != in.Symbol {
		t.Fatalf("expected key %q, got %q", in.Symbol, msg.Key)
	}

	out, err := DecodeBarMessage(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Symbol != in.Symbol || out.Segment != in.Segment {
		t.Fatalf("identity lost: %+v", out)
	}
	if !out.Bar.Timestamp.Equal(in.Bar.Timestamp) || out.Bar.Close != in.Bar.Close {
		t.Fatalf("bar lost: %+v", out.Bar)
	}
}

func TestBarMessageEncodeRequiresSymbol(t *testing.T) {
	if _, err := (BarMessage{Segment: "fo"}).Encode(); err == nil {
		t.Fatal("expected an error for a message without a symbol")
	}
}

func TestDecodeBarMessageRejectsGarbage(t *testing.T) {
	if _, err := DecodeBarMessage(kafka.Message{Value: []byte("not json")}); err == nil {
		t.Fatal("expected an error for malformed payload")
	}
	if _, err := DecodeBarMessage(kafka.Message{Value: []byte(`{"segment":"fo"}`)}); err == nil {
		t.Fatal("expected an error for a payload without a symbol")
	}
}
