package feed

import (
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/qodeinvest/qode-engine/internal/model"
)

// BarMessage is the wire form of one instrument bar on the bar topic.
type BarMessage struct {
	Symbol  string    `json:"symbol"`
	Segment string    `json:"segment"`
	Table   string    `json:"table,omitempty"`
	Bar     model.Bar `json:"bar"`
}

// Encode renders the message for the bar topic, keyed by symbol.
func (m BarMessage) Encode() (kafka.Message, error) {
	if m.Symbol == "" {
		return kafka.Message{}, fmt.Errorf("bar message requires a symbol")
	}
	value, err := json.Marshal(m)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal bar message: %w", err)
	}
	return kafka.Message{Key: []byte(m.Symbol), Value: value}, nil
}

// DecodeBarMessage parses a consumed kafka message back into a BarMessage.
func DecodeBarMessage(msg kafka.Message) (BarMessage, error) {
	var out BarMessage
	if err := json.Unmarshal(msg.Value, &out); err != nil {
		return BarMessage{}, fmt.Errorf("unmarshal bar message: %w", err)
	}
	if out.Symbol == "" {
		return BarMessage{}, fmt.Errorf("bar message is missing a symbol")
	}
	return out, nil
}
