package model

import "time"

// Bar is one OHLCV bar of an instrument. JSON keys match the column
// names of the warehouse tables and the Redis hash payloads.
type Bar struct {
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	Open         float64   `json:"o" db:"o"`
	High         float64   `json:"h" db:"h"`
	Low          float64   `json:"l" db:"l"`
	Close        float64   `json:"c" db:"c"`
	Volume       float64   `json:"v" db:"v"`
	OpenInterest float64   `json:"oi" db:"oi"`
}

// BarColumns is the column order of every bar table.
var BarColumns = []string{"timestamp", "o", "h", "l", "c", "v", "oi"}
