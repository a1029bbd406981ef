package model

import "time"

// Relation describes a table or view.
type Relation struct {
	Name        string
	Type        string  // "table" or "view"
	Schema      *string // nil if the engine has no schemas
	RowEstimate *int64  // engine estimate, if available
	ColumnCount *int64
}

// Column describes a table/view column.
type Column struct {
	Name         string
	Ordinal      int
	DataType     string
	NotNull      bool
	DefaultValue *string
}

// TableStats summarizes a bar table: its extent in time and the bar
// interval inferred from the average gap between consecutive timestamps.
type TableStats struct {
	Relation     string
	RowCount     int64
	MinTimestamp *time.Time
	MaxTimestamp *time.Time
	Interval     string // "1min", "5min", "15min", "1hour", "1day" or "unknown"
}

// barIntervals maps an average timestamp gap to its display name.
var barIntervals = []struct {
	Seconds  float64
	Interval string
}{
	{60, "1min"},
	{300, "5min"},
	{900, "15min"},
	{3600, "1hour"},
	{86400, "1day"},
}

// InferInterval names the bar interval for an average gap in seconds.
// Gaps within 10% of a known interval match it; anything else is unknown.
func InferInterval(avgGapSeconds float64) string {
	for _, candidate := range barIntervals {
		if avgGapSeconds >= candidate.Seconds*0.9 && avgGapSeconds <= candidate.Seconds*1.1 {
			return candidate.Interval
		}
	}
	return "unknown"
}
