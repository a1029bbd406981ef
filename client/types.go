package qodesdk

import "time"

// ErrorPayload is the JSON body of every non-2xx API response.
type ErrorPayload struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details *map[string]any `json:"details,omitempty"`
}

// Resource describes one warehouse in the server's catalog.
type Resource struct {
	Name        string  `json:"name"`
	Engine      string  `json:"engine"`
	Path        string  `json:"path"`
	ReadOnly    bool    `json:"readOnly"`
	Schema      string  `json:"schema,omitempty"`
	MemoryLimit *string `json:"memoryLimit,omitempty"`
}

// ResourcesResult lists the catalog.
type ResourcesResult struct {
	Resources []Resource `json:"resources"`
}

// ConnectResult reports the outcome of a connect attempt.
// Result: success | fail | connecting.
type ConnectResult struct {
	Result      string  `json:"result"`
	UserMessage *string `json:"userMessage,omitempty"`
}

// Relation is one table or view of a resource.
type Relation struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Schema      *string `json:"schema,omitempty"`
	RowEstimate *int64  `json:"rowEstimate,omitempty"`
	ColumnCount *int64  `json:"columnCount,omitempty"`
}

// RelationsResult lists the relations of a resource.
type RelationsResult struct {
	Relations []Relation `json:"relations"`
}

// Column is one relation column.
type Column struct {
	Name         string  `json:"name"`
	Ordinal      int     `json:"ordinal"`
	DataType     string  `json:"dataType"`
	NotNull      bool    `json:"notNull"`
	DefaultValue *string `json:"defaultValue,omitempty"`
}

// ColumnsResult lists the columns of a relation.
type ColumnsResult struct {
	Columns []Column `json:"columns"`
}

// TableStats carries row counts and the inferred bar interval.
type TableStats struct {
	Relation     string     `json:"relation"`
	RowCount     int64      `json:"rowCount"`
	MinTimestamp *time.Time `json:"minTimestamp,omitempty"`
	MaxTimestamp *time.Time `json:"maxTimestamp,omitempty"`
	Interval     string     `json:"interval,omitempty"`
}

// QueryExecOptions tunes one submitted query.
type QueryExecOptions struct {
	MaxRows *int `json:"maxRows,omitempty"`
}

// QueryExecResult acknowledges an accepted job.
type QueryExecResult struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// QueryColumn is column metadata in a result page.
type QueryColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResultPage is a page of a finished query's result. Status and Error
// reflect the query outcome; check them before reading rows.
type QueryResultPage struct {
	Status       string        `json:"status"`
	Columns      []QueryColumn `json:"columns"`
	Rows         [][]any       `json:"rows"`
	RowCount     int           `json:"rowCount"`
	Truncated    bool          `json:"truncated"`
	RowsAffected *int64        `json:"rowsAffected,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// HasError reports whether the query itself failed.
func (p *QueryResultPage) HasError() bool {
	return p != nil && p.Error != ""
}

// TranslateResult returns the generated statement.
type TranslateResult struct {
	SQL string `json:"sql"`
}

// HistoryEntry is one saved query in a listing.
type HistoryEntry struct {
	ID         string `json:"id"`
	Folder     string `json:"folder"`
	Name       string `json:"name"`
	Input      string `json:"input,omitempty"`
	HasResults bool   `json:"hasResults"`
	CreatedAt  string `json:"createdAt"`
}

// HistoryResult lists saved queries, newest first.
type HistoryResult struct {
	Entries []HistoryEntry `json:"entries"`
}

// SaveHistoryResult names the created history folder.
type SaveHistoryResult struct {
	Folder string `json:"folder"`
}

// Bar is one OHLCV bar with open interest.
type Bar struct {
	Timestamp    time.Time `json:"timestamp"`
	Open         float64   `json:"o"`
	High         float64   `json:"h"`
	Low          float64   `json:"l"`
	Close        float64   `json:"c"`
	Volume       float64   `json:"v"`
	OpenInterest float64   `json:"oi"`
}

// TickResult returns one cached bar for an instrument.
type TickResult struct {
	Symbol string `json:"symbol"`
	Bar    Bar    `json:"bar"`
}

// InstrumentsResult lists the symbols present in the hot cache.
type InstrumentsResult struct {
	Instruments []string `json:"instruments"`
}

// LoginResult returns the issued bearer token.
type LoginResult struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	ExpiresAt time.Time `json:"expiresAt"`
}
