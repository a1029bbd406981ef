package httpapi

import (
	"encoding/json"
	"time"

	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/service"
)

// ErrorPayload is the JSON body of every non-2xx response.
type ErrorPayload struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details *map[string]any `json:"details,omitempty"`
}

// ResourceSummary describes one catalog entry.
type ResourceSummary struct {
	Name        string  `json:"name"`
	Engine      string  `json:"engine"`
	Path        string  `json:"path"`
	ReadOnly    bool    `json:"readOnly"`
	Schema      string  `json:"schema,omitempty"`
	MemoryLimit *string `json:"memoryLimit,omitempty"`
}

// ResourcesResponse lists the catalog.
type ResourcesResponse struct {
	Resources []ResourceSummary `json:"resources"`
}

func resourceSummary(r model.Resource) ResourceSummary {
	return ResourceSummary{
		Name:        r.Name,
		Engine:      r.Engine,
		Path:        r.Path,
		ReadOnly:    r.ReadOnly,
		Schema:      r.Schema,
		MemoryLimit: r.MemoryLimit,
	}
}

// ConnectionRequest asks the server to open a session for a resource.
type ConnectionRequest struct {
	ResourceName string `json:"resourceName"`
}

// ConnectionResult reports the outcome of a connect attempt.
type ConnectionResult struct {
	Result      string  `json:"result"`
	UserMessage *string `json:"userMessage,omitempty"`
}

// RelationSummary is the API form of one table or view.
type RelationSummary struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Schema      *string `json:"schema,omitempty"`
	RowEstimate *int64  `json:"rowEstimate,omitempty"`
	ColumnCount *int64  `json:"columnCount,omitempty"`
}

// RelationsResponse lists the relations of a resource.
type RelationsResponse struct {
	Relations []RelationSummary `json:"relations"`
}

// ColumnSummary is the API form of one relation column.
type ColumnSummary struct {
	Name         string  `json:"name"`
	Ordinal      int     `json:"ordinal"`
	DataType     string  `json:"dataType"`
	NotNull      bool    `json:"notNull"`
	DefaultValue *string `json:"defaultValue,omitempty"`
}

// ColumnsResponse lists the columns of a relation.
type ColumnsResponse struct {
	Columns []ColumnSummary `json:"columns"`
}

// TableStatsResponse carries row counts and the inferred bar interval.
type TableStatsResponse struct {
	Relation     string     `json:"relation"`
	RowCount     int64      `json:"rowCount"`
	MinTimestamp *time.Time `json:"minTimestamp,omitempty"`
	MaxTimestamp *time.Time `json:"maxTimestamp,omitempty"`
	Interval     string     `json:"interval,omitempty"`
}

// QueryExecOptionsPayload mirrors service.QueryExecOptions on the wire.
type QueryExecOptionsPayload struct {
	MaxRows *int `json:"maxRows,omitempty"`
}

// QueryExecRequest submits a query for asynchronous execution.
type QueryExecRequest struct {
	ResourceName string                   `json:"resourceName"`
	Query        string                   `json:"query"`
	Params       json.RawMessage          `json:"params,omitempty"`
	Options      *QueryExecOptionsPayload `json:"options,omitempty"`
}

// QueryExecResponse acknowledges an accepted job.
type QueryExecResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// QueryResultResponse is a page of a stored result. Status and error reflect
// the query outcome; a failed query still answers 200 here.
type QueryResultResponse struct {
	Status       string                `json:"status"`
	Columns      []service.QueryColumn `json:"columns"`
	Rows         [][]any               `json:"rows"`
	RowCount     int                   `json:"rowCount"`
	Truncated    bool                  `json:"truncated"`
	RowsAffected *int64                `json:"rowsAffected,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// TranslateRequest asks for a SQL rendition of a natural language question.
type TranslateRequest struct {
	ResourceName string `json:"resourceName"`
	Question     string `json:"question"`
}

// TranslateResponse returns the generated statement.
type TranslateResponse struct {
	SQL string `json:"sql"`
}

// SaveHistoryRequest archives a finished query under the caller's history.
type SaveHistoryRequest struct {
	JobID string `json:"jobId"`
	Name  string `json:"name,omitempty"`
	Input string `json:"input,omitempty"`
}

// SaveHistoryResponse names the created history folder.
type SaveHistoryResponse struct {
	Folder string `json:"folder"`
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

// HistoryResponse lists saved queries, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// HistorySQLResponse returns the SQL text of a saved query.
type HistorySQLResponse struct {
	SQL string `json:"sql"`
}

// TickResponse returns one cached bar for an instrument.
type TickResponse struct {
	Symbol string    `json:"symbol"`
	Bar    model.Bar `json:"bar"`
}

// InstrumentsResponse lists the symbols present in the hot cache.
type InstrumentsResponse struct {
	Instruments []string `json:"instruments"`
}

// LoginRequest carries user credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	ExpiresAt time.Time `json:"expiresAt"`
}
