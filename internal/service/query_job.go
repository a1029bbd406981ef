package service

import (
	"context"
	"fmt"
	"time"
)

// JobStatus represents the status of a query job
type JobStatus string

const (
	JobStatusRunning  JobStatus = "running"
	JobStatusSuccess  JobStatus = "success"
	JobStatusFailed   JobStatus = "failed"
	JobStatusCanceled JobStatus = "canceled"
)

// QueryJob represents an asynchronous query execution job
type QueryJob struct {
	ID           string
	ResourceName string
	Query        string
	User         string
	Params       any // Can be map[string]interface{} or []interface{}
	Options      *QueryExecOptions
	Status       JobStatus
	CreatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
	DurationMs   int64
	Error        string
	Cancel       context.CancelFunc
}

// QueryColumn represents column metadata for query results
type QueryColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult represents the result of a query execution
type QueryResult struct {
	JobID        string
	ResourceName string
	Query        string
	Status       JobStatus
	Columns      []QueryColumn
	Rows         [][]any
	RowCount     int
	Truncated    bool
	RowsAffected *int64
	Error        string
	FinishedAt   time.Time
	DurationMs   int64
}

// HasError reports whether the query itself failed. Callers must check it
// before touching Columns or Rows.
func (r *QueryResult) HasError() bool {
	return r != nil && r.Error != ""
}

// FormatValue renders a single result cell as a display string.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
