package events

// QueryJobCompletedEvent is the SSE event name emitted when a query job
// finishes, whatever its final status.
const QueryJobCompletedEvent = "query.job.completed"

// QueryJobCompletedPayload carries the terminal state of a query job.
type QueryJobCompletedPayload struct {
	JobID        string `json:"jobId"`
	ResourceName string `json:"resourceName"`
	Status       string `json:"status"`
	FinishedAt   string `json:"finishedAt"`
	DurationMs   int64  `json:"durationMs"`
	Error        string `json:"error,omitempty"`
	Stored       bool   `json:"stored,omitempty"`
}
