package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qodeinvest/qode-engine/internal/events"
	"github.com/qodeinvest/qode-engine/internal/querylog"
)

var (
	ErrNotFound    = errors.New("query result not found")
	ErrJobNotFound = errors.New("query job not found")
)

// QueryResultView represents a paginated view of query results. A failed
// query is a regular view whose Status is failed and whose Error holds the
// engine message; callers must check those before reading rows.
type QueryResultView struct {
	Status       JobStatus     `json:"status"`
	Columns      []QueryColumn `json:"columns"`
	Rows         [][]any       `json:"rows"`
	RowCount     int           `json:"rowCount"`
	Truncated    bool          `json:"truncated"`
	RowsAffected *int64        `json:"rowsAffected,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// QueryService manages query job execution
type QueryService struct {
	sessions    *ResourceSessionService
	eventHub    *events.Hub
	resultStore *ResultStore
	queryLog    *querylog.Logger
	mu          sync.RWMutex
	activeJobs  map[string]*QueryJob
	rootCtx     context.Context
}

// NewQueryService creates a new query service
func NewQueryService(sessions *ResourceSessionService, eventHub *events.Hub, queryLog *querylog.Logger, rootCtx context.Context) *QueryService {
	return &QueryService{
		sessions:    sessions,
		eventHub:    eventHub,
		resultStore: NewResultStore(),
		queryLog:    queryLog,
		activeJobs:  make(map[string]*QueryJob),
		rootCtx:     rootCtx,
	}
}

// Exec starts execution of a warehouse query asynchronously
func (qs *QueryService) Exec(resourceName, query, user string, params interface{}, options *QueryExecOptions) (*QueryJob, error) {
	// Set default options
	if options == nil {
		options = &QueryExecOptions{MaxRows: DefaultMaxRows}
	}
	if options.MaxRows <= 0 {
		options.MaxRows = DefaultMaxRows
	}
	if options.MaxRows > HardMaxRows {
		options.MaxRows = HardMaxRows
	}

	// Check if connection is available
	handle, ok := qs.sessions.GetConnection(resourceName)
	if !ok || handle == nil || handle.Adapter == nil {
		return nil, fmt.Errorf("%w: %s", ErrConnectionUnavailable, resourceName)
	}

	// Create job
	jobID := uuid.New().String()
	job := &QueryJob{
		ID:           jobID,
		ResourceName: resourceName,
		Query:        query,
		User:         user,
		Params:       params,
		Options:      options,
		Status:       JobStatusRunning,
		CreatedAt:    time.Now(),
	}

	// Create cancellable context for this job
	jobCtx, cancel := context.WithCancel(qs.rootCtx)
	job.Cancel = cancel

	// Store job
	qs.mu.Lock()
	qs.activeJobs[jobID] = job
	qs.mu.Unlock()

	// Start execution in goroutine
	go qs.runJob(jobCtx, job, handle)

	return job, nil
}

// GetActiveJob retrieves a job by ID
func (qs *QueryService) GetActiveJob(jobID string) (*QueryJob, bool) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()

	job, ok := qs.activeJobs[jobID]
	return job, ok
}

// GetResult retrieves the stored result of a finished job.
func (qs *QueryService) GetResult(jobID string) (*QueryResult, bool) {
	return qs.resultStore.Get(jobID)
}

// CancelJob cancels a running job by ID
func (qs *QueryService) CancelJob(jobID string) error {
	qs.mu.RLock()
	job, ok := qs.activeJobs[jobID]
	qs.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	job.Cancel()
	return nil
}

// BuildResultView builds a paginated view of a stored query result
func (qs *QueryService) BuildResultView(jobID string, limit, offset *int) (*QueryResultView, error) {
	result, exists := qs.resultStore.Get(jobID)
	if !exists {
		return nil, ErrNotFound
	}

	if offset != nil && *offset < 0 {
		return nil, fmt.Errorf("offset cannot be negative")
	}
	if limit != nil && *limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	// Apply defaults
	actualOffset := 0
	if offset != nil {
		actualOffset = *offset
	}
	actualLimit := result.RowCount
	if limit != nil {
		actualLimit = *limit
	}

	start := actualOffset
	end := actualOffset + actualLimit
	if start > result.RowCount {
		start = result.RowCount
	}
	if end > result.RowCount {
		end = result.RowCount
	}

	var paginatedRows [][]any
	if start < result.RowCount {
		paginatedRows = result.Rows[start:end]
	}

	view := &QueryResultView{
		Status:       result.Status,
		Columns:      result.Columns,
		Rows:         paginatedRows,
		RowCount:     result.RowCount,
		Truncated:    result.Truncated,
		RowsAffected: result.RowsAffected,
		Error:        result.Error,
	}

	return view, nil
}

// Stop cancels all running jobs
func (qs *QueryService) Stop() {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	for _, job := range qs.activeJobs {
		if job.Status == JobStatusRunning {
			job.Cancel()
			job.Status = JobStatusCanceled
			job.FinishedAt = &[]time.Time{time.Now()}[0]
			if job.StartedAt != nil {
				job.DurationMs = job.FinishedAt.Sub(*job.StartedAt).Milliseconds()
			}

			// Emit completion event for canceled job
			qs.emitJobCompletion(job)
		}
	}
}

// runJob executes a query job
func (qs *QueryService) runJob(ctx context.Context, job *QueryJob, handle *ResourceHandle) {
	startTime := time.Now()
	job.StartedAt = &startTime

	defer func() {
		finishTime := time.Now()
		job.FinishedAt = &finishTime
		if job.StartedAt != nil {
			job.DurationMs = finishTime.Sub(*job.StartedAt).Milliseconds()
		}

		// Remove from active jobs
		qs.mu.Lock()
		delete(qs.activeJobs, job.ID)
		qs.mu.Unlock()

		// Emit completion event
		qs.emitJobCompletion(job)
	}()

	result := ExecuteGuarded(ctx, handle.Adapter, handle.Resource, job.Query, job.Params, job.Options)
	result.JobID = job.ID
	result.ResourceName = job.ResourceName
	result.Query = job.Query

	if result.HasError() {
		job.Status = JobStatusFailed
		job.Error = result.Error
		if ctx.Err() != nil {
			job.Status = JobStatusCanceled
			result.Status = JobStatusCanceled
		}
	} else {
		job.Status = JobStatusSuccess
	}

	// Publish only the finished result; readers share the pointer.
	qs.resultStore.Add(result)
	qs.logQuery(ctx, job, result)
}

// logQuery appends the finished query to the per-day usage log
func (qs *QueryService) logQuery(ctx context.Context, job *QueryJob, result *QueryResult) {
	if qs.queryLog == nil {
		return
	}
	entry := querylog.Entry{
		Query:         job.Query,
		ExecutionTime: float64(result.DurationMs) / 1000.0,
		RowCount:      result.RowCount,
		UserID:        job.User,
	}
	if err := qs.queryLog.Append(entry); err != nil {
		slog.WarnContext(ctx, "failed to append query log", slog.String("jobId", job.ID), slog.Any("err", err))
	}
}

// emitJobCompletion emits a job completion event via SSE
func (qs *QueryService) emitJobCompletion(job *QueryJob) {
	if qs.eventHub == nil {
		return
	}

	payload := events.QueryJobCompletedPayload{
		JobID:        job.ID,
		ResourceName: job.ResourceName,
		Status:       string(job.Status),
		FinishedAt:   job.FinishedAt.Format(time.RFC3339),
		DurationMs:   job.DurationMs,
	}

	if job.Error != "" {
		payload.Error = job.Error
	}

	// Check if result is stored
	if _, stored := qs.resultStore.Get(job.ID); stored {
		payload.Stored = true
	}

	qs.eventHub.Publish(events.Event{
		Name:    events.QueryJobCompletedEvent,
		Payload: payload,
	})
}
