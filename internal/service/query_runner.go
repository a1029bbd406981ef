package service

import (
	"context"
	"time"

	"github.com/qodeinvest/qode-engine/internal/model"
	"github.com/qodeinvest/qode-engine/internal/pkg/sqlutil"
)

// GuardMessage is the in-band error reported for blocked statements.
const GuardMessage = "only read-only queries are allowed: data modification statements are blocked"

// Execute runs one query through an adapter and folds execution failures
// into the result, so a bad statement never aborts the caller. Failures
// acquiring the session (connect, ping) stay ordinary errors upstream of
// this call.
func Execute(ctx context.Context, adapter ConnectionAdapter, query string, params interface{}, options *QueryExecOptions) *QueryResult {
	// Adapters rely on a positive row cap.
	if options == nil || options.MaxRows <= 0 {
		options = &QueryExecOptions{MaxRows: DefaultMaxRows}
	}
	start := time.Now()
	result, err := adapter.ExecuteQuery(ctx, query, params, options)
	finish := time.Now()
	if err != nil {
		return &QueryResult{
			Status:     JobStatusFailed,
			Error:      err.Error(),
			FinishedAt: finish,
			DurationMs: finish.Sub(start).Milliseconds(),
		}
	}
	result.FinishedAt = finish
	result.DurationMs = finish.Sub(start).Milliseconds()
	return result
}

// ExecuteGuarded applies the resource's read-only policy before executing.
// Blocked statements fail in-band without reaching the engine.
func ExecuteGuarded(ctx context.Context, adapter ConnectionAdapter, resource *model.Resource, query string, params interface{}, options *QueryExecOptions) *QueryResult {
	if resource != nil && resource.ReadOnly && !sqlutil.IsReadOnlyQuery(query) {
		now := time.Now()
		return &QueryResult{
			Status:     JobStatusFailed,
			Error:      GuardMessage,
			FinishedAt: now,
		}
	}
	return Execute(ctx, adapter, query, params, options)
}
