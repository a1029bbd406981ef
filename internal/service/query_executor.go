package service

import (
	"context"

	"github.com/qodeinvest/qode-engine/internal/model"
)

// QueryExecOptions contains options for query execution
type QueryExecOptions struct {
	MaxRows int `json:"maxRows"`
}

// AdapterFactoryParams bundles the information required to construct a connection adapter instance.
type AdapterFactoryParams struct {
	ResourceName string
	Resource     *model.Resource
	BaseDir      string
}

// ConnectionAdapterFactory builds a new adapter instance for a resource.
type ConnectionAdapterFactory func(params AdapterFactoryParams) (ConnectionAdapter, error)

// Introspector provides methods for retrieving warehouse metadata.
type Introspector interface {
	// GetRelations returns tables and views within a schema.
	GetRelations(ctx context.Context, schema string) ([]model.Relation, error)

	// GetColumns returns columns for a relation within a schema.
	GetColumns(ctx context.Context, schema, relation string) ([]model.Column, error)

	// GetTableStats returns row count, time extent and inferred bar interval
	// for a relation within a schema.
	GetTableStats(ctx context.Context, schema, relation string) (*model.TableStats, error)
}

// ConnectionAdapter represents an engine-specific implementation capable of metadata discovery and query execution.
type ConnectionAdapter interface {
	// Connect establishes any underlying resources (e.g. database handles).
	Connect(ctx context.Context) error
	// Close releases resources held by the adapter.
	Close() error
	// Ping checks whether the connection remains healthy.
	Ping(ctx context.Context) error
	// ExecuteQuery runs a query and returns the result.
	ExecuteQuery(ctx context.Context, query string, params interface{}, options *QueryExecOptions) (*QueryResult, error)

	Introspector
}
