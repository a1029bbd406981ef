package duckdb

import (
	"context"
	"fmt"

	"github.com/qodeinvest/qode-engine/internal/infrastructure/database/dblogged"
	"github.com/qodeinvest/qode-engine/internal/pkg/stringutil"
)

// Connect establishes the database connection
func (a *Adapter) Connect(ctx context.Context) error {
	db, err := dblogged.Open(ctx, "duckdb", a.dsn())
	if err != nil {
		return fmt.Errorf("failed to open duckdb database: %w", err)
	}

	// The driver connects lazily; ping so open failures surface here,
	// not on the first query.
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to open duckdb database: %w", err)
	}

	a.db = db

	if err := a.applyMemoryLimit(ctx); err != nil {
		_ = db.Close()
		a.db = nil
		return err
	}
	return nil
}

// Close releases database resources
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ping checks database connectivity
func (a *Adapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("database not connected")
	}
	return a.db.PingContext(ctx)
}

func (a *Adapter) dsn() string {
	if a.config != nil && a.config.ReadOnly {
		return a.dbPath + "?access_mode=read_only"
	}
	return a.dbPath
}

func (a *Adapter) applyMemoryLimit(ctx context.Context) error {
	if a.config == nil || a.config.MemoryLimit == nil || *a.config.MemoryLimit == "" {
		return nil
	}
	pragma := fmt.Sprintf("PRAGMA memory_limit=%s", stringutil.QuoteLiteral(*a.config.MemoryLimit))
	if _, err := a.db.ExecContext(ctx, pragma); err != nil {
		return fmt.Errorf("failed to set memory limit: %w", err)
	}
	return nil
}
