// Command connect opens the warehouse file, acquires a session against it
// and releases both in reverse order. It prints nothing on success; any
// failure becomes a single diagnostic line on stderr and exit code 1.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/marcboeker/go-duckdb"
)

const warehousePath = "my_duck_database.db"

// session is a connection-scoped handle. It must be released before the
// database that produced it.
type session interface {
	Close() error
}

// warehouse owns the on-disk database file for the life of the process.
type warehouse interface {
	Acquire(ctx context.Context) (session, error)
	Close() error
}

// opener produces the database handle; tests swap in a double.
type opener func(ctx context.Context, path string) (warehouse, error)

func main() {
	os.Exit(run(context.Background(), openWarehouse, os.Stderr))
}

func run(ctx context.Context, open opener, stderr io.Writer) int {
	db, err := open(ctx, warehousePath)
	if err != nil {
		fmt.Fprintf(stderr, "Exception: %v\n", err)
		return 1
	}

	conn, err := db.Acquire(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Exception: %v\n", err)
		_ = db.Close()
		return 1
	}

	// Release in reverse acquisition order: session first, then database.
	if err := conn.Close(); err != nil {
		fmt.Fprintf(stderr, "Exception: %v\n", err)
		_ = db.Close()
		return 1
	}
	if err := db.Close(); err != nil {
		fmt.Fprintf(stderr, "Exception: %v\n", err)
		return 1
	}
	return 0
}

type sqlWarehouse struct {
	db *sqlx.DB
}

func openWarehouse(ctx context.Context, path string) (warehouse, error) {
	db, err := sqlx.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	// The driver opens lazily; ping so open failures surface here.
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqlWarehouse{db: db}, nil
}

func (w *sqlWarehouse) Acquire(ctx context.Context) (session, error) {
	conn, err := w.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (w *sqlWarehouse) Close() error {
	return w.db.Close()
}
