package types

import (
	"context"
	"errors"
)

// Conn is a live, driver-agnostic database connection. Implementations
// forward every call to the wrapped driver without transforming SQL,
// parameters, or results; driver errors propagate unchanged. A Conn is not
// safe for concurrent use by multiple goroutines.
type Conn interface {
	// Cursor returns a new Cursor for issuing statements.
	// Returns ErrDetached after Close.
	Cursor() (Cursor, error)

	// Begin starts a transaction. Returns ErrDetached after Close.
	Begin(ctx context.Context) (Tx, error)

	// Rebind translates a query written with ? placeholders into the
	// placeholder style of the wrapped driver.
	Rebind(query string) string

	// Close releases the underlying connection. Idempotent: multiple calls
	// succeed. After Close, all other operations return ErrDetached.
	Close() error
}

// Cursor issues statements and fetches results. Row values are returned as
// []any in column order; callers convert to concrete types themselves.
type Cursor interface {
	// Execute runs a statement with the given parameters. Queries leave
	// rows pending for FetchOne/FetchAll; other statements record a row
	// count retrievable via RowCount.
	Execute(ctx context.Context, query string, args ...any) error

	// FetchOne returns the next pending row, or ErrNoRows when the result
	// set is exhausted or the last Execute produced no rows.
	FetchOne() ([]any, error)

	// FetchAll returns all remaining pending rows. An exhausted result set
	// yields an empty slice, not an error.
	FetchAll() ([][]any, error)

	// RowCount returns the rows affected by the last non-query Execute,
	// or -1 when unknown.
	RowCount() int64

	// Close discards any pending rows. Idempotent.
	Close() error
}

// Tx is an open transaction. Statements issued through it are committed or
// rolled back as a unit.
type Tx interface {
	// Execute runs a statement inside the transaction.
	Execute(ctx context.Context, query string, args ...any) error

	// Commit makes the transaction's effects durable.
	Commit() error

	// Rollback discards the transaction's effects. Safe to call after a
	// failed Commit.
	Rollback() error
}

// Connection lifecycle errors.
var (
	ErrDetached     = errors.New("connection is closed")
	ErrCursorClosed = errors.New("cursor is closed")
	ErrNoRows       = errors.New("no rows in result set")
)
