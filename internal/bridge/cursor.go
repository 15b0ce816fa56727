package bridge

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// cursor implements types.Cursor. After a row-returning Execute the rows
// stay pending for FetchOne/FetchAll; after any other Execute the affected
// row count is recorded instead.
type cursor struct {
	bridge   *Bridge
	rows     *sqlx.Rows
	rowCount int64
	closed   bool
}

// Execute runs a statement with the given parameters. A previous pending
// result set is discarded first.
func (c *cursor) Execute(ctx context.Context, query string, args ...any) error {
	if c.closed {
		return types.ErrCursorClosed
	}
	c.bridge.mu.RLock()
	defer c.bridge.mu.RUnlock()
	if c.bridge.closed {
		return types.ErrDetached
	}

	if c.rows != nil {
		c.rows.Close()
		c.rows = nil
	}
	c.rowCount = -1

	bound := c.bridge.db.Rebind(query)
	if returnsRows(query) {
		rows, err := c.bridge.db.QueryxContext(ctx, bound, args...)
		if err != nil {
			return err
		}
		c.rows = rows
		return nil
	}

	res, err := c.bridge.db.ExecContext(ctx, bound, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil {
		c.rowCount = n
	}
	return nil
}

// FetchOne returns the next pending row, or ErrNoRows when none remain.
func (c *cursor) FetchOne() ([]any, error) {
	if c.closed {
		return nil, types.ErrCursorClosed
	}
	if c.rows == nil {
		return nil, types.ErrNoRows
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, err
		}
		return nil, types.ErrNoRows
	}
	return c.rows.SliceScan()
}

// FetchAll returns every remaining pending row.
func (c *cursor) FetchAll() ([][]any, error) {
	if c.closed {
		return nil, types.ErrCursorClosed
	}
	if c.rows == nil {
		return nil, types.ErrNoRows
	}
	var out [][]any
	for c.rows.Next() {
		row, err := c.rows.SliceScan()
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := c.rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = [][]any{}
	}
	return out, nil
}

// RowCount returns the rows affected by the last non-query Execute, or -1.
func (c *cursor) RowCount() int64 {
	return c.rowCount
}

// Close discards pending rows. Idempotent.
func (c *cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.rows != nil {
		err := c.rows.Close()
		c.rows = nil
		return err
	}
	return nil
}

// rowKeywords are the leading keywords of statements that produce a result
// set. Everything else goes through Exec so the affected row count is kept.
var rowKeywords = []string{"SELECT", "WITH", "VALUES", "PRAGMA", "EXPLAIN"}

// returnsRows reports whether the statement should be run as a query.
// Statements with a RETURNING clause also produce rows.
func returnsRows(query string) bool {
	upper := strings.ToUpper(strings.TrimSpace(query))
	for _, kw := range rowKeywords {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return strings.Contains(upper, " RETURNING ")
}
