package bridge

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// transaction implements types.Tx over an sqlx transaction handle.
type transaction struct {
	bridge *Bridge
	tx     *sqlx.Tx
}

// Execute runs a statement inside the transaction, rebinding placeholders
// the same way the connection does.
func (t *transaction) Execute(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
	return err
}

// Commit makes the transaction durable.
func (t *transaction) Commit() error {
	return t.tx.Commit()
}

// Rollback discards the transaction. The underlying driver reports an error
// when the transaction is already finished; callers using a deferred
// Rollback after Commit can ignore it the way database/sql users do.
func (t *transaction) Rollback() error {
	return t.tx.Rollback()
}
