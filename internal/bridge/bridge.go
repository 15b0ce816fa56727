// Package bridge implements the driver-agnostic connection, cursor, and
// transaction handles over sqlx. Statements are written with ? placeholders
// and rebound to the wrapped driver's placeholder style before execution;
// nothing else about SQL, parameters, or results is transformed, and driver
// errors pass through unwrapped.
package bridge

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// Bridge wraps an open sqlx handle as a types.Conn. Bindings construct one
// via New after opening their driver.
type Bridge struct {
	mu     sync.RWMutex
	closed bool
	driver string
	db     *sqlx.DB
}

// New wraps an open database handle. The driver name is the one the handle
// was opened with; sqlx uses it to pick the placeholder style for Rebind.
func New(driver string, db *sqlx.DB) *Bridge {
	return &Bridge{driver: driver, db: db}
}

// Driver returns the name of the wrapped driver.
func (b *Bridge) Driver() string {
	return b.driver
}

// Cursor returns a new cursor over the connection.
// Returns ErrDetached after Close.
func (b *Bridge) Cursor() (types.Cursor, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, types.ErrDetached
	}
	return &cursor{bridge: b, rowCount: -1}, nil
}

// Begin starts a transaction on the wrapped driver.
func (b *Bridge) Begin(ctx context.Context) (types.Tx, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, types.ErrDetached
	}
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &transaction{bridge: b, tx: tx}, nil
}

// Rebind translates ? placeholders into the wrapped driver's style. For
// question-mark drivers such as SQLite this is the identity.
func (b *Bridge) Rebind(query string) string {
	return b.db.Rebind(query)
}

// Close releases the underlying handle. Idempotent: closing a closed bridge
// succeeds. After Close all other operations return ErrDetached.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}
