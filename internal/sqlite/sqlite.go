// Package sqlite provides the SQLite driver binding for sqlbridge, backed
// by the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/sqlbridge/internal/bridge"
	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// DriverName is the database/sql driver name registered by modernc.org/sqlite.
const DriverName = "sqlite"

// DatabaseFileName is the database file created inside DataDir when the
// config carries no DSN.
const DatabaseFileName = "bridge.db"

func init() {
	// modernc registers as "sqlite", which sqlx does not know out of the
	// box. SQLite uses ? placeholders.
	sqlx.BindDriver(DriverName, sqlx.QUESTION)
}

// Open connects to a SQLite database described by cfg and wraps it as a
// bridge connection. When cfg.DSN is empty the database lives at
// <DataDir>/bridge.db; DataDir is created if missing.
func Open(cfg types.Config) (*bridge.Bridge, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dataDir := cfg.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, DatabaseFileName)
	}

	db, err := sqlx.Connect(DriverName, dsn)
	if err != nil {
		return nil, err
	}

	// A single connection keeps cursor and transaction state coherent and
	// avoids SQLITE_BUSY between the runner's handles.
	db.SetMaxOpenConns(1)

	return bridge.New(DriverName, db), nil
}
