// Package bridge is the public entry point for sqlbridge. It opens
// driver-agnostic connections from a Config and exposes schema migration
// helpers over them.
//
// Example:
//
//	conn, err := bridge.Open(types.Config{Driver: types.DriverSQLite, DataDir: ".sqlbridge-db"})
//	if err != nil { ... }
//	defer conn.Close()
//
//	applied, err := bridge.Migrate(ctx, conn, source, types.DefaultMetaTable)
package bridge

import (
	"context"

	"github.com/mesh-intelligence/sqlbridge/internal/migrate"
	"github.com/mesh-intelligence/sqlbridge/internal/sqlite"
	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// Open validates cfg and connects to the configured database through its
// driver binding. The caller owns the returned connection and must Close it.
func Open(cfg types.Config) (types.Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case types.DriverSQLite:
		return sqlite.Open(cfg)
	default:
		// Validate accepts only known drivers; this is unreachable unless
		// the two lists drift.
		return nil, types.ErrDriverUnknown
	}
}

// Migrate applies all pending migrations from source and returns how many
// were applied. metaTable may be empty to use the default.
func Migrate(ctx context.Context, conn types.Conn, source types.Source, metaTable string) (int, error) {
	runner := migrate.NewRunner(conn, source, migrate.Options{MetaTable: metaTable})
	return runner.Run(ctx)
}

// Version returns the stored schema version of the connected database, 0
// for an uninitialized one.
func Version(ctx context.Context, conn types.Conn, metaTable string) (int, error) {
	return migrate.NewStore(conn, metaTable).ReadVersion(ctx)
}
