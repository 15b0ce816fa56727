package migrate

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// Runner brings a database from its stored version to the latest defined
// migration. It assumes exclusive access to the database for the duration of
// a run; coordinating concurrent runners is the caller's responsibility.
type Runner struct {
	conn   types.Conn
	source types.Source
	store  *Store
	log    *slog.Logger
}

// Options configures a Runner. The zero value selects the default meta
// table and the default slog logger.
type Options struct {
	MetaTable string
	Logger    *slog.Logger
}

// Status describes the migration state of a database.
type Status struct {
	// Version is the stored schema version (0 for uninitialized).
	Version int

	// Pending lists defined migrations not yet applied, in apply order.
	Pending []types.Migration

	// Applied is the recorded migration history, in version order.
	Applied []Applied
}

// NewRunner creates a Runner over the given connection and migration source.
func NewRunner(conn types.Conn, source types.Source, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		conn:   conn,
		source: source,
		store:  NewStore(conn, opts.MetaTable),
		log:    logger,
	}
}

// Store returns the version store the runner writes through.
func (r *Runner) Store() *Store {
	return r.store
}

// Run applies all pending migrations in ascending version order and returns
// how many were applied. Each migration runs in its own transaction together
// with the version update; the first failure rolls back, stops the run, and
// is returned as an ApplyError. No pending migrations is a successful no-op.
func (r *Runner) Run(ctx context.Context) (int, error) {
	pending, current, err := r.plan(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		r.log.Info("schema up to date", "version", current)
		return 0, nil
	}

	r.log.Info("applying migrations", "current", current, "pending", len(pending))
	for _, m := range pending {
		start := time.Now()
		if err := r.apply(ctx, m); err != nil {
			r.log.Error("migration failed", "version", m.Version, "name", m.Name, "error", err)
			return 0, err
		}
		r.log.Info("migration applied",
			"version", m.Version, "name", m.Name, "duration", time.Since(start))
	}
	return len(pending), nil
}

// Pending returns the migrations that would be applied by Run, after full
// sequence validation.
func (r *Runner) Pending(ctx context.Context) ([]types.Migration, error) {
	pending, _, err := r.plan(ctx)
	return pending, err
}

// Status reports the stored version, the pending migrations, and the
// applied history. Unlike Run, a stored version ahead of the known
// migrations is reported rather than rejected; status is diagnostic.
func (r *Runner) Status(ctx context.Context) (*Status, error) {
	pending, current, err := r.plan(ctx)
	if err != nil {
		var orderErr *OrderError
		if errors.As(err, &orderErr) && errors.Is(err, ErrVersionAhead) {
			pending, current = nil, orderErr.Version
		} else {
			return nil, err
		}
	}
	applied, err := r.store.History(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{Version: current, Pending: pending, Applied: applied}, nil
}

// plan validates the migration set against the stored version and returns
// the pending migrations in apply order along with the stored version.
func (r *Runner) plan(ctx context.Context) ([]types.Migration, int, error) {
	migrations, err := r.source.Migrations()
	if err != nil {
		return nil, 0, err
	}
	if err := validateSet(migrations); err != nil {
		return nil, 0, err
	}

	current, err := r.store.ReadVersion(ctx)
	if err != nil {
		return nil, 0, err
	}

	// Running old application code against a newer database cannot be
	// reconciled; fail instead of guessing.
	highest := 0
	if len(migrations) > 0 {
		highest = migrations[len(migrations)-1].Version
	}
	if current > highest {
		return nil, 0, &OrderError{Version: current, Err: ErrVersionAhead}
	}

	var pending []types.Migration
	for _, m := range migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	return pending, current, nil
}

// apply runs one migration: its statements, the version upsert, and the
// history row, all in a single transaction.
func (r *Runner) apply(ctx context.Context, m types.Migration) error {
	start := time.Now()

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return &ApplyError{Version: m.Version, Name: m.Name, Err: err}
	}

	for _, stmt := range m.Statements {
		if err := tx.Execute(ctx, stmt); err != nil {
			tx.Rollback()
			return &ApplyError{Version: m.Version, Name: m.Name, Err: err}
		}
	}
	if err := r.store.WriteVersion(ctx, tx, m.Version); err != nil {
		tx.Rollback()
		return &ApplyError{Version: m.Version, Name: m.Name, Err: err}
	}
	if err := r.store.LogApplied(ctx, tx, m, time.Since(start)); err != nil {
		tx.Rollback()
		return &ApplyError{Version: m.Version, Name: m.Name, Err: err}
	}
	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return &ApplyError{Version: m.Version, Name: m.Name, Err: err}
	}
	return nil
}

// validateSet sorts the migrations in place and checks the sequence:
// versions must be positive, unique, and contiguous from the lowest to the
// highest defined version. Gaps are a configuration error, not a skip.
func validateSet(migrations []types.Migration) error {
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for i, m := range migrations {
		if m.Version <= 0 {
			return &OrderError{Version: m.Version, Err: ErrInvalidVersion}
		}
		if i == 0 {
			continue
		}
		prev := migrations[i-1].Version
		switch {
		case m.Version == prev:
			return &OrderError{Version: m.Version, Err: ErrDuplicateVersion}
		case m.Version != prev+1:
			return &OrderError{Version: prev + 1, Err: ErrVersionGap}
		}
	}
	return nil
}
