package migrate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// Store reads and writes the schema version for one connected database. The
// version is a singleton row in a reserved table; a companion _log table
// records every applied migration.
type Store struct {
	conn     types.Conn
	table    string
	logTable string
}

// Applied is one row of the migration history.
type Applied struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Duration  time.Duration
}

// NewStore creates a Store over the given connection. An empty table name
// selects types.DefaultMetaTable. The history table is the meta table name
// with a _log suffix, so renaming one renames both.
func NewStore(conn types.Conn, table string) *Store {
	if table == "" {
		table = types.DefaultMetaTable
	}
	return &Store{
		conn:     conn,
		table:    table,
		logTable: table + "_log",
	}
}

// Ensure creates the version and history tables when they do not exist. A
// database without the tables is at version 0. The table name is checked
// here because it is interpolated into the statements below; every other
// Store method runs after Ensure.
func (s *Store) Ensure(ctx context.Context) error {
	if err := types.ValidateMetaTable(s.table); err != nil {
		return fmt.Errorf("meta table %q: %w", s.table, err)
	}
	curs, err := s.conn.Cursor()
	if err != nil {
		return err
	}
	defer curs.Close()

	versionDDL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id INTEGER PRIMARY KEY CHECK (id = 0),
    version INTEGER NOT NULL,
    updated TEXT NOT NULL
)`, s.table)
	logDDL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    log_id TEXT PRIMARY KEY,
    version INTEGER NOT NULL,
    name TEXT NOT NULL,
    applied_at TEXT NOT NULL,
    duration_ms INTEGER NOT NULL
)`, s.logTable)

	if err := curs.Execute(ctx, versionDDL); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	if err := curs.Execute(ctx, logDDL); err != nil {
		return fmt.Errorf("create %s: %w", s.logTable, err)
	}
	return nil
}

// ReadVersion returns the stored schema version, or 0 for an uninitialized
// database.
func (s *Store) ReadVersion(ctx context.Context) (int, error) {
	if err := s.Ensure(ctx); err != nil {
		return 0, err
	}

	curs, err := s.conn.Cursor()
	if err != nil {
		return 0, err
	}
	defer curs.Close()

	query := fmt.Sprintf("SELECT version FROM %s WHERE id = 0", s.table)
	if err := curs.Execute(ctx, query); err != nil {
		return 0, err
	}
	row, err := curs.FetchOne()
	if err == types.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return toInt(row[0])
}

// WriteVersion upserts the singleton version row inside the given
// transaction. It must run in the same transaction as the migration whose
// completion it records.
func (s *Store) WriteVersion(ctx context.Context, tx types.Tx, version int) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, version, updated) VALUES (0, ?, ?)
ON CONFLICT (id) DO UPDATE SET version = excluded.version, updated = excluded.updated`, s.table)
	return tx.Execute(ctx, query, version, time.Now().UTC().Format(time.RFC3339))
}

// LogApplied records a successfully applied migration in the history table,
// inside the same transaction as the migration itself.
func (s *Store) LogApplied(ctx context.Context, tx types.Tx, m types.Migration, d time.Duration) error {
	query := fmt.Sprintf(`INSERT INTO %s (log_id, version, name, applied_at, duration_ms)
VALUES (?, ?, ?, ?, ?)`, s.logTable)
	return tx.Execute(ctx, query,
		newLogID(), m.Version, m.Name,
		time.Now().UTC().Format(time.RFC3339), d.Milliseconds())
}

// History returns all applied migrations in version order.
func (s *Store) History(ctx context.Context) ([]Applied, error) {
	if err := s.Ensure(ctx); err != nil {
		return nil, err
	}

	curs, err := s.conn.Cursor()
	if err != nil {
		return nil, err
	}
	defer curs.Close()

	query := fmt.Sprintf(
		"SELECT version, name, applied_at, duration_ms FROM %s ORDER BY version ASC",
		s.logTable)
	if err := curs.Execute(ctx, query); err != nil {
		return nil, err
	}
	rows, err := curs.FetchAll()
	if err != nil {
		return nil, err
	}

	applied := make([]Applied, 0, len(rows))
	for _, row := range rows {
		version, err := toInt(row[0])
		if err != nil {
			return nil, fmt.Errorf("history version: %w", err)
		}
		name := toString(row[1])
		appliedAt, err := time.Parse(time.RFC3339, toString(row[2]))
		if err != nil {
			return nil, fmt.Errorf("history applied_at: %w", err)
		}
		durationMS, err := toInt(row[3])
		if err != nil {
			return nil, fmt.Errorf("history duration: %w", err)
		}
		applied = append(applied, Applied{
			Version:   version,
			Name:      name,
			AppliedAt: appliedAt,
			Duration:  time.Duration(durationMS) * time.Millisecond,
		})
	}
	return applied, nil
}

// newLogID generates a UUID v7 for history rows, falling back to v4 when v7
// generation fails.
func newLogID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// toInt converts a driver-supplied column value to int. Drivers return
// integers as int64 or, for some configurations, as text.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case []byte:
		return strconv.Atoi(string(n))
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("unexpected column type %T", v)
	}
}

// toString converts a driver-supplied column value to string.
func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}
