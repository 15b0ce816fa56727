package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sqlbridge/internal/sqlite"
	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// newTestConn opens a bridge connection to an in-memory SQLite database.
func newTestConn(t *testing.T) types.Conn {
	t.Helper()
	conn, err := sqlite.Open(types.Config{Driver: types.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// fetchInt runs a single-value query and returns the result as int64.
func fetchInt(t *testing.T, conn types.Conn, query string) int64 {
	t.Helper()
	curs, err := conn.Cursor()
	require.NoError(t, err)
	defer curs.Close()
	require.NoError(t, curs.Execute(context.Background(), query))
	row, err := curs.FetchOne()
	require.NoError(t, err)
	return row[0].(int64)
}

var twoStepMigrations = types.SliceSource{
	{Version: 1, Name: "create_t", Statements: []string{"CREATE TABLE t (id INT)"}},
	{Version: 2, Name: "seed_t", Statements: []string{"INSERT INTO t VALUES (1)"}},
}

func TestRunnerAppliesPendingInOrder(t *testing.T) {
	conn := newTestConn(t)
	runner := NewRunner(conn, twoStepMigrations, Options{})

	applied, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	version, err := runner.Store().ReadVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	assert.Equal(t, int64(1), fetchInt(t, conn, "SELECT COUNT(*) FROM t"))
	assert.Equal(t, int64(1), fetchInt(t, conn, "SELECT id FROM t"))
}

func TestRunnerIsIdempotent(t *testing.T) {
	conn := newTestConn(t)
	runner := NewRunner(conn, twoStepMigrations, Options{})
	ctx := context.Background()

	_, err := runner.Run(ctx)
	require.NoError(t, err)

	applied, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, applied, "second run must be a no-op")

	version, err := runner.Store().ReadVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	// Statements were not re-executed: still exactly one row.
	assert.Equal(t, int64(1), fetchInt(t, conn, "SELECT COUNT(*) FROM t"))
}

func TestRunnerEmptySetOnFreshDatabase(t *testing.T) {
	conn := newTestConn(t)
	runner := NewRunner(conn, types.SliceSource(nil), Options{})

	applied, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	version, err := runner.Store().ReadVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

func TestRunnerAppliesOnlyNewMigrations(t *testing.T) {
	conn := newTestConn(t)
	ctx := context.Background()

	_, err := NewRunner(conn, twoStepMigrations, Options{}).Run(ctx)
	require.NoError(t, err)

	extended := append(types.SliceSource{}, twoStepMigrations...)
	extended = append(extended, types.Migration{
		Version: 3, Name: "seed_more", Statements: []string{"INSERT INTO t VALUES (2)"},
	})

	runner := NewRunner(conn, extended, Options{})
	applied, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied, "only migration 3 should run")

	version, err := runner.Store().ReadVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, version)
	assert.Equal(t, int64(2), fetchInt(t, conn, "SELECT COUNT(*) FROM t"))
}

func TestRunnerFailedMigrationRollsBack(t *testing.T) {
	conn := newTestConn(t)
	ctx := context.Background()

	source := types.SliceSource{
		{Version: 1, Name: "create_t", Statements: []string{"CREATE TABLE t (id INT)"}},
		{Version: 2, Name: "broken", Statements: []string{
			"INSERT INTO t VALUES (1)",
			"INSERT INTO nonexistent VALUES (1)",
		}},
	}

	runner := NewRunner(conn, source, Options{})
	_, err := runner.Run(ctx)
	require.Error(t, err)

	var applyErr *ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, 2, applyErr.Version)
	assert.Equal(t, "broken", applyErr.Name)

	// Version stays at the last fully applied migration and no partial
	// effect of migration 2 is visible.
	version, err := runner.Store().ReadVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, int64(0), fetchInt(t, conn, "SELECT COUNT(*) FROM t"))
}

func TestRunnerStoredVersionAheadIsOrderError(t *testing.T) {
	conn := newTestConn(t)
	ctx := context.Background()

	_, err := NewRunner(conn, twoStepMigrations, Options{}).Run(ctx)
	require.NoError(t, err)

	// Old application code knows only migration 1; the database is at 2.
	runner := NewRunner(conn, twoStepMigrations[:1], Options{})
	_, err = runner.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionAhead)

	var orderErr *OrderError
	require.ErrorAs(t, err, &orderErr)
	assert.Equal(t, 2, orderErr.Version)
}

func TestRunnerSequenceValidation(t *testing.T) {
	tests := []struct {
		name    string
		source  types.SliceSource
		wantErr error
	}{
		{
			name: "gap in versions",
			source: types.SliceSource{
				{Version: 1, Statements: []string{"SELECT 1"}},
				{Version: 3, Statements: []string{"SELECT 1"}},
			},
			wantErr: ErrVersionGap,
		},
		{
			name: "duplicate versions",
			source: types.SliceSource{
				{Version: 1, Statements: []string{"SELECT 1"}},
				{Version: 1, Statements: []string{"SELECT 1"}},
			},
			wantErr: ErrDuplicateVersion,
		},
		{
			name: "non-positive version",
			source: types.SliceSource{
				{Version: 0, Statements: []string{"SELECT 1"}},
			},
			wantErr: ErrInvalidVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newTestConn(t)
			runner := NewRunner(conn, tt.source, Options{})
			_, err := runner.Run(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRunnerStatus(t *testing.T) {
	conn := newTestConn(t)
	ctx := context.Background()

	runner := NewRunner(conn, twoStepMigrations, Options{})

	status, err := runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Version)
	assert.Len(t, status.Pending, 2)
	assert.Empty(t, status.Applied)

	_, err = runner.Run(ctx)
	require.NoError(t, err)

	status, err = runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Version)
	assert.Empty(t, status.Pending)
	require.Len(t, status.Applied, 2)
	assert.Equal(t, 1, status.Applied[0].Version)
	assert.Equal(t, "create_t", status.Applied[0].Name)
	assert.Equal(t, 2, status.Applied[1].Version)
}

func TestRunnerStatusReportsAheadVersion(t *testing.T) {
	conn := newTestConn(t)
	ctx := context.Background()

	_, err := NewRunner(conn, twoStepMigrations, Options{}).Run(ctx)
	require.NoError(t, err)

	// Status against a newer database reports instead of rejecting.
	runner := NewRunner(conn, types.SliceSource(nil), Options{})
	status, err := runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Version)
	assert.Empty(t, status.Pending)
	assert.Len(t, status.Applied, 2)
}

func TestRunnerCustomMetaTable(t *testing.T) {
	conn := newTestConn(t)
	ctx := context.Background()

	runner := NewRunner(conn, twoStepMigrations, Options{MetaTable: "_app_version"})
	_, err := runner.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), fetchInt(t, conn, "SELECT version FROM _app_version WHERE id = 0"))

	// The default table was never created.
	curs, err := conn.Cursor()
	require.NoError(t, err)
	defer curs.Close()
	err = curs.Execute(ctx, "SELECT version FROM "+types.DefaultMetaTable)
	assert.Error(t, err)
}

func TestRunnerRejectsUnsafeMetaTable(t *testing.T) {
	conn := newTestConn(t)

	runner := NewRunner(conn, twoStepMigrations, Options{MetaTable: "v; DROP TABLE t"})
	_, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, types.ErrMetaTableInvalid)
}
