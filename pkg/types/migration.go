package types

// Migration is one versioned unit of schema change. Versions are positive
// integers; the statements transform the schema from version Version-1 to
// Version. Migrations are defined at build time and never mutated.
type Migration struct {
	// Version is the monotonically increasing migration number.
	Version int

	// Name is a short human-readable description, used in logs and the
	// migration history.
	Name string

	// Statements are executed in order inside a single transaction.
	Statements []string
}

// Source supplies the ordered set of known migrations.
type Source interface {
	// Migrations returns all defined migrations. Order is not significant;
	// the runner sorts and validates the set before applying anything.
	Migrations() ([]Migration, error)
}

// SliceSource is a Source over an in-memory migration list, for migrations
// compiled into the application.
type SliceSource []Migration

// Migrations returns a copy of the slice so callers cannot mutate the set
// under the runner.
func (s SliceSource) Migrations() ([]Migration, error) {
	out := make([]Migration, len(s))
	copy(out, s)
	return out, nil
}
