package migrate

import (
	"errors"
	"fmt"
)

// Sequence validation errors, wrapped by OrderError.
var (
	ErrInvalidVersion   = errors.New("migration version must be positive")
	ErrDuplicateVersion = errors.New("duplicate migration version")
	ErrVersionGap       = errors.New("gap in migration versions")
	ErrVersionAhead     = errors.New("stored version is ahead of known migrations")
)

// OrderError reports a malformed migration set or a stored version newer
// than any known migration. It is raised before any statement touches the
// database.
type OrderError struct {
	// Version identifies the offending version: the duplicated or missing
	// one, or the stored version when it is ahead of the set.
	Version int
	Err     error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("migration order: version %d: %v", e.Version, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }

// ApplyError reports a migration whose statements failed mid-execution. The
// enclosing transaction has been rolled back and the stored version is
// untouched. The driver's error is available via Unwrap.
type ApplyError struct {
	Version int
	Name    string
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply migration %d (%s): %v", e.Version, e.Name, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
