package types

import (
	"errors"
	"strings"
)

// Config holds driver selection and connection parameters for opening a
// bridge connection. The driver is picked once here and reused for every
// statement issued through the connection; there is no ambient driver state.
type Config struct {
	// Driver names the database binding to use (see Supported driver names).
	Driver string `json:"driver" yaml:"driver"`

	// DSN is the driver-specific data source name. When empty, bindings
	// fall back to a file inside DataDir.
	DSN string `json:"dsn" yaml:"dsn"`

	// DataDir is where file-backed databases live. Created on open if
	// missing. Ignored when DSN is set.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MetaTable is the reserved table holding the schema version. Renameable
	// so it can never collide with an application table. Empty means
	// DefaultMetaTable.
	MetaTable string `json:"meta_table" yaml:"meta_table"`
}

// Supported driver names.
const (
	DriverSQLite = "sqlite"
)

// DefaultMetaTable is the reserved schema-version table name. The leading
// underscore keeps it out of the application's namespace.
const DefaultMetaTable = "_schema_version"

// Config validation errors.
var (
	ErrDriverEmpty      = errors.New("driver must not be empty")
	ErrDriverUnknown    = errors.New("unknown driver")
	ErrMetaTableInvalid = errors.New("invalid meta table name")
)

// knownDrivers lists the drivers that Validate accepts.
var knownDrivers = map[string]bool{
	DriverSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Driver == "" {
		return ErrDriverEmpty
	}
	if !knownDrivers[c.Driver] {
		return ErrDriverUnknown
	}
	if c.MetaTable != "" {
		if err := ValidateMetaTable(c.MetaTable); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMetaTable checks that a meta table name is safe to interpolate
// into SQL. Names with whitespace, statement separators, or quoting
// characters are rejected with ErrMetaTableInvalid.
func ValidateMetaTable(name string) error {
	if strings.ContainsAny(name, " \t\n;'\"`") {
		return ErrMetaTableInvalid
	}
	return nil
}

// MetaTableName returns the configured meta table name, or DefaultMetaTable
// when unset.
func (c Config) MetaTableName() string {
	if c.MetaTable == "" {
		return DefaultMetaTable
	}
	return c.MetaTable
}
