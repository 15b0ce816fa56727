package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// migrationFilePattern matches migration file names of the form
// NNN_description.sql, e.g. 001_create_users.sql.
var migrationFilePattern = regexp.MustCompile(`^(\d+)_([A-Za-z0-9_-]+)\.sql$`)

// FileSource loads migrations from .sql files in the root of a filesystem,
// typically os.DirFS over a migrations directory or an embed.FS. File names
// carry the version and description; file contents are split into statements
// on semicolons.
type FileSource struct {
	fsys fs.FS
}

// NewFileSource creates a FileSource over the given filesystem root.
func NewFileSource(fsys fs.FS) *FileSource {
	return &FileSource{fsys: fsys}
}

// Migrations scans the filesystem for migration files. A .sql file that does
// not follow the naming convention is an error, as is a duplicated version.
func (f *FileSource) Migrations() ([]types.Migration, error) {
	entries, err := fs.ReadDir(f.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migration dir: %w", err)
	}

	seen := make(map[int]string)
	var migrations []types.Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		match := migrationFilePattern.FindStringSubmatch(name)
		if match == nil {
			return nil, fmt.Errorf("migration file %q does not match NNN_description.sql", name)
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("migration file %q: %w", name, err)
		}
		if prev, ok := seen[version]; ok {
			return nil, &OrderError{Version: version,
				Err: fmt.Errorf("%w: in both %s and %s", ErrDuplicateVersion, prev, name)}
		}
		seen[version] = name

		content, err := fs.ReadFile(f.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, types.Migration{
			Version:    version,
			Name:       match[2],
			Statements: SplitStatements(string(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// SplitStatements splits SQL text into individual statements on semicolons,
// dropping empty statements and lines that are only -- comments. It does not
// parse string literals; a literal semicolon inside a statement needs the
// statement supplied through a SliceSource instead.
func SplitStatements(sql string) []string {
	var statements []string
	for _, stmt := range strings.Split(sql, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}
