// Migrate command for the sqlbridge CLI.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sqlbridge/internal/migrate"
)

// migrationsDirFlag overrides the configured migrations directory.
var migrationsDirFlag string

func init() {
	migrateCmd.Flags().StringVar(&migrationsDirFlag, "dir", "", "migrations directory (default from config)")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Migrate reads NNN_description.sql files from the migrations directory and
applies every migration newer than the stored schema version, in order. Each
migration runs in its own transaction together with the version update.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, v, err := loadCLIConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(exitSysError)
		}

		dir := migrationsDirFlag
		if dir == "" {
			dir = v.GetString(cfgKeyMigrationsDir)
		}
		if _, err := os.Stat(dir); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: migrations directory %q: %v\n", dir, err)
			os.Exit(exitUserError)
		}

		conn, _, err := openConn(v)
		if err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(exitSysError)
		}
		defer conn.Close()

		runner := migrate.NewRunner(conn, migrate.NewFileSource(os.DirFS(dir)),
			migrate.Options{MetaTable: v.GetString(cfgKeyMetaTable)})

		applied, err := runner.Run(cmd.Context())
		if err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			// A malformed migration set is the caller's mistake; anything
			// else is a database problem.
			var orderErr *migrate.OrderError
			if errors.As(err, &orderErr) {
				os.Exit(exitUserError)
			}
			os.Exit(exitSysError)
		}

		if flags.jsonMode {
			out, _ := json.Marshal(map[string]int{"applied": applied})
			fmt.Println(string(out))
			return nil
		}
		if applied == 0 {
			fmt.Println("Schema is up to date")
		} else {
			fmt.Printf("Applied %d migration(s)\n", applied)
		}
		return nil
	},
}
