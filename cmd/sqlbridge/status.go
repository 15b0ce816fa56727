// Status command for the sqlbridge CLI.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sqlbridge/internal/migrate"
	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// statusOutput is the JSON shape of the status command.
type statusOutput struct {
	Version int             `json:"version"`
	Pending []pendingOutput `json:"pending"`
	Applied []appliedOutput `json:"applied"`
}

type pendingOutput struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
}

type appliedOutput struct {
	Version   int       `json:"version"`
	Name      string    `json:"name"`
	AppliedAt time.Time `json:"applied_at"`
}

// statusDirFlag overrides the configured migrations directory.
var statusDirFlag string

func init() {
	statusCmd.Flags().StringVar(&statusDirFlag, "dir", "", "migrations directory (default from config)")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored schema version and pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, v, err := loadCLIConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, "status:", err)
			os.Exit(exitSysError)
		}

		conn, _, err := openConn(v)
		if err != nil {
			fmt.Fprintln(os.Stderr, "status:", err)
			os.Exit(exitSysError)
		}
		defer conn.Close()

		dir := statusDirFlag
		if dir == "" {
			dir = v.GetString(cfgKeyMigrationsDir)
		}
		// Without a migrations directory only the stored version and the
		// history are reported.
		var source types.Source = types.SliceSource(nil)
		if _, err := os.Stat(dir); err == nil {
			source = migrate.NewFileSource(os.DirFS(dir))
		}

		runner := migrate.NewRunner(conn, source,
			migrate.Options{MetaTable: v.GetString(cfgKeyMetaTable)})
		status, err := runner.Status(cmd.Context())
		if err != nil {
			fmt.Fprintln(os.Stderr, "status:", err)
			os.Exit(exitSysError)
		}

		if flags.jsonMode {
			out := statusOutput{
				Version: status.Version,
				Pending: make([]pendingOutput, 0, len(status.Pending)),
				Applied: make([]appliedOutput, 0, len(status.Applied)),
			}
			for _, m := range status.Pending {
				out.Pending = append(out.Pending, pendingOutput{Version: m.Version, Name: m.Name})
			}
			for _, a := range status.Applied {
				out.Applied = append(out.Applied, appliedOutput{Version: a.Version, Name: a.Name, AppliedAt: a.AppliedAt})
			}
			data, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		fmt.Println("Schema version:", status.Version)
		if len(status.Pending) == 0 {
			fmt.Println("Pending: none")
		} else {
			fmt.Println("Pending:")
			for _, m := range status.Pending {
				fmt.Printf("  %d  %s\n", m.Version, m.Name)
			}
		}
		if len(status.Applied) > 0 {
			fmt.Println("Applied:")
			for _, a := range status.Applied {
				fmt.Printf("  %d  %s  %s\n", a.Version, a.Name, a.AppliedAt.Format(time.RFC3339))
			}
		}
		return nil
	},
}
