package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/neverinfamous/db-mcp/internal/config"
	"github.com/neverinfamous/db-mcp/internal/db"
)

func newQueryCmd() *cobra.Command {
	var write bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a one-shot SQL statement against the configured database",
		Args:  cobra.ExactArgs(1),
		Example: `  dbmcp query "SELECT name FROM sqlite_master WHERE type='table'"
  dbmcp query --write "DELETE FROM sessions WHERE expired = 1"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				cfg = config.Defaults()
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a, err := db.Open(db.Options{
				Driver: cfg.Database.Driver,
				Path:   cfg.Database.Path,
				DSN:    cfg.Database.DSN,
			})
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer func() { _ = a.Close() }()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			sql := args[0]
			if !write {
				if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "SELECT") {
					return fmt.Errorf("refusing non-SELECT statement without --write")
				}
				rs, err := a.Query(ctx, sql)
				if err != nil {
					return err
				}
				return printResultSet(rs)
			}

			res, err := a.Exec(ctx, sql)
			if err != nil {
				return err
			}
			fmt.Printf("%d row(s) affected\n", res.RowsAffected)
			return nil
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "allow statements that modify data")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "statement timeout")
	return cmd
}

func printResultSet(rs *db.ResultSet) error {
	if rs.Count == 0 {
		fmt.Println("No rows.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rs.Columns, "\t")) //nolint:errcheck // CLI output
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")) //nolint:errcheck // CLI output
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d row(s)\n", rs.Count)
	return nil
}
