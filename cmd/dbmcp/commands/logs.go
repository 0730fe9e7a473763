package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/neverinfamous/db-mcp/internal/audit"
	"github.com/neverinfamous/db-mcp/internal/config"
)

func newLogsCmd() *cobra.Command {
	var status, subject, tool, since string
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query the tool call audit log",
		Example: `  dbmcp logs
  dbmcp logs --status denied
  dbmcp logs --subject alice --tool sqlite_write_query
  dbmcp logs --since 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				cfg = config.Defaults()
			}
			if !cfg.Audit.Enabled || cfg.Audit.DBPath == "" {
				return fmt.Errorf("auditing is disabled in %s", cfgFile)
			}

			logger := newLogger("error")
			store, err := audit.NewStore(cfg.Audit.DBPath, logger)
			if err != nil {
				return fmt.Errorf("opening audit db: %w", err)
			}
			defer store.Close() //nolint:errcheck // best-effort cleanup

			var sinceTime string
			if since != "" {
				dur, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", since, err)
				}
				sinceTime = time.Now().Add(-dur).UTC().Format(time.RFC3339)
			}

			entries, err := store.Query(audit.QueryOpts{
				Status:  status,
				Subject: subject,
				Tool:    tool,
				Since:   sinceTime,
				Limit:   limit,
			})
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No audit entries found.")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "TIME\tSUBJECT\tTOOL\tSTATUS\tDECISION\tLATENCY\n") //nolint:errcheck // CLI output
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%dms\n", //nolint:errcheck // CLI output
					e.Timestamp, e.Subject, e.Tool, e.Status, e.Decision, e.LatencyMs)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (ok, error, denied, blocked)")
	cmd.Flags().StringVar(&subject, "subject", "", "filter by caller subject")
	cmd.Flags().StringVar(&tool, "tool", "", "filter by tool name")
	cmd.Flags().StringVar(&since, "since", "", "show entries since duration (e.g. 1h, 30m)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")
	return cmd
}
