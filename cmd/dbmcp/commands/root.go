package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "dbmcp",
		Short: "MCP server for SQL databases",
		Long:  "dbmcp — SQLite and Postgres exposed as MCP tools, resources, and prompts. Tool filtering, OAuth scopes, audit trail. Single binary.",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "dbmcp.yaml", "config file path")

	root.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newToolsCmd(),
		newQueryCmd(),
		newLogsCmd(),
		newInitCmd(),
		newVersionCmd(),
	)

	return root
}

// newLogger builds the process logger on stderr. stdout stays free for the
// stdio MCP transport and command output.
func newLogger(level string) *slog.Logger {
	l := slog.LevelInfo
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
