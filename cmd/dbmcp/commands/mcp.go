package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neverinfamous/db-mcp/internal/config"
	"github.com/neverinfamous/db-mcp/internal/server"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP over stdio",
		Long: `Serves one MCP session on stdin/stdout. Add to your MCP client config:

  {
    "mcpServers": {
      "dbmcp": {
        "command": "dbmcp",
        "args": ["mcp", "--config", "./dbmcp.yaml"]
      }
    }
  }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				cfg = config.Defaults()
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// stdout carries the protocol; keep logging quiet and on stderr.
			logger := newLogger("error")

			core, err := server.New(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = core.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			core.StartRetentionLoop(ctx)
			return core.RunStdio(ctx)
		},
	}
}
