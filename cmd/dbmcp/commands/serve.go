package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/neverinfamous/db-mcp/internal/auth"
	"github.com/neverinfamous/db-mcp/internal/config"
	"github.com/neverinfamous/db-mcp/internal/server"
)

func newServeCmd() *cobra.Command {
	var port int
	var bind string
	var trace bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dbmcp HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				// Fall back to defaults if no config file
				cfg = config.Defaults()
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cfg.Server.LogLevel)

			// Graceful shutdown on SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if trace {
				shutdown, err := setupTracing(ctx)
				if err != nil {
					return fmt.Errorf("setting up tracing: %w", err)
				}
				defer shutdown()
			}

			core, err := server.New(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = core.Close() }()

			var validator auth.TokenValidator
			if cfg.Auth.Enabled {
				v, err := auth.NewValidator(ctx, cfg.Auth.JWKSURL, cfg.Auth.Issuer, cfg.Auth.Audience)
				if err != nil {
					return fmt.Errorf("initializing token validator: %w", err)
				}
				validator = v
			}

			srv, err := server.NewHTTPServer(core, validator, logger)
			if err != nil {
				return err
			}

			core.StartRetentionLoop(ctx)
			go func() {
				if err := core.WatchConfig(ctx, cfgFile); err != nil {
					logger.Warn("config watcher unavailable", "error", err)
				}
			}()

			printBanner(cfg, srv.Port())

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "address to bind (default: 127.0.0.1)")
	cmd.Flags().BoolVar(&trace, "trace", false, "emit OpenTelemetry spans to stderr")
	return cmd
}

// setupTracing installs a stderr span exporter. Meant for local debugging,
// not production telemetry.
func setupTracing(ctx context.Context) (func(), error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}, nil
}

func printBanner(cfg *config.Config, port int) {
	bindAddr := cfg.Server.Bind
	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}

	authMode := "off"
	if cfg.Auth.Enabled {
		authMode = "oauth"
	}

	fmt.Println()
	fmt.Println("  dbmcp server")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  MCP:       http://%s:%d%s\n", bindAddr, port, server.EndpointPath)
	fmt.Printf("  Health:    http://%s:%d/health\n", bindAddr, port)
	fmt.Printf("  Metrics:   http://%s:%d/metrics\n", bindAddr, port)
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Database:  %s\n", cfg.Database.Driver)
	fmt.Printf("  Auth:      %s\n", authMode)
	fmt.Printf("  Config:    %s\n", cfgFile)
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop.")
	fmt.Println()
}
