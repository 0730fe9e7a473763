// Package server assembles the MCP protocol surface over the database
// adapter: tool registration behind the filter, the call pipeline (rate
// limit, scope gate, guard, audit, metrics), resources, and prompts.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"

	"github.com/neverinfamous/db-mcp/internal/audit"
	"github.com/neverinfamous/db-mcp/internal/config"
	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/guard"
	"github.com/neverinfamous/db-mcp/internal/metrics"
	"github.com/neverinfamous/db-mcp/internal/ratelimit"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
	"github.com/neverinfamous/db-mcp/internal/tools"
)

// Version is stamped at build time via -ldflags.
var Version = "0.1.0"

// Server wires the MCP server to its database adapter and call pipeline.
type Server struct {
	cfg     *config.Config
	adapter db.Adapter
	logger  *slog.Logger

	auditStore *audit.Store
	scanner    *guard.Scanner
	limiter    ratelimit.Limiter
	metrics    *metrics.Metrics

	// filter holds the active tool filter. Hot reload swaps the pointer;
	// new MCP sessions pick up the new config, existing sessions keep the
	// tool set they connected with.
	filter atomic.Pointer[toolfilter.Config]
}

// New assembles a server from configuration. Callers must Close it.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	adapter, err := db.Open(db.Options{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		adapter: adapter,
		logger:  logger,
		metrics: metrics.New(),
	}

	s.filter.Store(toolfilter.Parse(cfg.ToolFilter))

	if cfg.Audit.Enabled {
		store, err := audit.NewStore(cfg.Audit.DBPath, logger)
		if err != nil {
			_ = adapter.Close()
			return nil, fmt.Errorf("opening audit store: %w", err)
		}
		s.auditStore = store
	}

	if cfg.Guard.Enabled {
		s.scanner = guard.NewScanner(cfg.Guard.CustomRulesDir)
	}

	if cfg.RateLimit.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		s.limiter = ratelimit.NewRedis(client, cfg.RateLimit.Requests,
			time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)
		logger.Info("rate limiting via redis", "addr", cfg.RateLimit.RedisAddr)
	} else {
		s.limiter = ratelimit.NewMemory(cfg.RateLimit.Requests,
			time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)
	}

	return s, nil
}

// Filter returns the active tool filter config.
func (s *Server) Filter() *toolfilter.Config {
	return s.filter.Load()
}

// SetFilter swaps in a new tool filter. Takes effect for sessions created
// after the swap.
func (s *Server) SetFilter(fc *toolfilter.Config) {
	s.filter.Store(fc)
	s.logger.Info("tool filter updated", "summary", fc.Summary())
}

// Adapter exposes the database adapter for CLI commands.
func (s *Server) Adapter() db.Adapter {
	return s.adapter
}

// AuditStore returns the audit store, or nil when auditing is disabled.
func (s *Server) AuditStore() *audit.Store {
	return s.auditStore
}

// Metrics returns the server's metric set.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// MCPServer builds an MCP server carrying the currently enabled tools,
// resources, and prompts. Each HTTP session gets its own instance.
func (s *Server) MCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "dbmcp", Version: Version}, nil)

	defs := tools.FilterDefinitions(tools.Registry(s.adapter), s.filter.Load())
	for _, d := range defs {
		d.Register(srv, s)
	}
	s.registerResources(srv)
	s.registerPrompts(srv)

	s.logger.Debug("mcp server built", "tools", len(defs))
	return srv
}

// RunStdio serves a single MCP session over stdin/stdout. Blocks until the
// client disconnects or ctx is canceled.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio",
		"driver", s.adapter.DriverName(),
		"filter", s.filter.Load().Summary(),
	)
	return s.MCPServer().Run(ctx, &mcp.StdioTransport{})
}

// StartRetentionLoop purges expired audit entries on a timer until ctx is
// canceled. No-op when auditing or retention is disabled.
func (s *Server) StartRetentionLoop(ctx context.Context) {
	if s.auditStore == nil || s.cfg.Audit.RetentionDays <= 0 {
		return
	}
	retention := time.Duration(s.cfg.Audit.RetentionDays) * 24 * time.Hour
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.auditStore.Purge(retention)
				if err != nil {
					s.logger.Error("audit purge failed", "error", err)
				} else if n > 0 {
					s.logger.Info("audit entries purged", "count", n)
				}
			}
		}
	}()
}

// Close releases the adapter and audit store.
func (s *Server) Close() error {
	err := s.adapter.Close()
	if s.auditStore != nil {
		if cerr := s.auditStore.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
