package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/neverinfamous/db-mcp/internal/auth"
)

// EndpointPath is where the streamable MCP transport is mounted.
const EndpointPath = "/mcp"

// HTTPServer wraps Server with the streamable HTTP transport, the auth
// gate, and the operational endpoints.
type HTTPServer struct {
	core      *Server
	srv       *http.Server
	ln        net.Listener
	logger    *slog.Logger
	validator auth.TokenValidator
}

// NewHTTPServer binds the HTTP transport. When auth is enabled, validator
// must be non-nil; every endpoint except /health, /metrics, and the
// discovery namespace then requires a bearer token.
func NewHTTPServer(core *Server, validator auth.TokenValidator, logger *slog.Logger) (*HTTPServer, error) {
	h := &HTTPServer{core: core, logger: logger, validator: validator}

	cfg := core.cfg
	if cfg.Auth.Enabled && validator == nil {
		return nil, fmt.Errorf("auth enabled but no token validator configured")
	}

	// A fresh mcp.Server per session, so filter hot reloads apply to new
	// sessions without disturbing connected ones.
	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return core.MCPServer()
	}, nil)

	mux := http.NewServeMux()
	mux.Handle(EndpointPath, streamable)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": Version,
		})
	})
	mux.Handle("GET /metrics", core.metrics.Handler())
	if cfg.Auth.Enabled {
		resource := cfg.Auth.Resource
		if resource == "" {
			resource = fmt.Sprintf("http://%s:%d%s", cfg.Server.Bind, cfg.Server.Port, EndpointPath)
		}
		mux.Handle("GET "+auth.MetadataPath,
			auth.MetadataHandler(resource, cfg.Auth.Issuer, []string{"read", "write", "admin"}))
	}

	var handler http.Handler = mux
	if cfg.Auth.Enabled {
		public := append([]string{"/health", "/metrics"}, cfg.Auth.PublicPaths...)
		mw := auth.NewMiddleware(validator, public, logger, core.metrics.ObserveAuthFailure)
		handler = mw.Wrap(handler)
	}
	handler = securityHeaders(handler)
	handler = logging(logger)(handler)
	handler = recovery(logger)(handler)
	handler = requestID(handler)
	handler = otelhttp.NewHandler(handler, "dbmcp")

	bind := cfg.Server.Bind
	if bind == "" {
		bind = "127.0.0.1"
	}
	ln, actualPort, err := listenAutoPort(bind, cfg.Server.Port, logger)
	if err != nil {
		return nil, fmt.Errorf("binding port: %w", err)
	}
	h.ln = ln
	cfg.Server.Port = actualPort

	h.srv = &http.Server{
		Handler:        handler,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return h, nil
}

// Port returns the actual port the server is bound to.
func (h *HTTPServer) Port() int {
	return h.core.cfg.Server.Port
}

// Start begins serving. Blocks until Shutdown.
func (h *HTTPServer) Start() error {
	h.logger.Info("dbmcp http starting",
		"addr", h.ln.Addr().String(),
		"endpoint", EndpointPath,
		"driver", h.core.adapter.DriverName(),
		"auth", h.core.cfg.Auth.Enabled,
		"filter", h.core.Filter().Summary(),
	)
	return h.srv.Serve(h.ln)
}

// Shutdown gracefully stops the HTTP server. The core server is closed
// separately by its owner.
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	h.logger.Info("http shutting down")
	return h.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// listenAutoPort tries the configured port; if busy, scans up to 10 higher ports.
func listenAutoPort(bind string, port int, logger *slog.Logger) (net.Listener, int, error) {
	addr := fmt.Sprintf("%s:%d", bind, port)
	ln, err := net.Listen("tcp", addr)
	if err == nil {
		// When port is 0, the OS assigns a random port. Return the actual one.
		actual := ln.Addr().(*net.TCPAddr).Port
		return ln, actual, nil
	}

	if !isAddrInUse(err) {
		return nil, 0, err
	}

	logger.Warn("port in use, searching for available port", "port", port)
	for offset := 1; offset <= 10; offset++ {
		tryPort := port + offset
		addr = fmt.Sprintf("%s:%d", bind, tryPort)
		ln, err = net.Listen("tcp", addr)
		if err == nil {
			logger.Info("using alternative port", "original", port, "actual", tryPort)
			return ln, tryPort, nil
		}
	}
	return nil, 0, fmt.Errorf("port %d and next 10 ports are all in use", port)
}

func isAddrInUse(err error) bool {
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, syscall.EADDRINUSE)
	}
	return false
}
