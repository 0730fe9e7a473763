package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/neverinfamous/db-mcp/internal/audit"
	"github.com/neverinfamous/db-mcp/internal/auth"
	"github.com/neverinfamous/db-mcp/internal/config"
	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
	"github.com/neverinfamous/db-mcp/internal/tools"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Server.Port = 0
	cfg.Database.Path = filepath.Join(dir, "data.db")
	cfg.Audit.DBPath = filepath.Join(dir, "audit.db")
	cfg.Guard.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := New(cfg, testLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func connect(ctx context.Context, t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	srv := s.MCPServer()
	ct, st := mcp.NewInMemoryTransports()
	_, err := srv.Connect(ctx, st, nil)
	require.NoError(t, err)
	cs, err := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil).Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func adminContext(ctx context.Context) context.Context {
	return auth.ContextWithClaims(ctx, &auth.Claims{Subject: "root", Scopes: []string{"admin"}})
}

func TestMCPServerAppliesToolFilter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := testConfig(t)
	cfg.ToolFilter = "core"
	s := newTestServer(t, cfg)
	cs := connect(ctx, t, s)

	res, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Tools)
	for _, tool := range res.Tools {
		g, ok := tools.ToolGroup(tool.Name)
		require.True(t, ok, "unknown tool %q listed", tool.Name)
		require.Equal(t, toolfilter.GroupCore, g, "tool %q leaked past the core filter", tool.Name)
	}
}

func TestSetFilterAffectsNewSessionsOnly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := testConfig(t)
	cfg.ToolFilter = "core"
	s := newTestServer(t, cfg)

	before := connect(ctx, t, s)
	res, err := before.ListTools(ctx, nil)
	require.NoError(t, err)
	coreCount := len(res.Tools)

	s.SetFilter(toolfilter.Parse("core,json"))

	after := connect(ctx, t, s)
	res2, err := after.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Greater(t, len(res2.Tools), coreCount)

	// The session opened before the swap keeps its original tool set.
	res3, err := before.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, res3.Tools, coreCount)
}

func TestPipelineScopeGate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.Enabled = true
	cfg.Auth.JWKSURL = "https://issuer.example/jwks.json"
	cfg.Audit.Enabled = false
	s := newTestServer(t, cfg)

	ctx := context.Background()

	// Anonymous caller is refused on a scoped tool.
	_, res, err := s.Before(ctx, "sqlite_write_query", []string{"write"})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.True(t, res.IsError)
	require.Contains(t, res.Content[0].(*mcp.TextContent).Text, "insufficient scope")

	// A matching scope passes.
	wctx := auth.ContextWithClaims(ctx, &auth.Claims{Subject: "writer", Scopes: []string{"write"}})
	_, res, err = s.Before(wctx, "sqlite_write_query", []string{"write"})
	require.NoError(t, err)
	require.Nil(t, res)

	// A disjoint scope does not.
	rctx := auth.ContextWithClaims(ctx, &auth.Claims{Subject: "reader", Scopes: []string{"read"}})
	_, res, err = s.Before(rctx, "sqlite_write_query", []string{"write"})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.True(t, res.IsError)

	// Admin overrides everything.
	_, res, err = s.Before(adminContext(ctx), "sqlite_restore_database", []string{"admin"})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestPipelineRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Requests = 2
	cfg.RateLimit.WindowSeconds = 60
	s := newTestServer(t, cfg)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, res, err := s.Before(ctx, "sqlite_list_tables", nil)
		require.NoError(t, err)
		require.Nil(t, res, "call %d should pass", i)
	}

	_, res, err := s.Before(ctx, "sqlite_list_tables", nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.True(t, res.IsError)
	require.Contains(t, res.Content[0].(*mcp.TextContent).Text, "rate limit")

	s.AuditStore().Flush()
	entries, err := s.AuditStore().Query(audit.QueryOpts{Status: audit.StatusDenied})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "rate_limited", entries[0].Decision)
}

func TestPipelineAuditsCompletedCalls(t *testing.T) {
	cfg := testConfig(t)
	s := newTestServer(t, cfg)

	ctx, res, err := s.Before(context.Background(), "sqlite_list_tables", nil)
	require.NoError(t, err)
	require.Nil(t, res)

	out := &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "[]"}}}
	got, err := s.After(ctx, "sqlite_list_tables", out, nil)
	require.NoError(t, err)
	require.Same(t, out, got)

	s.AuditStore().Flush()
	entries, err := s.AuditStore().Query(audit.QueryOpts{Tool: "sqlite_list_tables"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, audit.StatusOK, entries[0].Status)
	require.Equal(t, "anonymous", entries[0].Subject)
}

func TestResources(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := newTestServer(t, testConfig(t))
	_, err := s.Adapter().Exec(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)")
	require.NoError(t, err)
	cs := connect(ctx, t, s)

	schema, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "db://schema"})
	require.NoError(t, err)
	require.Len(t, schema.Contents, 1)
	require.Contains(t, schema.Contents[0].Text, "CREATE TABLE notes")

	info, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "db://info"})
	require.NoError(t, err)
	require.Len(t, info.Contents, 1)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(info.Contents[0].Text), &body))
	require.Equal(t, "sqlite", body["driver"])
	require.Contains(t, body["tables"], "notes")
}

func TestPrompts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := newTestServer(t, testConfig(t))
	cs := connect(ctx, t, s)

	res, err := cs.GetPrompt(ctx, &mcp.GetPromptParams{
		Name:      "analyze_table",
		Arguments: map[string]string{"table": "users"},
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	require.Contains(t, text, "users")
	require.Contains(t, text, "sqlite_describe_table")

	_, err = cs.GetPrompt(ctx, &mcp.GetPromptParams{Name: "analyze_table"})
	require.Error(t, err, "missing required argument must fail")

	res, err = cs.GetPrompt(ctx, &mcp.GetPromptParams{
		Name:      "query_help",
		Arguments: map[string]string{"goal": "count active users"},
	})
	require.NoError(t, err)
	require.Contains(t, res.Messages[0].Content.(*mcp.TextContent).Text, "count active users")
}

func TestHTTPServerEndpoints(t *testing.T) {
	cfg := testConfig(t)
	s := newTestServer(t, cfg)

	h, err := NewHTTPServer(s, nil, testLogger(t))
	require.NoError(t, err)
	go func() { _ = h.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})

	base := fmt.Sprintf("http://127.0.0.1:%d", h.Port())

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "ok", health["status"])

	resp2, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	body, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "dbmcp")
}

type stubValidator struct{}

func (stubValidator) Validate(_ context.Context, token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, auth.InvalidTokenError("unknown token")
	}
	return &auth.Claims{Subject: "tester", Scopes: []string{"admin"}}, nil
}

func TestHTTPServerAuthGate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.Enabled = true
	cfg.Auth.JWKSURL = "https://issuer.example/jwks.json"
	cfg.Auth.Issuer = "https://issuer.example"
	s := newTestServer(t, cfg)

	_, err := NewHTTPServer(s, nil, testLogger(t))
	require.Error(t, err, "auth enabled requires a validator")

	h, err := NewHTTPServer(s, stubValidator{}, testLogger(t))
	require.NoError(t, err)
	go func() { _ = h.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})

	base := fmt.Sprintf("http://127.0.0.1:%d", h.Port())

	// Protected endpoint without a token: 401 plus a challenge.
	resp, err := http.Post(base+EndpointPath, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")

	// Health stays public.
	resp, err = http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// RFC 9728 discovery metadata is served unauthenticated.
	resp, err = http.Get(base + auth.MetadataPath)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var meta map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
	require.NotEmpty(t, meta["resource"])
}

func TestWatchConfigReloadsFilter(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "dbmcp.yml")

	cfg := testConfig(t)
	cfg.Database.Driver = db.DriverSQLite
	cfg.ToolFilter = "core"
	require.NoError(t, cfg.Save(cfgPath))

	s := newTestServer(t, cfg)
	require.Contains(t, s.Filter().EnabledGroups, toolfilter.GroupCore)
	require.NotContains(t, s.Filter().EnabledGroups, toolfilter.GroupJSON)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.WatchConfig(ctx, cfgPath)
	}()

	// Give the watcher a beat to register before rewriting.
	time.Sleep(100 * time.Millisecond)
	cfg.ToolFilter = "core,json"
	require.NoError(t, cfg.Save(cfgPath))

	require.Eventually(t, func() bool {
		_, ok := s.Filter().EnabledGroups[toolfilter.GroupJSON]
		return ok
	}, 5*time.Second, 50*time.Millisecond, "filter reload never landed")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
