package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neverinfamous/db-mcp/internal/db"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "version: \"1\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Bind != "127.0.0.1" {
		t.Errorf("bind = %q, want 127.0.0.1", cfg.Server.Bind)
	}
	if cfg.Database.Driver != db.DriverSQLite {
		t.Errorf("driver = %q, want sqlite", cfg.Database.Driver)
	}
	if !cfg.Audit.Enabled || cfg.Audit.RetentionDays != 30 {
		t.Errorf("audit defaults = %+v", cfg.Audit)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
version: "1"
server:
  port: 9090
  log_level: debug
database:
  driver: postgres
  dsn: postgres://localhost/dbmcp
tool_filter: "core,json,-drop_table"
auth:
  enabled: true
  jwks_url: https://issuer.example/jwks.json
  public_paths:
    - /health
    - /public/*
rate_limit:
  requests: 10
  window_seconds: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.LogLevel != "debug" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Database.Driver != db.DriverPostgres {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if cfg.ToolFilter != "core,json,-drop_table" {
		t.Errorf("tool_filter = %q", cfg.ToolFilter)
	}
	if !cfg.Auth.Enabled || len(cfg.Auth.PublicPaths) != 2 {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestLoadEnvToolFilterWins(t *testing.T) {
	path := writeConfig(t, "tool_filter: \"core\"\n")
	t.Setenv(EnvToolFilter, "starter,-geo")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ToolFilter != "starter,-geo" {
		t.Errorf("tool_filter = %q, want env value", cfg.ToolFilter)
	}
}

func TestLoadRejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.yaml")
	link := filepath.Join(dir, "link.yaml")
	if err := os.WriteFile(target, []byte("version: \"1\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(link); err == nil {
		t.Fatal("expected error for symlinked config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults valid", func(c *Config) {}, ""},
		{"port zero is os-assigned", func(c *Config) { c.Server.Port = 0 }, ""},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, "invalid port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "invalid port"},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "chatty" }, "invalid log_level"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "unknown database driver"},
		{"sqlite needs path", func(c *Config) { c.Database.Path = "" }, "path is required"},
		{"postgres needs dsn", func(c *Config) {
			c.Database.Driver = db.DriverPostgres
			c.Database.DSN = ""
		}, "dsn is required"},
		{"auth needs jwks", func(c *Config) { c.Auth.Enabled = true }, "jwks_url is required"},
		{"negative rate limit", func(c *Config) { c.RateLimit.Requests = -1 }, "must not be negative"},
		{"audit needs path", func(c *Config) { c.Audit.DBPath = "" }, "db_path is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Defaults()
	cfg.Server.Port = 7070
	cfg.ToolFilter = "full,-admin"

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 7070 || loaded.ToolFilter != "full,-admin" {
		t.Errorf("round trip = %+v", loaded)
	}
}
