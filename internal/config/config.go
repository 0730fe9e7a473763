// Package config loads the dbmcp YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/safefile"
)

// maxConfigBytes bounds config reads; anything bigger is a mistake.
const maxConfigBytes = 1 << 20

// EnvToolFilter overrides the tool_filter setting when present.
const EnvToolFilter = "DBMCP_TOOL_FILTER"

// Config is the top-level dbmcp configuration.
type Config struct {
	Version    string          `yaml:"version"`
	Server     ServerConfig    `yaml:"server"`
	Database   DatabaseConfig  `yaml:"database"`
	ToolFilter string          `yaml:"tool_filter,omitempty"`
	Auth       AuthConfig      `yaml:"auth,omitempty"`
	RateLimit  RateLimitConfig `yaml:"rate_limit,omitempty"`
	Guard      GuardConfig     `yaml:"guard,omitempty"`
	Audit      AuditConfig     `yaml:"audit,omitempty"`
}

// ServerConfig holds the HTTP transport settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	Bind     string `yaml:"bind"` // Address to bind (default: 127.0.0.1)
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig selects and configures the backing database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`          // sqlite, sqlite-wasm, postgres
	Path   string `yaml:"path,omitempty"`  // sqlite file path
	DSN    string `yaml:"dsn,omitempty"`   // postgres connection string
}

// AuthConfig configures the OAuth resource-server gate.
type AuthConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Issuer      string   `yaml:"issuer,omitempty"`
	JWKSURL     string   `yaml:"jwks_url,omitempty"`
	Audience    string   `yaml:"audience,omitempty"`
	Resource    string   `yaml:"resource,omitempty"` // canonical resource URI for RFC 9728 metadata
	PublicPaths []string `yaml:"public_paths,omitempty"`
}

// RateLimitConfig bounds per-subject call rates. An empty RedisAddr keeps
// limiting in process.
type RateLimitConfig struct {
	Requests      int    `yaml:"requests"`
	WindowSeconds int    `yaml:"window_seconds"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
}

// GuardConfig configures tool-result scanning.
type GuardConfig struct {
	Enabled        bool   `yaml:"enabled"`
	CustomRulesDir string `yaml:"custom_rules_dir,omitempty"`
}

// AuditConfig configures the tool call audit log.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path,omitempty"`
	RetentionDays int    `yaml:"retention_days"` // auto-purge entries older than N days (0 = keep forever)
}

// Defaults returns a config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			Port:     8080,
			Bind:     "127.0.0.1",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Driver: db.DriverSQLite,
			Path:   "./dbmcp.db",
		},
		RateLimit: RateLimitConfig{
			Requests:      120,
			WindowSeconds: 60,
		},
		Guard: GuardConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Enabled:       true,
			DBPath:        "./dbmcp-audit.db",
			RetentionDays: 30,
		},
	}
}

// Load reads and parses a dbmcp config file. The DBMCP_TOOL_FILTER
// environment variable, when set, overrides the file's tool_filter.
func Load(path string) (*Config, error) {
	data, err := safefile.ReadFileMax(path, maxConfigBytes)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply zero-value defaults after unmarshal
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = "127.0.0.1"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = db.DriverSQLite
	}

	if env := os.Getenv(EnvToolFilter); env != "" {
		cfg.ToolFilter = env
	}

	return cfg, nil
}

// Save writes the config to a YAML file at the given path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := safefile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks that the config is consistent.
func (c *Config) Validate() error {
	// Port 0 asks the OS for an ephemeral port
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.Server.LogLevel)
	}
	switch c.Database.Driver {
	case db.DriverSQLite, db.DriverSQLiteWASM:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for driver %q", c.Database.Driver)
		}
	case db.DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Auth.Enabled && c.Auth.JWKSURL == "" {
		return fmt.Errorf("auth.jwks_url is required when auth is enabled")
	}
	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("rate_limit.requests must not be negative")
	}
	if c.Audit.Enabled && c.Audit.DBPath == "" {
		return fmt.Errorf("audit.db_path is required when audit is enabled")
	}
	return nil
}
