// Package db provides the database adapters behind the MCP tools. Adapters
// are thin: they open a database/sql handle for the configured driver and
// shape query results for tool output.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Driver names accepted in configuration.
const (
	DriverSQLite     = "sqlite"      // modernc.org/sqlite, pure Go native build
	DriverSQLiteWASM = "sqlite-wasm" // ncruces/go-sqlite3, wazero WASM build
	DriverPostgres   = "postgres"    // jackc/pgx via database/sql
)

// ResultSet holds the rows of a query in tool-output shape.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Count   int      `json:"count"`
}

// ExecResult reports the effect of a statement.
type ExecResult struct {
	RowsAffected int64 `json:"rows_affected"`
	LastInsertID int64 `json:"last_insert_id,omitempty"`
}

// Adapter is the query surface the tool handlers depend on.
type Adapter interface {
	Query(ctx context.Context, query string, args ...any) (*ResultSet, error)
	Exec(ctx context.Context, query string, args ...any) (ExecResult, error)
	Ping(ctx context.Context) error
	DriverName() string
	Path() string
	Close() error
}

// Options configure an adapter.
type Options struct {
	Driver string
	Path   string // file path for sqlite drivers
	DSN    string // connection string for postgres
}

// Open creates the adapter for the configured driver.
func Open(opts Options) (Adapter, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return openSQLite(opts.Path)
	case DriverSQLiteWASM:
		return openSQLiteWASM(opts.Path)
	case DriverPostgres:
		return openPostgres(opts.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
	}
}

// sqlAdapter implements Adapter over a database/sql handle.
type sqlAdapter struct {
	db     *sql.DB
	driver string
	path   string
}

func (a *sqlAdapter) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectRows(rows)
}

func (a *sqlAdapter) Exec(ctx context.Context, query string, args ...any) (ExecResult, error) {
	res, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec: %w", err)
	}
	var out ExecResult
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

func (a *sqlAdapter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.db.PingContext(ctx)
}

func (a *sqlAdapter) DriverName() string { return a.driver }
func (a *sqlAdapter) Path() string       { return a.path }
func (a *sqlAdapter) Close() error       { return a.db.Close() }

// collectRows materializes rows as column names plus untyped values.
// Byte slices are converted to strings so JSON output stays readable.
func collectRows(rows *sql.Rows) (*ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	rs := &ResultSet{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	rs.Count = len(rs.Rows)
	return rs, nil
}
