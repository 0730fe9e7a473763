package db

import (
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// openSQLiteWASM opens the WASM SQLite backend (SQLite compiled to
// WebAssembly, run under wazero). Functionally equivalent to the native
// backend; useful where the modernc build is unavailable for a platform.
func openSQLiteWASM(path string) (Adapter, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite-wasm database: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting WAL mode: %w", err)
		}
	}
	return &sqlAdapter{db: db, driver: DriverSQLiteWASM, path: path}, nil
}
