package db

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// openPostgres opens a PostgreSQL backend through pgx's database/sql driver.
// The sqlite_ tool prefix is kept on tool names regardless of backend; the
// filter's base-name matching keeps filter strings adapter-agnostic.
func openPostgres(dsn string) (Adapter, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres driver requires a dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	return &sqlAdapter{db: db, driver: DriverPostgres, path: dsn}, nil
}
