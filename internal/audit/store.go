// Package audit persists a record of every tool call to a SQLite log,
// written asynchronously so auditing never blocks the call path.
package audit

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	subject TEXT NOT NULL,
	tool TEXT NOT NULL,
	status TEXT NOT NULL,
	decision TEXT NOT NULL,
	latency_ms INTEGER
);

CREATE INDEX IF NOT EXISTS idx_audit_status ON audit_log(status);
CREATE INDEX IF NOT EXISTS idx_audit_tool ON audit_log(tool);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);
`

// Entry statuses.
const (
	StatusOK      = "ok"      // handler ran and returned a result
	StatusError   = "error"   // handler ran and reported a tool error
	StatusDenied  = "denied"  // scope or rate-limit gate refused the call
	StatusBlocked = "blocked" // guard scan blocked the result
)

// Entry is a single audit record.
type Entry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"` // RFC 3339
	Subject   string `json:"subject"`   // token subject, or "anonymous"
	Tool      string `json:"tool"`
	Status    string `json:"status"`
	Decision  string `json:"decision,omitempty"` // gate or guard detail
	LatencyMs int64  `json:"latency_ms"`

	// flushMarker turns an entry into a write-loop sync point. Never
	// persisted.
	flushMarker chan struct{}
}

// QueryOpts filter audit log queries.
type QueryOpts struct {
	Status  string
	Subject string
	Tool    string
	Since   string // RFC 3339 lower bound
	Limit   int
}

// Store manages the SQLite audit log.
type Store struct {
	db     *sql.DB
	writes chan Entry
	done   chan struct{}
	logger *slog.Logger
}

// NewStore opens (or creates) the SQLite audit database and starts the
// async write loop.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}

	// WAL keeps reads cheap while the write loop appends
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("setting WAL mode: %w (also: close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("creating schema: %w (also: close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &Store{
		db:     db,
		writes: make(chan Entry, 256),
		done:   make(chan struct{}),
		logger: logger,
	}

	go s.writeLoop()
	return s, nil
}

// Log enqueues an audit entry for async writing. Entries are dropped,
// with a warning, if the buffer is full.
func (s *Store) Log(entry Entry) {
	select {
	case s.writes <- entry:
	default:
		s.logger.Warn("audit write buffer full, dropping entry", "id", entry.ID, "tool", entry.Tool)
	}
}

// Query returns audit entries matching the given filters, newest first.
func (s *Store) Query(opts QueryOpts) ([]Entry, error) {
	query := "SELECT id, timestamp, subject, tool, status, decision, latency_ms FROM audit_log WHERE 1=1"
	var args []any

	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, opts.Status)
	}
	if opts.Subject != "" {
		query += " AND subject = ?"
		args = append(args, opts.Subject)
	}
	if opts.Tool != "" {
		query += " AND tool = ?"
		args = append(args, opts.Tool)
	}
	if opts.Since != "" {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since)
	}

	query += " ORDER BY timestamp DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	} else {
		query += " LIMIT 50"
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var decision sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Subject, &e.Tool, &e.Status, &decision, &e.LatencyMs); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		e.Decision = decision.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Purge deletes entries older than the retention window and returns the
// number removed. A zero or negative retention keeps everything.
func (s *Store) Purge(retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339)
	res, err := s.db.Exec("DELETE FROM audit_log WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging audit log: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Flush blocks until every entry enqueued before the call has been
// written. Intended for tests and shutdown paths.
func (s *Store) Flush() {
	marker := make(chan struct{})
	s.writes <- Entry{flushMarker: marker}
	<-marker
}

// Close flushes pending writes and closes the database.
func (s *Store) Close() error {
	close(s.writes)
	<-s.done
	return s.db.Close()
}

func (s *Store) writeLoop() {
	defer close(s.done)
	for entry := range s.writes {
		if entry.flushMarker != nil {
			close(entry.flushMarker)
			continue
		}
		_, err := s.db.Exec(
			`INSERT INTO audit_log (id, timestamp, subject, tool, status, decision, latency_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.Timestamp, entry.Subject, entry.Tool, entry.Status, entry.Decision, entry.LatencyMs,
		)
		if err != nil {
			s.logger.Error("audit write failed", "id", entry.ID, "error", err)
		}
	}
}
