package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// New creates a new database connection pool.
func New(dataSourceName string) (*sql.DB, error) {
	if dir := filepath.Dir(dataSourceName); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("database: failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dataSourceName+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; keeping one connection avoids SQLITE_BUSY
	// between the poller and request handlers.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS servers (
		id TEXT NOT NULL PRIMARY KEY,
		host TEXT NOT NULL,
		port INTEGER NOT NULL,
		secret TEXT NOT NULL,
		label TEXT,
		server_id TEXT, -- identifier reported by the agent
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		first_seen_at DATETIME,
		last_seen_at DATETIME,
		UNIQUE(host, port)
	);

	CREATE TABLE IF NOT EXISTS server_tags (
		server_id TEXT NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
		tag TEXT NOT NULL,
		PRIMARY KEY (server_id, tag)
	);

	-- One normalized snapshot per poll, stored as JSON
	CREATE TABLE IF NOT EXISTS metrics_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		server_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		data_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_metrics_history_timestamp ON metrics_history(timestamp);
	CREATE INDEX IF NOT EXISTS idx_metrics_history_server_ts ON metrics_history(server_id, timestamp);

	-- Availability transitions, append-only
	CREATE TABLE IF NOT EXISTS uptime_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		server_id TEXT NOT NULL,
		event_type TEXT NOT NULL CHECK (event_type IN ('online', 'offline')),
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_uptime_events_server_ts ON uptime_events(server_id, timestamp);
	`
	_, err := db.Exec(sqlStmt)
	return err
}
