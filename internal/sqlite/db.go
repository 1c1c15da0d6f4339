package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Ledger writes come from many scheduler goroutines; SQLite serializes them anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{db}, nil
}

// Schema is the ledger schema. It is safe to apply repeatedly.
const Schema = `
-- Finalized sessions, written once when a session's scheduler terminates
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    label TEXT NOT NULL,
    accepted INTEGER NOT NULL DEFAULT 0,
    rejected INTEGER NOT NULL DEFAULT 0,
    sampled INTEGER NOT NULL DEFAULT 0,
    sampled_items TEXT NOT NULL DEFAULT '[]',
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP,
    recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    CHECK (sampled <= accepted + rejected)
);
CREATE INDEX IF NOT EXISTS idx_sessions_label ON sessions(label);
`

// RunMigrations applies the ledger schema
func (db *DB) RunMigrations() error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
