// Package sessiondb is the SQLite implementation of the session gateway.
package sessiondb

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/tactica/internal/gateway"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	video_file_name TEXT NOT NULL DEFAULT '',
	video_duration  REAL NOT NULL DEFAULT 0,
	canvas_width    INTEGER NOT NULL DEFAULT 0,
	canvas_height   INTEGER NOT NULL DEFAULT 0,
	checksum        TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS clips (
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	id          TEXT NOT NULL,
	position    INTEGER NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL DEFAULT '',
	start_time  REAL NOT NULL,
	end_time    REAL NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (session_id, id)
);

CREATE TABLE IF NOT EXISTS annotations (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	id         TEXT NOT NULL,
	position   INTEGER NOT NULL,
	type       TEXT NOT NULL,
	clip_id    TEXT NOT NULL DEFAULT '',
	start_time REAL NOT NULL,
	end_time   REAL NOT NULL,
	body       TEXT NOT NULL,
	PRIMARY KEY (session_id, id)
);

CREATE INDEX IF NOT EXISTS idx_annotations_clip ON annotations(session_id, clip_id);
`

// DB wraps a sql.DB with session operations.
type DB struct {
	conn *sql.DB
}

// Verify *DB satisfies gateway.Gateway at compile time.
var _ gateway.Gateway = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sessiondb: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sessiondb: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sessiondb: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
