package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string
}

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	name       TEXT PRIMARY KEY,
	game       TEXT NOT NULL DEFAULT '',
	decks      INTEGER NOT NULL DEFAULT 0,
	first_seen INTEGER NOT NULL DEFAULT 0,
	last_seen  INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS edges (
	card1          TEXT NOT NULL,
	card2          TEXT NOT NULL,
	count_set      INTEGER NOT NULL,
	count_multiset INTEGER NOT NULL,
	PRIMARY KEY (card1, card2),
	CHECK (card1 <= card2),
	FOREIGN KEY (card1) REFERENCES nodes(name) ON DELETE CASCADE,
	FOREIGN KEY (card2) REFERENCES nodes(name) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_edges_card2 ON edges(card2);
CREATE TABLE IF NOT EXISTS decks (
	id TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS embeddings (
	name   TEXT NOT NULL,
	space  TEXT NOT NULL,
	vector BLOB NOT NULL,
	PRIMARY KEY (name, space)
);
`

// OpenDB opens a SQLite database with WAL mode and foreign keys enabled,
// creating the schema if it is missing.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	conn.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{conn: conn, Path: path}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// HasGraph reports whether a graph has ever been written to this database.
func (d *DB) HasGraph(ctx context.Context) (bool, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM meta WHERE key = ?", MetaLastUpdate).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
