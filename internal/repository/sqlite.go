package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name:   "sqlite",
	rebind: func(q string) string { return q },
	schema: `
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			severity_kind TEXT NOT NULL DEFAULT '',
			magnitude REAL,
			depth REAL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			occurred_at INTEGER NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			affected_radius_km REAL,
			created_at INTEGER NOT NULL,
			UNIQUE (type, external_id)
		);

		CREATE TABLE IF NOT EXISTS admin_users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events(occurred_at);
		CREATE INDEX IF NOT EXISTS idx_events_type_occurred_at ON events(type, occurred_at);
	`,
}

func NewSQLiteDB(path string) (*SQLDB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One connection: SQLite allows a single writer and each :memory:
	// connection would otherwise be a separate database.
	db.SetMaxOpenConns(1)

	return newSQLDB(db, sqliteDialect)
}
