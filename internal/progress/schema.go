package progress

import "database/sql"

const ddl = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS units (
    name         TEXT PRIMARY KEY,
    converted    INTEGER NOT NULL DEFAULT 0,
    output_path  TEXT NOT NULL DEFAULT '',
    converted_at DATETIME
);

CREATE TABLE IF NOT EXISTS examples (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL UNIQUE,
    source     TEXT NOT NULL,
    code       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_examples USING vec0(
    example_id INTEGER PRIMARY KEY,
    embedding float[768]
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// initSchema creates the tables if they don't exist.
func initSchema(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
