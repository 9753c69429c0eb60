package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS run_metrics (
			run_date TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS audit_rows (
			run_date TEXT NOT NULL,
			table_name TEXT NOT NULL,
			row_index INTEGER NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (run_date, table_name, row_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_rows_table ON audit_rows(table_name)`,

		`CREATE TABLE IF NOT EXISTS run_summaries (
			run_date TEXT PRIMARY KEY,
			summary TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
