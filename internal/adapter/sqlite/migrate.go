package sqlite

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest schema version supported by the migrator.
const SchemaVersion = 1

var schema = []struct {
	name string
	stmt string
}{
	{"facilities table", `
		CREATE TABLE IF NOT EXISTS facilities (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			prefecture TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'new',
			last_event_date TEXT NULL,
			last_checked_at TEXT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`},
	{"events table", `
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			facility_id TEXT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			event_date TEXT NOT NULL,
			event_time TEXT NOT NULL DEFAULT '',
			venue TEXT NOT NULL DEFAULT '',
			event_type TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			source_platform TEXT NOT NULL DEFAULT '',
			source_url TEXT NOT NULL DEFAULT '',
			priority_score INTEGER NOT NULL DEFAULT 0,
			is_online INTEGER NOT NULL DEFAULT 0,
			participants_limit INTEGER NOT NULL DEFAULT 0,
			participants_count INTEGER NOT NULL DEFAULT 0,
			fee TEXT NOT NULL DEFAULT '',
			prefecture TEXT NOT NULL DEFAULT '',
			FOREIGN KEY(facility_id) REFERENCES facilities(id)
		);`},
	{"facility_status_history table", `
		CREATE TABLE IF NOT EXISTS facility_status_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			facility_id TEXT NOT NULL,
			old_status TEXT NOT NULL,
			new_status TEXT NOT NULL,
			changed_at TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			FOREIGN KEY(facility_id) REFERENCES facilities(id)
		);`},
	{"idx_events_facility_date", `CREATE INDEX IF NOT EXISTS idx_events_facility_date ON events(facility_id, event_date);`},
	{"idx_history_facility", `CREATE INDEX IF NOT EXISTS idx_history_facility ON facility_status_history(facility_id, changed_at);`},
}

// Migrate ensures the SQLite schema exists and is upgraded to SchemaVersion.
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	err = db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current)
	if err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}
	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, s := range schema {
		if _, err := tx.Exec(s.stmt); err != nil {
			return fmt.Errorf("migrate: create %s: %w", s.name, err)
		}
	}

	_, err = tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?);`, SchemaVersion)
	if err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit transaction: %w", err)
	}
	return nil
}
