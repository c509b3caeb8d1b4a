package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaVersion is the latest schema version applied by Migrate.
const SchemaVersion = 1

var schema = []string{
	`CREATE TABLE IF NOT EXISTS facilities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		prefecture TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'new',
		last_event_date DATE NULL,
		last_checked_at TIMESTAMPTZ NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		facility_id TEXT NULL REFERENCES facilities(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		event_date DATE NOT NULL,
		event_time TEXT NOT NULL DEFAULT '',
		venue TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		source_platform TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL DEFAULT '',
		priority_score INTEGER NOT NULL DEFAULT 0,
		is_online BOOLEAN NOT NULL DEFAULT FALSE,
		participants_limit INTEGER NOT NULL DEFAULT 0,
		participants_count INTEGER NOT NULL DEFAULT 0,
		fee TEXT NOT NULL DEFAULT '',
		prefecture TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS facility_status_history (
		id BIGSERIAL PRIMARY KEY,
		facility_id TEXT NOT NULL REFERENCES facilities(id),
		old_status TEXT NOT NULL,
		new_status TEXT NOT NULL,
		changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		reason TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_facility_date ON events(facility_id, event_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_events_score ON events(priority_score DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_history_facility ON facility_status_history(facility_id, changed_at)`,
}

// Migrate creates the schema when the database is older than SchemaVersion.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}
	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, SchemaVersion); err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}
	return tx.Commit(ctx)
}
