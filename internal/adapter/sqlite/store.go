// Package sqlite is a single-file store for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/repository"
)

// Store provides SQLite-backed persistence for facilities, events and status history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ repository.FacilityRepository = (*Store)(nil)
	_ repository.EventRepository    = (*Store)(nil)
)

// Open opens (or creates) the database at path and migrates it. Use
// ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db)
}

// New returns a Store bound to an existing, migrated database handle.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(entity.DateLayout)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseDate(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(entity.DateLayout, v.String)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", v.String, err)
	}
	return &t, nil
}

func parseTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", v.String, err)
	}
	return &t, nil
}

func (s *Store) UpsertFacility(ctx context.Context, f *entity.Facility) error {
	status := f.Status
	if status == "" {
		status = entity.StatusNew
	}
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO facilities (id, name, prefecture, city, address, website, status, last_event_date, last_checked_at, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			prefecture = excluded.prefecture,
			city = excluded.city,
			address = excluded.address,
			website = excluded.website,
			last_event_date = COALESCE(excluded.last_event_date, facilities.last_event_date),
			last_checked_at = COALESCE(excluded.last_checked_at, facilities.last_checked_at),
			notes = excluded.notes,
			updated_at = excluded.updated_at;`,
		f.ID, f.Name, f.Prefecture, f.City, f.Address, f.Website, string(status),
		formatDate(f.LastEventDate), formatTime(f.LastCheckedAt), f.Notes, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert facility: %w", err)
	}
	return nil
}

const facilityColumns = `id, name, prefecture, city, address, website, status, last_event_date, last_checked_at, notes, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFacility(row scanner) (*entity.Facility, error) {
	var f entity.Facility
	var status, created, updated string
	var lastEvent, lastChecked sql.NullString
	if err := row.Scan(&f.ID, &f.Name, &f.Prefecture, &f.City, &f.Address, &f.Website, &status,
		&lastEvent, &lastChecked, &f.Notes, &created, &updated); err != nil {
		return nil, err
	}
	f.Status = entity.FacilityStatus(status)

	var err error
	if f.LastEventDate, err = parseDate(lastEvent); err != nil {
		return nil, err
	}
	if f.LastCheckedAt, err = parseTime(lastChecked); err != nil {
		return nil, err
	}
	if t, err := parseTime(sql.NullString{String: created, Valid: true}); err == nil && t != nil {
		f.CreatedAt = *t
	}
	if t, err := parseTime(sql.NullString{String: updated, Valid: true}); err == nil && t != nil {
		f.UpdatedAt = *t
	}
	return &f, nil
}

func (s *Store) GetFacility(ctx context.Context, id string) (*entity.Facility, error) {
	f, err := scanFacility(s.db.QueryRowContext(ctx, `SELECT `+facilityColumns+` FROM facilities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get facility: %w", err)
	}
	return f, nil
}

func (s *Store) ListFacilities(ctx context.Context, status *entity.FacilityStatus) ([]*entity.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	defer rows.Close()

	var out []*entity.Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, fmt.Errorf("list facilities: scan: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) GetLatestEventDate(ctx context.Context, facilityID string) (*time.Time, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(event_date) FROM events WHERE facility_id = ?`, facilityID).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("latest event date: %w", err)
	}
	return parseDate(latest)
}

func (s *Store) UpdateStatus(ctx context.Context, facilityID string, expected, newStatus entity.FacilityStatus, lastEventDate *time.Time, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update status: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := s.timestamp()
	res, err := tx.ExecContext(ctx,
		`UPDATE facilities SET status = ?, last_event_date = COALESCE(?, last_event_date), updated_at = ? WHERE id = ? AND status = ?`,
		string(newStatus), formatDate(lastEventDate), now, facilityID, string(expected))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n == 0 {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM facilities WHERE id = ?`, facilityID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update status: read: %w", err)
		}
		return fmt.Errorf("%w: %s is %s, expected %s", repository.ErrStatusConflict, facilityID, current, expected)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO facility_status_history (facility_id, old_status, new_status, changed_at, reason) VALUES (?, ?, ?, ?, ?)`,
		facilityID, string(expected), string(newStatus), now, reason); err != nil {
		return fmt.Errorf("update status: append history: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ListTransitions(ctx context.Context, facilityID string) ([]entity.StatusTransition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, facility_id, old_status, new_status, changed_at, reason
		FROM facility_status_history WHERE facility_id = ? ORDER BY id`, facilityID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []entity.StatusTransition
	for rows.Next() {
		var t entity.StatusTransition
		var oldStatus, newStatus, changed string
		if err := rows.Scan(&t.ID, &t.FacilityID, &oldStatus, &newStatus, &changed, &t.Reason); err != nil {
			return nil, fmt.Errorf("list transitions: scan: %w", err)
		}
		t.OldStatus = entity.FacilityStatus(oldStatus)
		t.NewStatus = entity.FacilityStatus(newStatus)
		if ts, err := time.Parse(time.RFC3339Nano, changed); err == nil {
			t.Timestamp = ts
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpsertEvent(ctx context.Context, e *entity.EventRecord) error {
	var facilityID any
	if e.FacilityID != "" {
		facilityID = e.FacilityID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, facility_id, title, description, event_date, event_time, venue, event_type,
			source, source_platform, source_url, priority_score, is_online, participants_limit,
			participants_count, fee, prefecture)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			facility_id = COALESCE(excluded.facility_id, events.facility_id),
			title = excluded.title,
			description = excluded.description,
			event_date = excluded.event_date,
			event_time = excluded.event_time,
			venue = excluded.venue,
			event_type = excluded.event_type,
			source = excluded.source,
			source_platform = excluded.source_platform,
			source_url = excluded.source_url,
			priority_score = excluded.priority_score,
			is_online = excluded.is_online,
			participants_limit = excluded.participants_limit,
			participants_count = excluded.participants_count,
			fee = excluded.fee,
			prefecture = excluded.prefecture;`,
		e.ID, facilityID, e.Title, e.Description, e.DateString(), e.Time, e.Venue, e.EventType,
		e.Source, e.SourcePlatform, e.SourceURL, e.PriorityScore, e.IsOnline, e.ParticipantsLimit,
		e.ParticipantsCount, e.Fee, e.Prefecture,
	)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, filter repository.EventFilter) ([]*entity.EventRecord, error) {
	var where []string
	var args []any
	if filter.FacilityID != "" {
		where = append(where, `facility_id = ?`)
		args = append(args, filter.FacilityID)
	}
	if filter.MinScore != nil {
		where = append(where, `priority_score >= ?`)
		args = append(args, *filter.MinScore)
	}

	query := `
		SELECT id, COALESCE(facility_id, ''), title, description, event_date, event_time, venue, event_type,
			source, source_platform, source_url, priority_score, is_online, participants_limit,
			participants_count, fee, prefecture
		FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY event_date DESC, priority_score DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []*entity.EventRecord
	for rows.Next() {
		var e entity.EventRecord
		var date string
		if err := rows.Scan(&e.ID, &e.FacilityID, &e.Title, &e.Description, &date, &e.Time, &e.Venue,
			&e.EventType, &e.Source, &e.SourcePlatform, &e.SourceURL, &e.PriorityScore, &e.IsOnline,
			&e.ParticipantsLimit, &e.ParticipantsCount, &e.Fee, &e.Prefecture); err != nil {
			return nil, fmt.Errorf("list events: scan: %w", err)
		}
		if e.Date, err = time.Parse(entity.DateLayout, date); err != nil {
			return nil, fmt.Errorf("list events: parse date %q: %w", date, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
