package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/repository"
)

// EventRepoImpl provides a concrete implementation for the EventRepository interface using PostgreSQL.
type EventRepoImpl struct {
	db *pgxpool.Pool
}

// NewEventRepo creates a new instance of EventRepoImpl.
func NewEventRepo(db *pgxpool.Pool) *EventRepoImpl {
	return &EventRepoImpl{db: db}
}

var _ repository.EventRepository = (*EventRepoImpl)(nil)

// UpsertEvent stores or updates an event keyed by its id.
func (r *EventRepoImpl) UpsertEvent(ctx context.Context, e *entity.EventRecord) error {
	query := `
		INSERT INTO events (id, facility_id, title, description, event_date, event_time, venue, event_type,
			source, source_platform, source_url, priority_score, is_online, participants_limit,
			participants_count, fee, prefecture)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			facility_id = COALESCE(EXCLUDED.facility_id, events.facility_id),
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			event_date = EXCLUDED.event_date,
			event_time = EXCLUDED.event_time,
			venue = EXCLUDED.venue,
			event_type = EXCLUDED.event_type,
			source = EXCLUDED.source,
			source_platform = EXCLUDED.source_platform,
			source_url = EXCLUDED.source_url,
			priority_score = EXCLUDED.priority_score,
			is_online = EXCLUDED.is_online,
			participants_limit = EXCLUDED.participants_limit,
			participants_count = EXCLUDED.participants_count,
			fee = EXCLUDED.fee,
			prefecture = EXCLUDED.prefecture;
	`
	_, err := r.db.Exec(ctx, query,
		e.ID,
		e.FacilityID,
		e.Title,
		e.Description,
		e.Date,
		e.Time,
		e.Venue,
		e.EventType,
		e.Source,
		e.SourcePlatform,
		e.SourceURL,
		e.PriorityScore,
		e.IsOnline,
		e.ParticipantsLimit,
		e.ParticipantsCount,
		e.Fee,
		e.Prefecture,
	)
	return err
}

// ListEvents returns events newest first, highest score first within a day.
func (r *EventRepoImpl) ListEvents(ctx context.Context, filter repository.EventFilter) ([]*entity.EventRecord, error) {
	query := `
		SELECT id, COALESCE(facility_id, ''), title, description, event_date, event_time, venue, event_type,
			source, source_platform, source_url, priority_score, is_online, participants_limit,
			participants_count, fee, prefecture
		FROM events WHERE TRUE`
	var args []any
	if filter.FacilityID != "" {
		args = append(args, filter.FacilityID)
		query += fmt.Sprintf(` AND facility_id = $%d`, len(args))
	}
	if filter.MinScore != nil {
		args = append(args, *filter.MinScore)
		query += fmt.Sprintf(` AND priority_score >= $%d`, len(args))
	}
	query += ` ORDER BY event_date DESC, priority_score DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*entity.EventRecord
	for rows.Next() {
		var e entity.EventRecord
		if err := rows.Scan(
			&e.ID,
			&e.FacilityID,
			&e.Title,
			&e.Description,
			&e.Date,
			&e.Time,
			&e.Venue,
			&e.EventType,
			&e.Source,
			&e.SourcePlatform,
			&e.SourceURL,
			&e.PriorityScore,
			&e.IsOnline,
			&e.ParticipantsLimit,
			&e.ParticipantsCount,
			&e.Fee,
			&e.Prefecture,
		); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
