package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/repository"
)

// FacilityRepoImpl provides a concrete implementation for the FacilityRepository interface using PostgreSQL.
type FacilityRepoImpl struct {
	db *pgxpool.Pool
}

// NewFacilityRepo creates a new instance of FacilityRepoImpl.
func NewFacilityRepo(db *pgxpool.Pool) *FacilityRepoImpl {
	return &FacilityRepoImpl{db: db}
}

var _ repository.FacilityRepository = (*FacilityRepoImpl)(nil)

const facilityColumns = `id, name, prefecture, city, address, website, status, last_event_date, last_checked_at, notes, created_at, updated_at`

// UpsertFacility stores the facility. The status column is only written on insert.
func (r *FacilityRepoImpl) UpsertFacility(ctx context.Context, f *entity.Facility) error {
	status := f.Status
	if status == "" {
		status = entity.StatusNew
	}
	query := `
		INSERT INTO facilities (id, name, prefecture, city, address, website, status, last_event_date, last_checked_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			prefecture = EXCLUDED.prefecture,
			city = EXCLUDED.city,
			address = EXCLUDED.address,
			website = EXCLUDED.website,
			last_event_date = COALESCE(EXCLUDED.last_event_date, facilities.last_event_date),
			last_checked_at = COALESCE(EXCLUDED.last_checked_at, facilities.last_checked_at),
			notes = EXCLUDED.notes,
			updated_at = NOW();
	`
	_, err := r.db.Exec(ctx, query,
		f.ID,
		f.Name,
		f.Prefecture,
		f.City,
		f.Address,
		f.Website,
		string(status),
		f.LastEventDate,
		f.LastCheckedAt,
		f.Notes,
	)
	return err
}

func scanFacility(row pgx.Row) (*entity.Facility, error) {
	var f entity.Facility
	var status string
	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Prefecture,
		&f.City,
		&f.Address,
		&f.Website,
		&status,
		&f.LastEventDate,
		&f.LastCheckedAt,
		&f.Notes,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Status = entity.FacilityStatus(status)
	return &f, nil
}

func (r *FacilityRepoImpl) GetFacility(ctx context.Context, id string) (*entity.Facility, error) {
	f, err := scanFacility(r.db.QueryRow(ctx, `SELECT `+facilityColumns+` FROM facilities WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return f, err
}

func (r *FacilityRepoImpl) ListFacilities(ctx context.Context, status *entity.FacilityStatus) ([]*entity.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities`
	var args []any
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facilities []*entity.Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		facilities = append(facilities, f)
	}
	return facilities, rows.Err()
}

func (r *FacilityRepoImpl) GetLatestEventDate(ctx context.Context, facilityID string) (*time.Time, error) {
	var latest *time.Time
	err := r.db.QueryRow(ctx, `SELECT MAX(event_date) FROM events WHERE facility_id = $1`, facilityID).Scan(&latest)
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// UpdateStatus changes the status and appends the history row in one
// transaction, provided the row still holds the expected status.
func (r *FacilityRepoImpl) UpdateStatus(ctx context.Context, facilityID string, expected, newStatus entity.FacilityStatus, lastEventDate *time.Time, reason string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var oldStatus string
	err = tx.QueryRow(ctx, `SELECT status FROM facilities WHERE id = $1 FOR UPDATE`, facilityID).Scan(&oldStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	if oldStatus != string(expected) {
		return fmt.Errorf("%w: %s is %s, expected %s", repository.ErrStatusConflict, facilityID, oldStatus, expected)
	}

	_, err = tx.Exec(ctx,
		`UPDATE facilities SET status = $2, last_event_date = COALESCE($3, last_event_date), updated_at = NOW() WHERE id = $1`,
		facilityID, string(newStatus), lastEventDate)
	if err != nil {
		return fmt.Errorf("failed to update facility status: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO facility_status_history (facility_id, old_status, new_status, reason) VALUES ($1, $2, $3, $4)`,
		facilityID, oldStatus, string(newStatus), reason)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *FacilityRepoImpl) ListTransitions(ctx context.Context, facilityID string) ([]entity.StatusTransition, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, facility_id, old_status, new_status, changed_at, reason
		FROM facility_status_history
		WHERE facility_id = $1
		ORDER BY changed_at, id`, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.StatusTransition
	for rows.Next() {
		var t entity.StatusTransition
		var oldStatus, newStatus string
		if err := rows.Scan(&t.ID, &t.FacilityID, &oldStatus, &newStatus, &t.Timestamp, &t.Reason); err != nil {
			return nil, err
		}
		t.OldStatus = entity.FacilityStatus(oldStatus)
		t.NewStatus = entity.FacilityStatus(newStatus)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *FacilityRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
