package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/office-hours-api/internal/models"
)

const availabilityColumns = `id, professor_id, to_char(date, 'YYYY-MM-DD') AS date, time_slot, is_booked, created_at, updated_at`

// AvailabilityRepository persists professor slots in Postgres.
type AvailabilityRepository struct {
	sqlStore
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB, opts ...Option) *AvailabilityRepository {
	return &AvailabilityRepository{sqlStore: newSQLStore(db, opts)}
}

// Create inserts a new free slot and fills generated fields on the model.
func (r *AvailabilityRepository) Create(ctx context.Context, slot *models.Availability) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := r.now()
	slot.IsBooked = false
	slot.CreatedAt = now
	slot.UpdatedAt = now

	const query = `INSERT INTO availabilities (id, professor_id, date, time_slot, is_booked, created_at, updated_at)
VALUES ($1, $2, $3, $4, FALSE, $5, $5)`
	if _, err := r.db.ExecContext(ctx, query, slot.ID, slot.ProfessorID, slot.Date, slot.TimeSlot, now); err != nil {
		return fmt.Errorf("create availability: %w", err)
	}
	return nil
}

// FindFree returns the oldest free slot matching the tuple or sql.ErrNoRows.
func (r *AvailabilityRepository) FindFree(ctx context.Context, professorID, date, timeSlot string) (*models.Availability, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + availabilityColumns + ` FROM availabilities
WHERE professor_id = $1 AND date = $2 AND time_slot = $3 AND is_booked = FALSE
ORDER BY created_at ASC
LIMIT 1`
	var slot models.Availability
	if err := r.db.GetContext(ctx, &slot, query, professorID, date, timeSlot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find free availability: %w", err)
	}
	return &slot, nil
}

// ReserveFree flips one free slot matching the tuple to booked in a single
// conditional statement and returns it. Concurrent callers never receive the
// same row; when nothing is free sql.ErrNoRows is returned.
func (r *AvailabilityRepository) ReserveFree(ctx context.Context, professorID, date, timeSlot string) (*models.Availability, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `UPDATE availabilities SET is_booked = TRUE, updated_at = $4
WHERE id = (
	SELECT id FROM availabilities
	WHERE professor_id = $1 AND date = $2 AND time_slot = $3 AND is_booked = FALSE
	ORDER BY created_at ASC
	LIMIT 1
	FOR UPDATE SKIP LOCKED
) AND is_booked = FALSE
RETURNING ` + availabilityColumns
	var slot models.Availability
	if err := r.db.GetContext(ctx, &slot, query, professorID, date, timeSlot, r.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("reserve availability: %w", err)
	}
	return &slot, nil
}

// Reserve is a compare-and-swap on is_booked for a known slot.
func (r *AvailabilityRepository) Reserve(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE availabilities SET is_booked = TRUE, updated_at = $2 WHERE id = $1 AND is_booked = FALSE`
	return r.flip(ctx, "reserve availability", query, id)
}

// Release frees a booked slot by id. It reports false when the slot is
// missing or already free.
func (r *AvailabilityRepository) Release(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE availabilities SET is_booked = FALSE, updated_at = $2 WHERE id = $1 AND is_booked = TRUE`
	return r.flip(ctx, "release availability", query, id)
}

func (r *AvailabilityRepository) flip(ctx context.Context, op, query, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, id, r.now())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return affected == 1, nil
}

// ReleaseByTuple frees the oldest booked slot located by professor, date and
// label. It reports false when no booked row matched.
func (r *AvailabilityRepository) ReleaseByTuple(ctx context.Context, professorID, date, timeSlot string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const query = `UPDATE availabilities SET is_booked = FALSE, updated_at = $4
WHERE is_booked = TRUE AND id = (
	SELECT id FROM availabilities
	WHERE professor_id = $1 AND date = $2 AND time_slot = $3 AND is_booked = TRUE
	ORDER BY created_at ASC
	LIMIT 1
)`
	res, err := r.db.ExecContext(ctx, query, professorID, date, timeSlot, r.now())
	if err != nil {
		return false, fmt.Errorf("release availability by tuple: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release availability by tuple rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListFree returns the professor's free slots ordered by date.
func (r *AvailabilityRepository) ListFree(ctx context.Context, professorID string) ([]models.Availability, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + availabilityColumns + ` FROM availabilities
WHERE professor_id = $1 AND is_booked = FALSE
ORDER BY date ASC, created_at ASC`
	slots := []models.Availability{}
	if err := r.db.SelectContext(ctx, &slots, query, professorID); err != nil {
		return nil, fmt.Errorf("list free availabilities: %w", err)
	}
	return slots, nil
}
