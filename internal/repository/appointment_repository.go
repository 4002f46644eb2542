package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/office-hours-api/internal/models"
)

const appointmentColumns = `id, professor_id, student_id, availability_id, to_char(date, 'YYYY-MM-DD') AS date, time_slot, status, rescheduled_from_id, created_at, updated_at`

// AppointmentRepository persists appointments in Postgres.
type AppointmentRepository struct {
	sqlStore
}

// NewAppointmentRepository constructs the repository.
func NewAppointmentRepository(db *sqlx.DB, opts ...Option) *AppointmentRepository {
	return &AppointmentRepository{sqlStore: newSQLStore(db, opts)}
}

// Create inserts the appointment, assigning id and timestamps.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := r.now()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	const query = `INSERT INTO appointments (id, professor_id, student_id, availability_id, date, time_slot, status, rescheduled_from_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(ctx, query,
		appt.ID,
		appt.ProfessorID,
		appt.StudentID,
		appt.AvailabilityID,
		appt.Date,
		appt.TimeSlot,
		appt.Status,
		appt.RescheduledFromID,
		appt.CreatedAt,
		appt.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// FindByID returns the appointment or sql.ErrNoRows.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	if !validID(id) {
		return nil, sql.ErrNoRows
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find appointment by id: %w", err)
	}
	return &appt, nil
}

// UpdateStatus moves an appointment from one status to another in a single
// conditional update. It reports false when the row exists but no longer
// holds from, and sql.ErrNoRows when there is no such appointment.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus, updatedAt time.Time) (bool, error) {
	if !validID(id) {
		return false, sql.ErrNoRows
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const query = `UPDATE appointments SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, updatedAt)
	if err != nil {
		return false, fmt.Errorf("update appointment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update appointment status rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("check appointment exists: %w", err)
	}
	if !exists {
		return false, sql.ErrNoRows
	}
	return false, nil
}

// ListByStudent returns the student's appointments in insertion order,
// skipping excludeStatus when it is set.
func (r *AppointmentRepository) ListByStudent(ctx context.Context, studentID string, excludeStatus models.AppointmentStatus) ([]models.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE student_id = $1`
	args := []interface{}{studentID}
	if excludeStatus != "" {
		query += ` AND status <> $2`
		args = append(args, excludeStatus)
	}
	query += ` ORDER BY created_at ASC`

	items := []models.Appointment{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list appointments by student: %w", err)
	}
	return items, nil
}

// ListByProfessor returns every appointment held with the professor.
func (r *AppointmentRepository) ListByProfessor(ctx context.Context, professorID string) ([]models.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE professor_id = $1 ORDER BY date ASC, created_at ASC`
	items := []models.Appointment{}
	if err := r.db.SelectContext(ctx, &items, query, professorID); err != nil {
		return nil, fmt.Errorf("list appointments by professor: %w", err)
	}
	return items, nil
}
