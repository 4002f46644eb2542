package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/office-hours-api/internal/models"
)

// ReviewRepository stores session reviews.
type ReviewRepository struct {
	sqlStore
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB, opts ...Option) *ReviewRepository {
	return &ReviewRepository{sqlStore: newSQLStore(db, opts)}
}

// Create inserts a review; a second review for the same appointment yields ErrDuplicate.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	review.CreatedAt = r.now()

	const query = `INSERT INTO reviews (id, student_id, professor_id, appointment_id, rating, feedback, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		review.ID,
		review.StudentID,
		review.ProfessorID,
		review.AppointmentID,
		review.Rating,
		review.Feedback,
		review.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// ListByProfessor returns reviews for a professor newest first.
func (r *ReviewRepository) ListByProfessor(ctx context.Context, professorID string) ([]models.Review, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const query = `SELECT id, student_id, professor_id, appointment_id, rating, feedback, created_at
FROM reviews WHERE professor_id = $1 ORDER BY created_at DESC`
	items := []models.Review{}
	if err := r.db.SelectContext(ctx, &items, query, professorID); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return items, nil
}
