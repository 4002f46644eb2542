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

const notificationColumns = `id, user_id, type, message, appointment_id, is_read, created_at`

// NotificationRepository stores in-app notifications.
type NotificationRepository struct {
	sqlStore
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB, opts ...Option) *NotificationRepository {
	return &NotificationRepository{sqlStore: newSQLStore(db, opts)}
}

// Create inserts the notification. Re-inserting an existing id is a no-op so
// retried deliveries stay idempotent.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}

	const query = `INSERT INTO notifications (id, user_id, type, message, appointment_id, is_read, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, n.ID, n.UserID, n.Type, n.Message, n.AppointmentID, n.IsRead, n.CreatedAt); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByUser returns the user's notifications newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const query = `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`
	items := []models.Notification{}
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// MarkRead flags a notification owned by userID as read, returning
// sql.ErrNoRows when no such notification exists for that user.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	if !validID(id) {
		return nil, sql.ErrNoRows
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2 RETURNING ` + notificationColumns
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return &n, nil
}
