package memory

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/office-hours-api/internal/models"
	"github.com/noah-isme/office-hours-api/internal/repository"
)

// NotificationStore keeps notifications per user.
type NotificationStore struct {
	mu    sync.Mutex
	items []*models.Notification
	ids   map[string]struct{}
}

// NewNotificationStore constructs an empty store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{ids: make(map[string]struct{})}
}

// Create stores the notification; an existing id is ignored.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, exists := s.ids[n.ID]; exists {
		return nil
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	stored := *n
	s.items = append(s.items, &stored)
	s.ids[n.ID] = struct{}{}
	return nil
}

// ListByUser returns the user's notifications newest first.
func (s *NotificationStore) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Notification{}
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].UserID == userID {
			out = append(out, *s.items[i])
		}
	}
	return out, nil
}

// MarkRead flags the user's notification as read or returns sql.ErrNoRows.
func (s *NotificationStore) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.items {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			out := *n
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

// ReviewStore keeps reviews with one review per appointment.
type ReviewStore struct {
	mu            sync.Mutex
	items         []*models.Review
	byAppointment map[string]struct{}
}

// NewReviewStore constructs an empty store.
func NewReviewStore() *ReviewStore {
	return &ReviewStore{byAppointment: make(map[string]struct{})}
}

// Create stores the review or returns repository.ErrDuplicate.
func (s *ReviewStore) Create(ctx context.Context, review *models.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAppointment[review.AppointmentID]; exists {
		return repository.ErrDuplicate
	}
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	review.CreatedAt = now()
	stored := *review
	s.items = append(s.items, &stored)
	s.byAppointment[review.AppointmentID] = struct{}{}
	return nil
}

// ListByProfessor returns reviews newest first.
func (s *ReviewStore) ListByProfessor(ctx context.Context, professorID string) ([]models.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Review{}
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].ProfessorID == professorID {
			out = append(out, *s.items[i])
		}
	}
	return out, nil
}
