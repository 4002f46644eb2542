package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/office-hours-api/internal/models"
	appErrors "github.com/noah-isme/office-hours-api/pkg/errors"
	"github.com/noah-isme/office-hours-api/pkg/jobs"
)

// LifecycleJobType labels queued lifecycle events.
const LifecycleJobType = "appointment.lifecycle"

var notificationNamespace = uuid.MustParse("8f2b6c1e-3d4a-4f5b-9c6d-7e8f9a0b1c2d")

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (*models.Notification, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event models.LifecycleEvent) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// NotificationService turns lifecycle events into per-user notifications and
// forwards them to the event stream.
type NotificationService struct {
	store     notificationStore
	publisher eventPublisher
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotificationService constructs the service. publisher may be nil.
func NewNotificationService(store notificationStore, publisher eventPublisher, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleJob is the jobs.Handler for the lifecycle queue.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.LifecycleEvent)
	if !ok {
		s.logger.Error("dropping job with unexpected payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	return s.HandleEvent(ctx, event)
}

// HandleEvent writes one notification for the student and one for the
// professor, then publishes the event. Notification ids derive from the event
// so a retried job does not duplicate rows.
func (s *NotificationService) HandleEvent(ctx context.Context, event models.LifecycleEvent) error {
	studentMsg, professorMsg, err := notificationMessages(event)
	if err != nil {
		s.metrics.RecordNotification(string(event.Type), err)
		s.logger.Error("unsupported lifecycle event", zap.String("type", string(event.Type)), zap.String("appointment_id", event.AppointmentID))
		return nil
	}

	createdAt := event.OccurredAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	apptID := event.AppointmentID
	for _, target := range []struct{ userID, message string }{
		{event.StudentID, studentMsg},
		{event.ProfessorID, professorMsg},
	} {
		n := &models.Notification{
			ID:            notificationID(event, target.userID),
			UserID:        target.userID,
			Type:          event.Type,
			Message:       target.message,
			AppointmentID: &apptID,
			CreatedAt:     createdAt,
		}
		if err := s.store.Create(ctx, n); err != nil {
			s.metrics.RecordNotification(string(event.Type), err)
			return fmt.Errorf("store notification for %s: %w", target.userID, err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish lifecycle event", zap.String("appointment_id", event.AppointmentID), zap.Error(err))
		}
	}
	s.metrics.RecordNotification(string(event.Type), nil)
	return nil
}

// List returns the caller's notifications newest first.
func (s *NotificationService) List(ctx context.Context, principal models.Principal) ([]models.Notification, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	items, err := s.store.ListByUser(ctx, principal.ID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list notifications")
	}
	return items, nil
}

// MarkRead flags one of the caller's notifications as read. Notifications of
// other users are reported as missing.
func (s *NotificationService) MarkRead(ctx context.Context, principal models.Principal, notificationID string) (*models.Notification, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "notification id is required")
	}
	n, err := s.store.MarkRead(ctx, notificationID, principal.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Persistence(err, "failed to update notification")
	}
	return n, nil
}

func notificationID(event models.LifecycleEvent, userID string) string {
	key := strings.Join([]string{event.AppointmentID, string(event.Type), userID}, "|")
	return uuid.NewSHA1(notificationNamespace, []byte(key)).String()
}

func notificationMessages(event models.LifecycleEvent) (student, professor string, err error) {
	when := fmt.Sprintf("%s (%s)", event.Date, event.TimeSlot)
	switch event.Type {
	case models.NotificationAppointmentBooked:
		return "Your appointment on " + when + " is confirmed.",
			"A student booked your office hours on " + when + ".", nil
	case models.NotificationAppointmentCanceled:
		return "Your appointment on " + when + " was canceled by the professor.",
			"You canceled the appointment on " + when + ".", nil
	default:
		return "", "", fmt.Errorf("unknown event type %q", event.Type)
	}
}

// QueuedDispatcher hands lifecycle events to the notification worker pool.
type QueuedDispatcher struct {
	queue jobEnqueuer
}

// NewQueuedDispatcher wraps a queue.
func NewQueuedDispatcher(queue jobEnqueuer) *QueuedDispatcher {
	return &QueuedDispatcher{queue: queue}
}

// Dispatch enqueues the event without waiting for it to be handled.
func (d *QueuedDispatcher) Dispatch(_ context.Context, event models.LifecycleEvent) error {
	return d.queue.Enqueue(jobs.Job{
		ID:      event.AppointmentID + ":" + string(event.Type),
		Type:    LifecycleJobType,
		Payload: event,
	})
}
