package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/office-hours-api/internal/dto"
	"github.com/noah-isme/office-hours-api/internal/models"
	appErrors "github.com/noah-isme/office-hours-api/pkg/errors"
)

const (
	releaseByID    = "id"
	releaseByTuple = "tuple"

	cleanupTimeout = 5 * time.Second
)

type slotStore interface {
	Create(ctx context.Context, slot *models.Availability) error
	ReserveFree(ctx context.Context, professorID, date, timeSlot string) (*models.Availability, error)
	Release(ctx context.Context, id string) (bool, error)
	ReleaseByTuple(ctx context.Context, professorID, date, timeSlot string) (bool, error)
	ListFree(ctx context.Context, professorID string) ([]models.Availability, error)
}

type appointmentStore interface {
	Create(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus, updatedAt time.Time) (bool, error)
	ListByStudent(ctx context.Context, studentID string, excludeStatus models.AppointmentStatus) ([]models.Appointment, error)
	ListByProfessor(ctx context.Context, professorID string) ([]models.Appointment, error)
}

type lifecycleDispatcher interface {
	Dispatch(ctx context.Context, event models.LifecycleEvent) error
}

// ReservationService books and cancels appointments against published slots.
// A slot is reserved before its appointment exists, so two concurrent
// bookings of one slot resolve to one appointment and one SlotUnavailable.
type ReservationService struct {
	slots        slotStore
	appointments appointmentStore
	events       lifecycleDispatcher
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewReservationService wires the engine. events and metrics may be nil.
func NewReservationService(slots slotStore, appointments appointmentStore, events lifecycleDispatcher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReservationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{
		slots:        slots,
		appointments: appointments,
		events:       events,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Book reserves a free slot for the student and records the appointment.
func (s *ReservationService) Book(ctx context.Context, principal models.Principal, req dto.BookAppointmentRequest) (*models.Appointment, error) {
	if err := requireRole(principal, models.RoleStudent, "only students can book appointments"); err != nil {
		return nil, err
	}
	req.ProfessorID = strings.TrimSpace(req.ProfessorID)
	req.Date = strings.TrimSpace(req.Date)
	req.TimeSlot = strings.TrimSpace(req.TimeSlot)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid booking request")
	}

	slot, err := s.slots.ReserveFree(ctx, req.ProfessorID, req.Date, req.TimeSlot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordReservation(OutcomeSlotUnavailable)
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "time slot is not available")
		}
		return nil, appErrors.Persistence(err, "failed to reserve time slot")
	}

	slotID := slot.ID
	appt := &models.Appointment{
		ProfessorID:    slot.ProfessorID,
		StudentID:      principal.ID,
		AvailabilityID: &slotID,
		Date:           slot.Date,
		TimeSlot:       slot.TimeSlot,
		Status:         models.AppointmentStatusBooked,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		s.rollback(ctx, slotID, err)
		return nil, appErrors.Persistence(err, "failed to create appointment")
	}

	s.metrics.RecordReservation(OutcomeBooked)
	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID),
		zap.String("availability_id", slotID),
		zap.String("student_id", principal.ID),
	)
	s.dispatch(ctx, models.NotificationAppointmentBooked, appt)
	return appt, nil
}

// rollback frees a slot whose appointment could not be written.
func (s *ReservationService) rollback(ctx context.Context, slotID string, cause error) {
	ctx, cancel := context.WithTimeout(detach(ctx), cleanupTimeout)
	defer cancel()

	s.metrics.RecordReservation(OutcomeRolledBack)
	released, err := s.slots.Release(ctx, slotID)
	if err != nil || !released {
		s.logger.Error("failed to roll back slot reservation",
			zap.String("availability_id", slotID),
			zap.Bool("released", released),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("slot reservation rolled back", zap.String("availability_id", slotID), zap.NamedError("cause", cause))
}

// Cancel marks the professor's appointment canceled and frees its slot.
// Canceling an already canceled appointment returns it unchanged.
func (s *ReservationService) Cancel(ctx context.Context, principal models.Principal, appointmentID string) (*models.Appointment, error) {
	if err := requireRole(principal, models.RoleProfessor, "only professors can cancel appointments"); err != nil {
		return nil, err
	}
	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appointment id is required")
	}

	appt, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		return nil, storeError(err, "appointment not found", "failed to load appointment")
	}
	if appt.ProfessorID != principal.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to cancel this appointment")
	}

	switch appt.Status {
	case models.AppointmentStatusCanceled:
		return appt, nil
	case models.AppointmentStatusRescheduled:
		return nil, appErrors.Clone(appErrors.ErrValidation, "rescheduled appointments cannot be canceled")
	}

	now := s.now()
	swapped, err := s.appointments.UpdateStatus(ctx, appt.ID, models.AppointmentStatusBooked, models.AppointmentStatusCanceled, now)
	if err != nil {
		return nil, storeError(err, "appointment not found", "failed to cancel appointment")
	}
	if !swapped {
		// Another request moved it first and owns the release.
		return s.settled(ctx, appt.ID)
	}
	appt.Status = models.AppointmentStatusCanceled
	appt.UpdatedAt = now

	s.release(ctx, appt)
	s.metrics.RecordReservation(OutcomeCanceled)
	s.logger.Info("appointment canceled", zap.String("appointment_id", appt.ID), zap.String("professor_id", principal.ID))
	s.dispatch(ctx, models.NotificationAppointmentCanceled, appt)
	return appt, nil
}

// settled reloads an appointment whose cancel lost a race and reports it
// the way Cancel would have.
func (s *ReservationService) settled(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	current, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		return nil, storeError(err, "appointment not found", "failed to load appointment")
	}
	switch current.Status {
	case models.AppointmentStatusCanceled:
		return current, nil
	case models.AppointmentStatusRescheduled:
		return nil, appErrors.Clone(appErrors.ErrValidation, "rescheduled appointments cannot be canceled")
	}
	return nil, appErrors.Clone(appErrors.ErrConflict, "appointment changed while canceling, retry")
}

// release frees the canceled appointment's slot. It never fails the cancel.
func (s *ReservationService) release(ctx context.Context, appt *models.Appointment) {
	ctx, cancel := context.WithTimeout(detach(ctx), cleanupTimeout)
	defer cancel()

	strategy := releaseByTuple
	var (
		released bool
		err      error
	)
	if appt.AvailabilityID != nil && *appt.AvailabilityID != "" {
		strategy = releaseByID
		released, err = s.slots.Release(ctx, *appt.AvailabilityID)
	} else {
		released, err = s.slots.ReleaseByTuple(ctx, appt.ProfessorID, appt.Date, appt.TimeSlot)
	}
	s.metrics.RecordSlotRelease(strategy, released, err)

	fields := []zap.Field{zap.String("appointment_id", appt.ID), zap.String("strategy", strategy)}
	switch {
	case err != nil:
		s.logger.Error("failed to release slot", append(fields, zap.Error(err))...)
	case !released:
		s.logger.Warn("no booked slot to release", fields...)
	}
}

// ListMine returns the student's appointments that are not canceled.
func (s *ReservationService) ListMine(ctx context.Context, principal models.Principal) ([]models.Appointment, error) {
	if err := requireRole(principal, models.RoleStudent, "only students can check appointments"); err != nil {
		return nil, err
	}
	items, err := s.appointments.ListByStudent(ctx, principal.ID, models.AppointmentStatusCanceled)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list appointments")
	}
	return items, nil
}

func (s *ReservationService) dispatch(ctx context.Context, eventType models.NotificationType, appt *models.Appointment) {
	if s.events == nil {
		return
	}
	event := models.NewLifecycleEvent(eventType, appt, s.now())
	if err := s.events.Dispatch(ctx, event); err != nil {
		s.logger.Warn("failed to dispatch lifecycle event",
			zap.String("type", string(eventType)),
			zap.String("appointment_id", appt.ID),
			zap.Error(err),
		)
	}
}
