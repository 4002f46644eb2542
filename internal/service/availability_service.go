package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/office-hours-api/internal/dto"
	"github.com/noah-isme/office-hours-api/internal/models"
	appErrors "github.com/noah-isme/office-hours-api/pkg/errors"
)

// AvailabilityService publishes and lists professor slots.
type AvailabilityService struct {
	slots     slotStore
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(slots slotStore, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{slots: slots, metrics: metrics, validator: validate, logger: logger}
}

// Publish opens a new free slot for the calling professor. Publishing the
// same date and label twice yields two independent slots.
func (s *AvailabilityService) Publish(ctx context.Context, principal models.Principal, req dto.PublishAvailabilityRequest) (*models.Availability, error) {
	if err := requireRole(principal, models.RoleProfessor, "only professors can publish availability"); err != nil {
		return nil, err
	}
	req.Date = strings.TrimSpace(req.Date)
	req.TimeSlot = strings.TrimSpace(req.TimeSlot)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid availability")
	}

	slot := &models.Availability{
		ProfessorID: principal.ID,
		Date:        req.Date,
		TimeSlot:    req.TimeSlot,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, appErrors.Persistence(err, "failed to publish availability")
	}
	s.metrics.RecordReservation(OutcomePublished)
	s.logger.Debug("availability published", zap.String("availability_id", slot.ID), zap.String("professor_id", principal.ID))
	return slot, nil
}

// ListFor returns the professor's free slots to any authenticated caller.
func (s *AvailabilityService) ListFor(ctx context.Context, principal models.Principal, professorID string) ([]models.Availability, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	professorID = strings.TrimSpace(professorID)
	if professorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "professor id is required")
	}
	slots, err := s.slots.ListFree(ctx, professorID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list availability")
	}
	return slots, nil
}
