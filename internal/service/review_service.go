package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/office-hours-api/internal/dto"
	"github.com/noah-isme/office-hours-api/internal/models"
	"github.com/noah-isme/office-hours-api/internal/repository"
	appErrors "github.com/noah-isme/office-hours-api/pkg/errors"
)

type reviewStore interface {
	Create(ctx context.Context, review *models.Review) error
	ListByProfessor(ctx context.Context, professorID string) ([]models.Review, error)
}

type appointmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
}

// ReviewService records student feedback on sessions.
type ReviewService struct {
	reviews      reviewStore
	appointments appointmentReader
	cache        *CacheService
	cacheTTL     time.Duration
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewReviewService constructs the service. cache may be nil.
func NewReviewService(reviews reviewStore, appointments appointmentReader, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		reviews:      reviews,
		appointments: appointments,
		cache:        cache,
		cacheTTL:     cacheTTL,
		validator:    validate,
		logger:       logger,
	}
}

// Create stores a review for one of the student's appointments with the
// named professor. Each appointment can be reviewed once.
func (s *ReviewService) Create(ctx context.Context, principal models.Principal, req dto.CreateReviewRequest) (*models.Review, error) {
	if err := requireRole(principal, models.RoleStudent, "only students can submit reviews"); err != nil {
		return nil, err
	}
	req.ProfessorID = strings.TrimSpace(req.ProfessorID)
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.Feedback != nil {
		trimmed := strings.TrimSpace(*req.Feedback)
		req.Feedback = &trimmed
		if trimmed == "" {
			req.Feedback = nil
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review")
	}

	appt, err := s.appointments.FindByID(ctx, req.AppointmentID)
	if err != nil {
		return nil, storeError(err, "appointment not found", "failed to load appointment")
	}
	if appt.StudentID != principal.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to review this appointment")
	}
	if appt.ProfessorID != req.ProfessorID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appointment does not belong to this professor")
	}

	review := &models.Review{
		StudentID:     principal.ID,
		ProfessorID:   req.ProfessorID,
		AppointmentID: req.AppointmentID,
		Rating:        req.Rating,
		Feedback:      req.Feedback,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "appointment already reviewed")
		}
		return nil, appErrors.Persistence(err, "failed to submit review")
	}

	_ = s.cache.Invalidate(ctx, reviewCacheKey(req.ProfessorID))
	return review, nil
}

// ListForProfessor returns the professor's reviews newest first.
func (s *ReviewService) ListForProfessor(ctx context.Context, principal models.Principal, professorID string) ([]models.Review, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	professorID = strings.TrimSpace(professorID)
	if professorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "professor id is required")
	}

	key := reviewCacheKey(professorID)
	var cached []models.Review
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	items, err := s.reviews.ListByProfessor(ctx, professorID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list reviews")
	}
	s.cache.Set(ctx, key, items, s.cacheTTL)
	return items, nil
}

func reviewCacheKey(professorID string) string {
	return fmt.Sprintf("reviews:professor:%s", professorID)
}
