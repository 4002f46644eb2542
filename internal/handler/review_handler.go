package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/office-hours-api/internal/dto"
	"github.com/noah-isme/office-hours-api/internal/models"
	"github.com/noah-isme/office-hours-api/pkg/response"
)

type reviewService interface {
	Create(ctx context.Context, principal models.Principal, req dto.CreateReviewRequest) (*models.Review, error)
	ListForProfessor(ctx context.Context, principal models.Principal, professorID string) ([]models.Review, error)
}

// ReviewHandler exposes session reviews.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler builds the handler.
func NewReviewHandler(service reviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// Create godoc
// @Summary Review an appointment
// @Tags Reviews
// @Accept json
// @Produce json
// @Param payload body dto.CreateReviewRequest true "Review"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	var req dto.CreateReviewRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	review, err := h.service.Create(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review, "Review submitted successfully")
}

// ListForProfessor godoc
// @Summary List reviews for a professor
// @Tags Reviews
// @Produce json
// @Param professorId path string true "Professor ID"
// @Success 200 {object} response.Envelope
// @Router /reviews/professor/{professorId} [get]
func (h *ReviewHandler) ListForProfessor(c *gin.Context) {
	items, err := h.service.ListForProfessor(c.Request.Context(), principalFromContext(c), c.Param("professorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	list(c, items, len(items), "Professor reviews fetched successfully")
}
