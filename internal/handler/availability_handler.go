package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/office-hours-api/internal/dto"
	"github.com/noah-isme/office-hours-api/internal/models"
	"github.com/noah-isme/office-hours-api/pkg/response"
)

type availabilityService interface {
	Publish(ctx context.Context, principal models.Principal, req dto.PublishAvailabilityRequest) (*models.Availability, error)
	ListFor(ctx context.Context, principal models.Principal, professorID string) ([]models.Availability, error)
}

// AvailabilityHandler exposes slot publishing and lookup.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler builds the handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// Publish godoc
// @Summary Publish a bookable slot
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.PublishAvailabilityRequest true "Slot"
// @Success 201 {object} response.Envelope
// @Router /availability [post]
func (h *AvailabilityHandler) Publish(c *gin.Context) {
	var req dto.PublishAvailabilityRequest
	if !bindJSON(c, &req, "invalid availability payload") {
		return
	}
	slot, err := h.service.Publish(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot, "Availability added successfully")
}

// ListFor godoc
// @Summary List a professor's free slots
// @Tags Availability
// @Produce json
// @Param professorId path string true "Professor ID"
// @Success 200 {object} response.Envelope
// @Router /availability/{professorId} [get]
func (h *AvailabilityHandler) ListFor(c *gin.Context) {
	slots, err := h.service.ListFor(c.Request.Context(), principalFromContext(c), c.Param("professorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	list(c, slots, len(slots), "Availability fetched successfully")
}
