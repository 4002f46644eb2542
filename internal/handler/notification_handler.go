package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/office-hours-api/internal/middleware"
	"github.com/noah-isme/office-hours-api/internal/models"
	"github.com/noah-isme/office-hours-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, principal models.Principal) ([]models.Notification, error)
	MarkRead(ctx context.Context, principal models.Principal, notificationID string) (*models.Notification, error)
}

// NotificationHandler exposes the caller's in-app notifications.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler builds the handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	unread := 0
	for _, n := range items {
		if !n.IsRead {
			unread++
		}
	}
	middleware.SetMeta(c, "unread", unread)
	list(c, items, len(items), "Notifications fetched successfully")
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Param notificationId path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Router /notifications/{notificationId}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	n, err := h.service.MarkRead(c.Request.Context(), principalFromContext(c), c.Param("notificationId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, n, "Notification marked as read")
}
