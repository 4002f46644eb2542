package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/office-hours-api/internal/dto"
	"github.com/noah-isme/office-hours-api/internal/models"
	"github.com/noah-isme/office-hours-api/pkg/response"
)

type reservationService interface {
	Book(ctx context.Context, principal models.Principal, req dto.BookAppointmentRequest) (*models.Appointment, error)
	Cancel(ctx context.Context, principal models.Principal, appointmentID string) (*models.Appointment, error)
	ListMine(ctx context.Context, principal models.Principal) ([]models.Appointment, error)
}

type appointmentExporter interface {
	ExportAppointments(ctx context.Context, principal models.Principal, format dto.ExportFormat) (*dto.ExportFile, error)
}

// AppointmentHandler exposes booking endpoints.
type AppointmentHandler struct {
	reservations reservationService
	exports      appointmentExporter
}

// NewAppointmentHandler builds the handler.
func NewAppointmentHandler(reservations reservationService, exports appointmentExporter) *AppointmentHandler {
	return &AppointmentHandler{reservations: reservations, exports: exports}
}

// Book godoc
// @Summary Book an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.BookAppointmentRequest true "Slot to book"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Book(c *gin.Context) {
	var req dto.BookAppointmentRequest
	if !bindJSON(c, &req, "invalid booking payload") {
		return
	}
	appt, err := h.reservations.Book(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt, "Appointment booked successfully")
}

// Cancel godoc
// @Summary Cancel an appointment
// @Tags Appointments
// @Produce json
// @Param appointmentId path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /appointments/{appointmentId}/cancel [patch]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	appt, err := h.reservations.Cancel(c.Request.Context(), principalFromContext(c), c.Param("appointmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, appt, "Appointment canceled successfully")
}

// ListMine godoc
// @Summary List the caller's active appointments
// @Tags Appointments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /appointments/mine [get]
func (h *AppointmentHandler) ListMine(c *gin.Context) {
	items, err := h.reservations.ListMine(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	list(c, items, len(items), "Appointments fetched successfully")
}

// Export godoc
// @Summary Download appointment history
// @Tags Appointments
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} binary
// @Router /appointments/export [get]
func (h *AppointmentHandler) Export(c *gin.Context) {
	file, err := h.exports.ExportAppointments(c.Request.Context(), principalFromContext(c), dto.ExportFormat(c.DefaultQuery("format", string(dto.ExportFormatCSV))))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
