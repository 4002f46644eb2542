package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/office-hours-api/internal/dto"
	"github.com/noah-isme/office-hours-api/internal/models"
	appErrors "github.com/noah-isme/office-hours-api/pkg/errors"
	"github.com/noah-isme/office-hours-api/pkg/export"
)

var appointmentExportHeaders = []string{"id", "date", "timeSlot", "status", "professorId", "studentId", "createdAt"}

type appointmentHistory interface {
	ListByStudent(ctx context.Context, studentID string, excludeStatus models.AppointmentStatus) ([]models.Appointment, error)
	ListByProfessor(ctx context.Context, professorID string) ([]models.Appointment, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportService renders a caller's appointment history for download.
type ExportService struct {
	appointments appointmentHistory
	csv          csvRenderer
	pdf          pdfRenderer
	logger       *zap.Logger
	now          func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers get the defaults.
func NewExportService(appointments appointmentHistory, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		appointments: appointments,
		csv:          csv,
		pdf:          pdf,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ExportAppointments renders every appointment the caller took part in,
// whatever its status.
func (s *ExportService) ExportAppointments(ctx context.Context, principal models.Principal, format dto.ExportFormat) (*dto.ExportFile, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	format = dto.ExportFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if format == "" {
		format = dto.ExportFormatCSV
	}
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	var (
		items []models.Appointment
		err   error
	)
	switch principal.Role {
	case models.RoleStudent:
		items, err = s.appointments.ListByStudent(ctx, principal.ID, "")
	case models.RoleProfessor:
		items, err = s.appointments.ListByProfessor(ctx, principal.ID)
	}
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load appointment history")
	}

	dataset := appointmentDataset(items)
	var body []byte
	contentType := "text/csv"
	if format == dto.ExportFormatPDF {
		contentType = "application/pdf"
		body, err = s.pdf.Render(dataset)
	} else {
		body, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.logger.Error("render appointment export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &dto.ExportFile{
		Filename:    fmt.Sprintf("appointments_%s_%s.%s", principal.Role, s.now().Format("20060102_150405"), format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func appointmentDataset(items []models.Appointment) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, appt := range items {
		rows = append(rows, map[string]string{
			"id":          appt.ID,
			"date":        appt.Date,
			"timeSlot":    appt.TimeSlot,
			"status":      string(appt.Status),
			"professorId": appt.ProfessorID,
			"studentId":   appt.StudentID,
			"createdAt":   appt.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Title:   "Appointment history",
		Headers: appointmentExportHeaders,
		Rows:    rows,
	}
}
