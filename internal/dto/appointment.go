package dto

// BookAppointmentRequest is the payload students send to reserve a slot.
type BookAppointmentRequest struct {
	ProfessorID string `json:"professorId" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot    string `json:"timeSlot" validate:"required"`
}

// PublishAvailabilityRequest is the payload professors send to open a slot.
type PublishAvailabilityRequest struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot string `json:"timeSlot" validate:"required,max=64"`
}

// ExportFormat selects the rendering used by appointment exports.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
