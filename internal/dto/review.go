package dto

// CreateReviewRequest is the payload students send after a session.
type CreateReviewRequest struct {
	ProfessorID   string  `json:"professorId" validate:"required"`
	AppointmentID string  `json:"appointmentId" validate:"required"`
	Rating        int     `json:"rating" validate:"required,min=1,max=5"`
	Feedback      *string `json:"feedback,omitempty" validate:"omitempty,max=2000"`
}
