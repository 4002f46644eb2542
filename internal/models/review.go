package models

import "time"

// Review is a student's rating of a completed session.
type Review struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"studentId"`
	ProfessorID   string    `db:"professor_id" json:"professorId"`
	AppointmentID string    `db:"appointment_id" json:"appointmentId"`
	Rating        int       `db:"rating" json:"rating"`
	Feedback      *string   `db:"feedback" json:"feedback,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
