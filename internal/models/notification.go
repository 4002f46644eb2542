package models

import "time"

// NotificationType identifies the lifecycle change a notification reports.
type NotificationType string

const (
	NotificationAppointmentBooked   NotificationType = "appointment_booked"
	NotificationAppointmentCanceled NotificationType = "appointment_canceled"
)

// Notification is an in-app message addressed to a single user.
type Notification struct {
	ID            string           `db:"id" json:"id"`
	UserID        string           `db:"user_id" json:"userId"`
	Type          NotificationType `db:"type" json:"type"`
	Message       string           `db:"message" json:"message"`
	AppointmentID *string          `db:"appointment_id" json:"appointmentId,omitempty"`
	IsRead        bool             `db:"is_read" json:"isRead"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
}

// LifecycleEvent is emitted by the reservation engine after a committed state change.
type LifecycleEvent struct {
	Type          NotificationType `json:"type"`
	AppointmentID string           `json:"appointmentId"`
	ProfessorID   string           `json:"professorId"`
	StudentID     string           `json:"studentId"`
	Date          string           `json:"date"`
	TimeSlot      string           `json:"timeSlot"`
	OccurredAt    time.Time        `json:"occurredAt"`
}

// NewLifecycleEvent snapshots an appointment into an event of the given type.
func NewLifecycleEvent(eventType NotificationType, appt *Appointment, at time.Time) LifecycleEvent {
	return LifecycleEvent{
		Type:          eventType,
		AppointmentID: appt.ID,
		ProfessorID:   appt.ProfessorID,
		StudentID:     appt.StudentID,
		Date:          appt.Date,
		TimeSlot:      appt.TimeSlot,
		OccurredAt:    at,
	}
}
