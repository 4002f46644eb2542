package models

import "time"

// AppointmentStatus enumerates appointment lifecycle states.
type AppointmentStatus string

const (
	AppointmentStatusBooked      AppointmentStatus = "booked"
	AppointmentStatusCanceled    AppointmentStatus = "canceled"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
)

// Terminal reports whether no further transition is allowed from the status.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCanceled || s == AppointmentStatusRescheduled
}

// Appointment is created by a successful booking against an Availability row.
type Appointment struct {
	ID                string            `db:"id" json:"id"`
	ProfessorID       string            `db:"professor_id" json:"professorId"`
	StudentID         string            `db:"student_id" json:"studentId"`
	AvailabilityID    *string           `db:"availability_id" json:"availabilityId,omitempty"`
	Date              string            `db:"date" json:"date"`
	TimeSlot          string            `db:"time_slot" json:"timeSlot"`
	Status            AppointmentStatus `db:"status" json:"status"`
	RescheduledFromID *string           `db:"rescheduled_from_id" json:"rescheduledFromId"`
	CreatedAt         time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updatedAt"`
}
