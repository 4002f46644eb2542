package models

import "time"

// DateLayout is the calendar date format used for slots and appointments.
const DateLayout = "2006-01-02"

// Availability is a professor-published slot. Rows are never deleted; IsBooked
// flips true when a booking reserves the row and back when it is canceled.
type Availability struct {
	ID          string    `db:"id" json:"id"`
	ProfessorID string    `db:"professor_id" json:"professorId"`
	Date        string    `db:"date" json:"date"`
	TimeSlot    string    `db:"time_slot" json:"timeSlot"`
	IsBooked    bool      `db:"is_booked" json:"isBooked"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Matches reports whether the slot covers the given professor, date and label.
func (a Availability) Matches(professorID, date, timeSlot string) bool {
	return a.ProfessorID == professorID && a.Date == date && a.TimeSlot == timeSlot
}
