package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/office-hours-api/internal/models"
)

// AppointmentStore keeps appointments in insertion order.
type AppointmentStore struct {
	mu    sync.RWMutex
	items []*models.Appointment
	index map[string]*models.Appointment
}

// NewAppointmentStore constructs an empty store.
func NewAppointmentStore() *AppointmentStore {
	return &AppointmentStore{index: make(map[string]*models.Appointment)}
}

// Create stores a copy of the appointment.
func (s *AppointmentStore) Create(ctx context.Context, appt *models.Appointment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	ts := now()
	appt.CreatedAt = ts
	appt.UpdatedAt = ts
	stored := *appt
	s.items = append(s.items, &stored)
	s.index[stored.ID] = &stored
	return nil
}

// FindByID returns a copy of the appointment or sql.ErrNoRows.
func (s *AppointmentStore) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.index[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *appt
	return &out, nil
}

// UpdateStatus moves the appointment from one status to another. It reports
// false when the appointment no longer holds from.
func (s *AppointmentStore) UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus, updatedAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.index[id]
	if !ok {
		return false, sql.ErrNoRows
	}
	if appt.Status != from {
		return false, nil
	}
	appt.Status = to
	appt.UpdatedAt = updatedAt
	return true, nil
}

// ListByStudent returns the student's appointments, skipping excludeStatus when set.
func (s *AppointmentStore) ListByStudent(ctx context.Context, studentID string, excludeStatus models.AppointmentStatus) ([]models.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Appointment{}
	for _, appt := range s.items {
		if appt.StudentID != studentID {
			continue
		}
		if excludeStatus != "" && appt.Status == excludeStatus {
			continue
		}
		out = append(out, *appt)
	}
	return out, nil
}

// ListByProfessor returns the professor's appointments ordered by date.
func (s *AppointmentStore) ListByProfessor(ctx context.Context, professorID string) ([]models.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Appointment{}
	for _, appt := range s.items {
		if appt.ProfessorID == professorID {
			out = append(out, *appt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
