// Package memory provides process-local stores with the same contracts as
// the Postgres repositories. They back STORE_DRIVER=memory and the
// concurrency tests.
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

func now() time.Time { return time.Now().UTC() }

// AvailabilityStore keeps slots in insertion order behind a mutex; every
// read-modify-write happens inside one critical section.
type AvailabilityStore struct {
	mu    sync.Mutex
	slots []*models.Availability
}

// NewAvailabilityStore constructs an empty store.
func NewAvailabilityStore() *AvailabilityStore {
	return &AvailabilityStore{}
}

// Create appends a free slot.
func (s *AvailabilityStore) Create(ctx context.Context, slot *models.Availability) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	ts := now()
	slot.IsBooked = false
	slot.CreatedAt = ts
	slot.UpdatedAt = ts
	stored := *slot
	s.slots = append(s.slots, &stored)
	return nil
}

// FindFree returns the oldest free slot matching the tuple or sql.ErrNoRows.
func (s *AvailabilityStore) FindFree(ctx context.Context, professorID, date, timeSlot string) (*models.Availability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot := s.firstFree(professorID, date, timeSlot); slot != nil {
		out := *slot
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

// ReserveFree atomically books the oldest free slot matching the tuple.
func (s *AvailabilityStore) ReserveFree(ctx context.Context, professorID, date, timeSlot string) (*models.Availability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.firstFree(professorID, date, timeSlot)
	if slot == nil {
		return nil, sql.ErrNoRows
	}
	slot.IsBooked = true
	slot.UpdatedAt = now()
	out := *slot
	return &out, nil
}

// Reserve books the slot only if it is currently free.
func (s *AvailabilityStore) Reserve(ctx context.Context, id string) (bool, error) {
	return s.swap(ctx, id, false, true)
}

// Release frees the slot only if it is currently booked.
func (s *AvailabilityStore) Release(ctx context.Context, id string) (bool, error) {
	return s.swap(ctx, id, true, false)
}

func (s *AvailabilityStore) swap(ctx context.Context, id string, from, to bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range s.slots {
		if slot.ID != id {
			continue
		}
		if slot.IsBooked != from {
			return false, nil
		}
		slot.IsBooked = to
		slot.UpdatedAt = now()
		return true, nil
	}
	return false, nil
}

// ReleaseByTuple frees the first booked slot matching the tuple.
func (s *AvailabilityStore) ReleaseByTuple(ctx context.Context, professorID, date, timeSlot string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range s.slots {
		if slot.IsBooked && slot.Matches(professorID, date, timeSlot) {
			slot.IsBooked = false
			slot.UpdatedAt = now()
			return true, nil
		}
	}
	return false, nil
}

// ListFree returns the professor's free slots ordered by date.
func (s *AvailabilityStore) ListFree(ctx context.Context, professorID string) ([]models.Availability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Availability{}
	for _, slot := range s.slots {
		if slot.ProfessorID == professorID && !slot.IsBooked {
			out = append(out, *slot)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Delete removes a slot outright. The service never deletes slots; this
// models out-of-band cleanup by operators.
func (s *AvailabilityStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, slot := range s.slots {
		if slot.ID == id {
			s.slots = append(s.slots[:i], s.slots[i+1:]...)
			return true
		}
	}
	return false
}

func (s *AvailabilityStore) firstFree(professorID, date, timeSlot string) *models.Availability {
	for _, slot := range s.slots {
		if !slot.IsBooked && slot.Matches(professorID, date, timeSlot) {
			return slot
		}
	}
	return nil
}
