package memory

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/office-hours-api/internal/models"
	"github.com/noah-isme/office-hours-api/internal/repository"
)

func TestAvailabilityStoreReserveFreeIsExclusive(t *testing.T) {
	store := NewAvailabilityStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &models.Availability{ProfessorID: "p1", Date: "2024-05-01", TimeSlot: "10:00"}))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ReserveFree(ctx, "p1", "2024-05-01", "10:00"); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	free, err := store.ListFree(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, free)
}

func TestAvailabilityStoreReserveAndRelease(t *testing.T) {
	store := NewAvailabilityStore()
	ctx := context.Background()
	slot := &models.Availability{ProfessorID: "p1", Date: "2024-05-01", TimeSlot: "10:00"}
	require.NoError(t, store.Create(ctx, slot))

	ok, err := store.Reserve(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.FindFree(ctx, "p1", "2024-05-01", "10:00")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	ok, err = store.Release(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Release(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Release(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailabilityStoreReleaseByTupleOnlyFreesBooked(t *testing.T) {
	store := NewAvailabilityStore()
	ctx := context.Background()
	first := &models.Availability{ProfessorID: "p1", Date: "2024-05-01", TimeSlot: "10:00"}
	second := &models.Availability{ProfessorID: "p1", Date: "2024-05-01", TimeSlot: "10:00"}
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))
	_, err := store.Reserve(ctx, second.ID)
	require.NoError(t, err)

	ok, err := store.ReleaseByTuple(ctx, "p1", "2024-05-01", "10:00")
	require.NoError(t, err)
	assert.True(t, ok)

	free, err := store.ListFree(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, free, 2)

	// only free rows remain
	ok, err = store.ReleaseByTuple(ctx, "p1", "2024-05-01", "10:00")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.ReleaseByTuple(ctx, "p1", "2024-06-01", "10:00")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailabilityStoreListFreeOrdersByDate(t *testing.T) {
	store := NewAvailabilityStore()
	ctx := context.Background()
	for _, date := range []string{"2024-05-03", "2024-05-01", "2024-05-02"} {
		require.NoError(t, store.Create(ctx, &models.Availability{ProfessorID: "p1", Date: date, TimeSlot: "10:00"}))
	}
	require.NoError(t, store.Create(ctx, &models.Availability{ProfessorID: "p2", Date: "2024-05-01", TimeSlot: "10:00"}))

	free, err := store.ListFree(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, free, 3)
	assert.Equal(t, "2024-05-01", free[0].Date)
	assert.Equal(t, "2024-05-03", free[2].Date)
}

func TestAppointmentStoreLifecycle(t *testing.T) {
	store := NewAppointmentStore()
	ctx := context.Background()
	appt := &models.Appointment{ProfessorID: "p1", StudentID: "s1", Date: "2024-05-01", TimeSlot: "10:00", Status: models.AppointmentStatusBooked}
	require.NoError(t, store.Create(ctx, appt))
	require.NoError(t, store.Create(ctx, &models.Appointment{ProfessorID: "p1", StudentID: "s1", Date: "2024-05-02", TimeSlot: "10:00", Status: models.AppointmentStatusBooked}))

	swapped, err := store.UpdateStatus(ctx, appt.ID, models.AppointmentStatusBooked, models.AppointmentStatusCanceled, time.Now())
	require.NoError(t, err)
	assert.True(t, swapped)
	swapped, err = store.UpdateStatus(ctx, appt.ID, models.AppointmentStatusBooked, models.AppointmentStatusCanceled, time.Now())
	require.NoError(t, err)
	assert.False(t, swapped)
	_, err = store.UpdateStatus(ctx, "missing", models.AppointmentStatusBooked, models.AppointmentStatusCanceled, time.Now())
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	active, err := store.ListByStudent(ctx, "s1", models.AppointmentStatusCanceled)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "2024-05-02", active[0].Date)

	all, err := store.ListByStudent(ctx, "s1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := store.FindByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCanceled, found.Status)

	_, err = store.FindByID(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestNotificationStoreIgnoresRepeatedID(t *testing.T) {
	store := NewNotificationStore()
	ctx := context.Background()
	n := models.Notification{ID: "n1", UserID: "u1", Type: models.NotificationAppointmentBooked, Message: "hello"}
	first, second := n, n
	require.NoError(t, store.Create(ctx, &first))
	require.NoError(t, store.Create(ctx, &second))

	items, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = store.MarkRead(ctx, "n1", "u2")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	read, err := store.MarkRead(ctx, "n1", "u1")
	require.NoError(t, err)
	assert.True(t, read.IsRead)
}

func TestReviewStoreRejectsSecondReview(t *testing.T) {
	store := NewReviewStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &models.Review{StudentID: "s1", ProfessorID: "p1", AppointmentID: "a1", Rating: 5}))
	err := store.Create(ctx, &models.Review{StudentID: "s1", ProfessorID: "p1", AppointmentID: "a1", Rating: 3})
	assert.True(t, errors.Is(err, repository.ErrDuplicate))

	require.NoError(t, store.Create(ctx, &models.Review{StudentID: "s1", ProfessorID: "p1", AppointmentID: "a2", Rating: 4}))
	items, err := store.ListByProfessor(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a2", items[0].AppointmentID)
}
