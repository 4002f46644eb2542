package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/office-hours-api/internal/dto"
	"github.com/noah-isme/office-hours-api/internal/models"
	"github.com/noah-isme/office-hours-api/internal/repository/memory"
	appErrors "github.com/noah-isme/office-hours-api/pkg/errors"
)

var (
	student   = models.Principal{ID: "student-1", Role: models.RoleStudent}
	student2  = models.Principal{ID: "student-2", Role: models.RoleStudent}
	professor = models.Principal{ID: "prof-1", Role: models.RoleProfessor}
	otherProf = models.Principal{ID: "prof-2", Role: models.RoleProfessor}
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []models.LifecycleEvent
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event models.LifecycleEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return d.err
}

func (d *recordingDispatcher) types() []models.NotificationType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.NotificationType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type flakySlots struct {
	*memory.AvailabilityStore
	reserveErr error
	releaseErr error
	released   []string
}

func (f *flakySlots) ReserveFree(ctx context.Context, professorID, date, timeSlot string) (*models.Availability, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	return f.AvailabilityStore.ReserveFree(ctx, professorID, date, timeSlot)
}

func (f *flakySlots) Release(ctx context.Context, id string) (bool, error) {
	f.released = append(f.released, id)
	if f.releaseErr != nil {
		return false, f.releaseErr
	}
	return f.AvailabilityStore.Release(ctx, id)
}

type flakyAppointments struct {
	*memory.AppointmentStore
	createErr error
	updateErr error
	// beforeUpdate runs once, after the caller's read and before its write.
	beforeUpdate func()
}

func (f *flakyAppointments) Create(ctx context.Context, appt *models.Appointment) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.AppointmentStore.Create(ctx, appt)
}

func (f *flakyAppointments) UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus, at time.Time) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	if hook := f.beforeUpdate; hook != nil {
		f.beforeUpdate = nil
		hook()
	}
	return f.AppointmentStore.UpdateStatus(ctx, id, from, to, at)
}

type reservationFixture struct {
	slots        *flakySlots
	appointments *flakyAppointments
	events       *recordingDispatcher
	reservations *ReservationService
	availability *AvailabilityService
}

func newReservationFixture() *reservationFixture {
	slots := &flakySlots{AvailabilityStore: memory.NewAvailabilityStore()}
	appointments := &flakyAppointments{AppointmentStore: memory.NewAppointmentStore()}
	events := &recordingDispatcher{}
	metrics := NewMetricsService()
	return &reservationFixture{
		slots:        slots,
		appointments: appointments,
		events:       events,
		reservations: NewReservationService(slots, appointments, events, metrics, nil, nil),
		availability: NewAvailabilityService(slots, metrics, nil, nil),
	}
}

func (f *reservationFixture) publish(t *testing.T, date, slot string) *models.Availability {
	t.Helper()
	a, err := f.availability.Publish(context.Background(), professor, dto.PublishAvailabilityRequest{Date: date, TimeSlot: slot})
	require.NoError(t, err)
	return a
}

func bookReq(date, slot string) dto.BookAppointmentRequest {
	return dto.BookAppointmentRequest{ProfessorID: professor.ID, Date: date, TimeSlot: slot}
}

func TestBookReservesSlotAndCreatesAppointment(t *testing.T) {
	f := newReservationFixture()
	slot := f.publish(t, "2024-05-01", "10:00-10:30")

	appt, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00-10:30"))
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusBooked, appt.Status)
	assert.Equal(t, student.ID, appt.StudentID)
	assert.Equal(t, professor.ID, appt.ProfessorID)
	assert.Nil(t, appt.RescheduledFromID)
	require.NotNil(t, appt.AvailabilityID)
	assert.Equal(t, slot.ID, *appt.AvailabilityID)

	free, err := f.availability.ListFor(context.Background(), student, professor.ID)
	require.NoError(t, err)
	assert.Empty(t, free)
	assert.Equal(t, []models.NotificationType{models.NotificationAppointmentBooked}, f.events.types())
}

func TestBookRoleChecks(t *testing.T) {
	f := newReservationFixture()
	f.publish(t, "2024-05-01", "10:00")

	_, err := f.reservations.Book(context.Background(), professor, bookReq("2024-05-01", "10:00"))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.reservations.Book(context.Background(), models.Principal{}, bookReq("2024-05-01", "10:00"))
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	free, err := f.slots.ListFree(context.Background(), professor.ID)
	require.NoError(t, err)
	assert.Len(t, free, 1)
}

func TestBookValidation(t *testing.T) {
	f := newReservationFixture()
	cases := map[string]dto.BookAppointmentRequest{
		"missing professor": {Date: "2024-05-01", TimeSlot: "10:00"},
		"blank slot":        {ProfessorID: professor.ID, Date: "2024-05-01", TimeSlot: "   "},
		"missing date":      {ProfessorID: professor.ID, TimeSlot: "10:00"},
		"malformed date":    {ProfessorID: professor.ID, Date: "01/05/2024", TimeSlot: "10:00"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.reservations.Book(context.Background(), student, req)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestBookWithoutFreeSlot(t *testing.T) {
	f := newReservationFixture()
	f.publish(t, "2024-05-01", "10:00")

	_, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-02", "10:00"))
	assert.True(t, errors.Is(err, appErrors.ErrSlotUnavailable))

	_, err = f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)

	// A resubmitted booking cannot take the slot twice.
	_, err = f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	assert.True(t, errors.Is(err, appErrors.ErrSlotUnavailable))

	mine, err := f.reservations.ListMine(context.Background(), student)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestBookConcurrentSingleWinner(t *testing.T) {
	f := newReservationFixture()
	f.publish(t, "2024-05-01", "10:00")

	const callers = 50
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		successes   int
		unavailable int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := models.Principal{ID: fmt.Sprintf("student-%d", i), Role: models.RoleStudent}
			_, err := f.reservations.Book(context.Background(), p, bookReq("2024-05-01", "10:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, appErrors.ErrSlotUnavailable):
				unavailable++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, unavailable)
	booked, err := f.appointments.ListByProfessor(context.Background(), professor.ID)
	require.NoError(t, err)
	assert.Len(t, booked, 1)
}

func TestBookRollsBackReservationWhenCreateFails(t *testing.T) {
	f := newReservationFixture()
	slot := f.publish(t, "2024-05-01", "10:00")
	f.appointments.createErr = errors.New("disk full")

	_, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	assert.True(t, errors.Is(err, appErrors.ErrPersistence))
	assert.Equal(t, []string{slot.ID}, f.slots.released)
	assert.Empty(t, f.events.types())

	free, err := f.slots.ListFree(context.Background(), professor.ID)
	require.NoError(t, err)
	assert.Len(t, free, 1)

	f.appointments.createErr = nil
	_, err = f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)
}

func TestBookReserveFailureIsPersistenceError(t *testing.T) {
	f := newReservationFixture()
	f.publish(t, "2024-05-01", "10:00")
	f.slots.reserveErr = context.DeadlineExceeded

	_, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	assert.True(t, errors.Is(err, appErrors.ErrPersistence))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// The write never landed, so a retry succeeds exactly once.
	f.slots.reserveErr = nil
	_, err = f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)
	_, err = f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	assert.True(t, errors.Is(err, appErrors.ErrSlotUnavailable))
}

func TestBookDispatchFailureDoesNotFailBooking(t *testing.T) {
	f := newReservationFixture()
	f.publish(t, "2024-05-01", "10:00")
	f.events.err = errors.New("queue full")

	appt, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)
	assert.NotEmpty(t, appt.ID)
}

func TestCancelReleasesSlot(t *testing.T) {
	f := newReservationFixture()
	f.publish(t, "2024-05-01", "10:00")
	appt, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)

	canceled, err := f.reservations.Cancel(context.Background(), professor, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCanceled, canceled.Status)

	free, err := f.availability.ListFor(context.Background(), student2, professor.ID)
	require.NoError(t, err)
	assert.Len(t, free, 1)

	mine, err := f.reservations.ListMine(context.Background(), student)
	require.NoError(t, err)
	assert.Empty(t, mine)

	// The slot can be booked again by someone else.
	_, err = f.reservations.Book(context.Background(), student2, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, []models.NotificationType{
		models.NotificationAppointmentBooked,
		models.NotificationAppointmentCanceled,
		models.NotificationAppointmentBooked,
	}, f.events.types())
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newReservationFixture()
	f.publish(t, "2024-05-01", "10:00")
	appt, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)

	_, err = f.reservations.Cancel(context.Background(), professor, appt.ID)
	require.NoError(t, err)
	again, err := f.reservations.Cancel(context.Background(), professor, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCanceled, again.Status)
	assert.Len(t, f.slots.released, 1)
	assert.Len(t, f.events.types(), 2)
}

func TestCancelAccessAndLookupErrors(t *testing.T) {
	f := newReservationFixture()
	f.publish(t, "2024-05-01", "10:00")
	appt, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)

	_, err = f.reservations.Cancel(context.Background(), student, appt.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.reservations.Cancel(context.Background(), otherProf, appt.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.reservations.Cancel(context.Background(), professor, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.reservations.Cancel(context.Background(), professor, " ")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	stored, err := f.appointments.FindByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusBooked, stored.Status)
}

func TestCancelRescheduledIsRejected(t *testing.T) {
	f := newReservationFixture()
	appt := &models.Appointment{ProfessorID: professor.ID, StudentID: student.ID, Date: "2024-05-01", TimeSlot: "10:00", Status: models.AppointmentStatusRescheduled}
	require.NoError(t, f.appointments.AppointmentStore.Create(context.Background(), appt))

	_, err := f.reservations.Cancel(context.Background(), professor, appt.ID)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCancelSurvivesReleaseFailure(t *testing.T) {
	f := newReservationFixture()
	f.publish(t, "2024-05-01", "10:00")
	appt, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)
	f.slots.releaseErr = errors.New("connection reset")

	canceled, err := f.reservations.Cancel(context.Background(), professor, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCanceled, canceled.Status)
}

func TestCancelSurvivesMissingSlot(t *testing.T) {
	f := newReservationFixture()
	slot := f.publish(t, "2024-05-01", "10:00")
	appt, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)
	require.True(t, f.slots.Delete(slot.ID))

	canceled, err := f.reservations.Cancel(context.Background(), professor, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCanceled, canceled.Status)
}

func TestCancelFallsBackToTuple(t *testing.T) {
	f := newReservationFixture()
	f.publish(t, "2024-05-01", "10:00")
	_, err := f.slots.ReserveFree(context.Background(), professor.ID, "2024-05-01", "10:00")
	require.NoError(t, err)

	legacy := &models.Appointment{ProfessorID: professor.ID, StudentID: student.ID, Date: "2024-05-01", TimeSlot: "10:00", Status: models.AppointmentStatusBooked}
	require.NoError(t, f.appointments.AppointmentStore.Create(context.Background(), legacy))

	_, err = f.reservations.Cancel(context.Background(), professor, legacy.ID)
	require.NoError(t, err)
	assert.Empty(t, f.slots.released)

	free, err := f.slots.ListFree(context.Background(), professor.ID)
	require.NoError(t, err)
	assert.Len(t, free, 1)
}

func TestCancelLosingRaceLeavesRebookedSlotAlone(t *testing.T) {
	f := newReservationFixture()
	slot := f.publish(t, "2024-05-01", "10:00")
	first, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)

	var rebooked *models.Appointment
	f.appointments.beforeUpdate = func() {
		// A second cancel completes and the freed slot is taken again.
		_, err := f.reservations.Cancel(context.Background(), professor, first.ID)
		require.NoError(t, err)
		rebooked, err = f.reservations.Book(context.Background(), student2, bookReq("2024-05-01", "10:00"))
		require.NoError(t, err)
	}

	canceled, err := f.reservations.Cancel(context.Background(), professor, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCanceled, canceled.Status)
	assert.Equal(t, []string{slot.ID}, f.slots.released)
	assert.Equal(t, []models.NotificationType{
		models.NotificationAppointmentBooked,
		models.NotificationAppointmentCanceled,
		models.NotificationAppointmentBooked,
	}, f.events.types())

	_, err = f.reservations.Book(context.Background(), models.Principal{ID: "student-3", Role: models.RoleStudent}, bookReq("2024-05-01", "10:00"))
	assert.True(t, errors.Is(err, appErrors.ErrSlotUnavailable))

	stored, err := f.appointments.FindByID(context.Background(), rebooked.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusBooked, stored.Status)
}

func TestCancelLosingRaceToRescheduleIsRejected(t *testing.T) {
	f := newReservationFixture()
	f.publish(t, "2024-05-01", "10:00")
	appt, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)

	f.appointments.beforeUpdate = func() {
		_, err := f.appointments.AppointmentStore.UpdateStatus(context.Background(), appt.ID, models.AppointmentStatusBooked, models.AppointmentStatusRescheduled, time.Now())
		require.NoError(t, err)
	}

	_, err = f.reservations.Cancel(context.Background(), professor, appt.ID)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, f.slots.released)
}

func TestCancelUpdateFailureIsPersistenceError(t *testing.T) {
	f := newReservationFixture()
	f.publish(t, "2024-05-01", "10:00")
	appt, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)
	f.appointments.updateErr = errors.New("timeout")

	_, err = f.reservations.Cancel(context.Background(), professor, appt.ID)
	assert.True(t, errors.Is(err, appErrors.ErrPersistence))
	assert.Empty(t, f.slots.released)
}

func TestListMineRequiresStudent(t *testing.T) {
	f := newReservationFixture()
	_, err := f.reservations.ListMine(context.Background(), professor)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	mine, err := f.reservations.ListMine(context.Background(), student)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestDuplicatePublishLeavesSecondSlotFree(t *testing.T) {
	f := newReservationFixture()
	first := f.publish(t, "2024-05-01", "10:00")
	second := f.publish(t, "2024-05-01", "10:00")
	assert.NotEqual(t, first.ID, second.ID)

	appt, err := f.reservations.Book(context.Background(), student, bookReq("2024-05-01", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, *appt.AvailabilityID)

	free, err := f.availability.ListFor(context.Background(), student, professor.ID)
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, second.ID, free[0].ID)
}
