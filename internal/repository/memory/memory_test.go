package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/repository/memory"
)

var day = model.NewDate(2026, time.March, 11)

func appt(dentistID *uuid.UUID, date model.Date, at string, status model.AppointmentStatus) *model.Appointment {
	return &model.Appointment{
		PatientID: uuid.New(),
		DentistID: dentistID,
		ServiceID: uuid.New(),
		BranchID:  uuid.New(),
		Date:      date,
		Time:      model.MustParseTimeOfDay(at),
		Status:    status,
	}
}

func TestAppointments_LaneUniqueness(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dentist := uuid.New()

	first := appt(&dentist, day, "09:00", model.AppointmentStatusPending)
	require.NoError(t, store.Appointments.Create(ctx, first))
	assert.Equal(t, "APT000001", first.Reference)

	err := store.Appointments.Create(ctx, appt(&dentist, day, "09:00", model.AppointmentStatusConfirmed))
	assert.ErrorIs(t, err, repository.ErrSlotTaken)

	// other dentist and the null lane are separate lanes
	other := uuid.New()
	require.NoError(t, store.Appointments.Create(ctx, appt(&other, day, "09:00", model.AppointmentStatusPending)))
	require.NoError(t, store.Appointments.Create(ctx, appt(nil, day, "09:00", model.AppointmentStatusPending)))
	assert.ErrorIs(t, store.Appointments.Create(ctx, appt(nil, day, "09:00", model.AppointmentStatusPending)), repository.ErrSlotTaken)

	// inactive rows never hold the lane
	require.NoError(t, store.Appointments.Create(ctx, appt(&dentist, day, "09:00", model.AppointmentStatusCancelled)))

	taken, err := store.Appointments.IsSlotTaken(ctx, day, model.MustParseTimeOfDay("09:00"), &dentist, &first.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	times, err := store.Appointments.TakenTimes(ctx, day, &dentist, nil)
	require.NoError(t, err)
	assert.Equal(t, []model.TimeOfDay{model.MustParseTimeOfDay("09:00")}, times)
}

func TestAppointments_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dentist := uuid.New()

	a := appt(&dentist, day, "10:00", model.AppointmentStatusPending)
	require.NoError(t, store.Appointments.Create(ctx, a))

	notes := "called ahead"
	require.NoError(t, store.Appointments.UpdateStatus(ctx, a.ID,
		model.AppointmentStatusPending, model.AppointmentStatusCancelled, &notes, nil))

	err := store.Appointments.UpdateStatus(ctx, a.ID,
		model.AppointmentStatusPending, model.AppointmentStatusConfirmed, nil, nil)
	assert.ErrorIs(t, err, repository.ErrStaleStatus)

	got, err := store.Appointments.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, got.Status)
	assert.Equal(t, "called ahead", got.Notes)

	// the freed slot is taken again, so reactivating the old row conflicts
	require.NoError(t, store.Appointments.Create(ctx, appt(&dentist, day, "10:00", model.AppointmentStatusPending)))
	err = store.Appointments.UpdateStatus(ctx, a.ID,
		model.AppointmentStatusCancelled, model.AppointmentStatusPending, nil, nil)
	assert.ErrorIs(t, err, repository.ErrSlotTaken)

	assert.ErrorIs(t, store.Appointments.UpdateStatus(ctx, uuid.New(),
		model.AppointmentStatusPending, model.AppointmentStatusCancelled, nil, nil), repository.ErrNotFound)
}

func TestAppointments_Reschedule(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dentist := uuid.New()

	a := appt(&dentist, day, "10:00", model.AppointmentStatusConfirmed)
	b := appt(&dentist, day, "11:00", model.AppointmentStatusConfirmed)
	require.NoError(t, store.Appointments.Create(ctx, a))
	require.NoError(t, store.Appointments.Create(ctx, b))

	// moving onto its own slot is allowed
	require.NoError(t, store.Appointments.Reschedule(ctx, a.ID, model.AppointmentStatusConfirmed, day, a.Time, nil))

	err := store.Appointments.Reschedule(ctx, a.ID, model.AppointmentStatusConfirmed, day, b.Time, nil)
	assert.ErrorIs(t, err, repository.ErrSlotTaken)

	err = store.Appointments.Reschedule(ctx, a.ID, model.AppointmentStatusPending, day.AddDays(1), a.Time, nil)
	assert.ErrorIs(t, err, repository.ErrStaleStatus)
}

func TestAppointments_ListAndOverdue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dentist := uuid.New()

	old := appt(&dentist, day.AddDays(-5), "09:00", model.AppointmentStatusPending)
	older := appt(&dentist, day.AddDays(-9), "09:00", model.AppointmentStatusConfirmed)
	done := appt(&dentist, day.AddDays(-3), "09:00", model.AppointmentStatusCompleted)
	future := appt(&dentist, day.AddDays(2), "09:00", model.AppointmentStatusPending)
	for _, a := range []*model.Appointment{old, older, done, future} {
		require.NoError(t, store.Appointments.Create(ctx, a))
	}

	overdue, err := store.Appointments.ListOverdue(ctx, day, 10)
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, older.ID, overdue[0].ID)
	assert.Equal(t, old.ID, overdue[1].ID)

	overdue, err = store.Appointments.ListOverdue(ctx, day, 1)
	require.NoError(t, err)
	assert.Len(t, overdue, 1)

	pending := model.AppointmentStatusPending
	list, err := store.Appointments.List(ctx, &model.AppointmentFilters{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	from := day
	list, err = store.Appointments.List(ctx, &model.AppointmentFilters{From: &from})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, future.ID, list[0].ID)

	list, err = store.Appointments.List(ctx, &model.AppointmentFilters{Limit: 2, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPatients_RecordNoShowKeepsLatestDate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	p := &model.Patient{FirstName: "Sam", LastName: "Ng", Email: "sam@example.com"}
	require.NoError(t, store.Patients.Create(ctx, p))

	require.NoError(t, store.Patients.RecordNoShow(ctx, p.ID, day))
	require.NoError(t, store.Patients.RecordNoShow(ctx, p.ID, day.AddDays(-4)))

	got, err := store.Patients.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NoShowCount)
	require.NotNil(t, got.LastNoShowDate)
	assert.True(t, got.LastNoShowDate.Equal(day))
}

func TestBlockedDates_UniquePerBranch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	branch := uuid.New()

	b := &model.BlockedDate{BranchID: branch, Date: day, Reason: "Holiday", Active: true}
	require.NoError(t, store.BlockedDates.Create(ctx, b))
	assert.ErrorIs(t, store.BlockedDates.Create(ctx, &model.BlockedDate{BranchID: branch, Date: day, Active: true}), repository.ErrDuplicate)
	require.NoError(t, store.BlockedDates.Create(ctx, &model.BlockedDate{BranchID: uuid.New(), Date: day, Active: true}))

	found, err := store.BlockedDates.FindActive(ctx, day, branch)
	require.NoError(t, err)
	assert.Equal(t, "Holiday", found.Reason)

	require.NoError(t, store.BlockedDates.SetActive(ctx, b.ID, false))
	_, err = store.BlockedDates.FindActive(ctx, day, branch)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUsers_CreateWithPatient(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	u := &model.User{Email: "new@example.com", Role: model.RolePatient, Active: true}
	p := &model.Patient{FirstName: "New", LastName: "Patient", Email: "new@example.com"}
	require.NoError(t, store.Users.CreateWithPatient(ctx, u, p))
	require.NotNil(t, u.PatientID)
	assert.Equal(t, p.ID, *u.PatientID)

	dup := &model.User{Email: "NEW@example.com", Role: model.RolePatient}
	err := store.Users.CreateWithPatient(ctx, dup, &model.Patient{FirstName: "X", LastName: "Y", Email: "new@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestOutbox_EventsRecordedWithChanges(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dentist := uuid.New()

	a := appt(&dentist, day, "09:00", model.AppointmentStatusPending)
	require.NoError(t, store.Appointments.Create(ctx, a))

	event, err := model.NewOutboxEvent(model.EventAppointmentStatusChanged, a.ID, map[string]string{"to": "confirmed"})
	require.NoError(t, err)
	require.NoError(t, store.Appointments.UpdateStatus(ctx, a.ID,
		model.AppointmentStatusPending, model.AppointmentStatusConfirmed, nil, event))

	pending, err := store.Outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, store.Outbox.MarkProcessed(ctx, pending[0].ID))
	retryAt := time.Now().Add(time.Hour)
	require.NoError(t, store.Outbox.MarkFailed(ctx, pending[1].ID, "broker down", 1, &retryAt))

	pending, err = store.Outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutbox_ClaimHidesEventsUntilLeaseExpires(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	for i := 0; i < 3; i++ {
		event, err := model.NewOutboxEvent(model.EventAppointmentBooked, uuid.New(), map[string]int{"n": i})
		require.NoError(t, err)
		require.NoError(t, store.Outbox.Create(ctx, event))
	}

	first, err := store.Outbox.ClaimPendingEvents(ctx, 2, time.Minute)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := store.Outbox.ClaimPendingEvents(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.NotEqual(t, first[1].ID, second[0].ID)

	none, err := store.Outbox.ClaimPendingEvents(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, none)

	// A worker that dies mid-batch leaves its claim to expire.
	crashed := memory.NewStore()
	event, err := model.NewOutboxEvent(model.EventAppointmentBooked, uuid.New(), map[string]int{"n": 0})
	require.NoError(t, err)
	require.NoError(t, crashed.Outbox.Create(ctx, event))

	claimed, err := crashed.Outbox.ClaimPendingEvents(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	reclaimed, err := crashed.Outbox.ClaimPendingEvents(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, event.ID, reclaimed[0].ID)
}
