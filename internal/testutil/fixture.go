// Package testutil seeds an in-memory store with a small clinic for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/repository/memory"
)

// Now is Tuesday 2026-03-10 10:30 UTC.
var Now = time.Date(2026, time.March, 10, 10, 30, 0, 0, time.UTC)

// CatalogTimes is the slot catalog every fixture starts with.
var CatalogTimes = []string{"08:00", "09:00", "10:00", "11:00", "11:30", "12:00", "14:00", "16:00", "17:00"}

type Fixture struct {
	Store *repository.Store

	Branch      *model.Branch
	OtherBranch *model.Branch
	Service     *model.Service
	// Dentist works the default Monday to Friday 09:00-17:00 week.
	Dentist *model.Dentist
	// MorningDentist works Mondays 09:00-12:00 only.
	MorningDentist *model.Dentist
	Patient        *model.Patient
	Slots          []*model.TimeSlot
}

func NewFixture(t testing.TB) *Fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	f := &Fixture{Store: store}

	f.Branch = &model.Branch{Name: "Downtown", Address: "1 Main St", Active: true}
	require.NoError(t, store.Catalog.CreateBranch(ctx, f.Branch))
	f.OtherBranch = &model.Branch{Name: "Harbour", Address: "9 Pier Rd", Active: true}
	require.NoError(t, store.Catalog.CreateBranch(ctx, f.OtherBranch))

	f.Service = &model.Service{Name: "Cleaning", DurationMinutes: 30, Price: 80, Active: true}
	require.NoError(t, store.Catalog.CreateService(ctx, f.Service))

	f.Dentist = &model.Dentist{Name: "Dr. Adams", Email: "adams@example.com", Active: true}
	f.Dentist.ID = uuid.New()
	require.NoError(t, store.Dentists.Create(ctx, f.Dentist, model.DefaultWeeklySchedule(f.Dentist.ID)))

	f.MorningDentist = &model.Dentist{Name: "Dr. Brook", Email: "brook@example.com", Active: true}
	require.NoError(t, store.Dentists.Create(ctx, f.MorningDentist, []*model.DentistSchedule{{
		DayOfWeek: int(time.Monday),
		StartTime: model.NewTimeOfDay(9, 0),
		EndTime:   model.NewTimeOfDay(12, 0),
		Active:    true,
	}}))

	for _, s := range CatalogTimes {
		slot := &model.TimeSlot{Time: model.MustParseTimeOfDay(s), Active: true}
		require.NoError(t, store.TimeSlots.Create(ctx, slot))
		f.Slots = append(f.Slots, slot)
	}

	f.Patient = f.AddPatient(t, "Pat", "pat@example.com", 0, nil)
	return f
}

// Day returns the date offset days from Now.
func Day(offset int) model.Date {
	return model.DateOf(Now).AddDays(offset)
}

// NextWeekday returns the first date after Now falling on wd.
func NextWeekday(wd time.Weekday) model.Date {
	d := model.DateOf(Now).AddDays(1)
	for d.Weekday() != wd {
		d = d.AddDays(1)
	}
	return d
}

func (f *Fixture) AddPatient(t testing.TB, firstName, email string, noShows int, lastNoShow *model.Date) *model.Patient {
	t.Helper()
	p := &model.Patient{
		FirstName:      firstName,
		LastName:       "Tester",
		Email:          email,
		NoShowCount:    noShows,
		LastNoShowDate: lastNoShow,
	}
	require.NoError(t, f.Store.Patients.Create(context.Background(), p))
	return p
}

// AddAppointment inserts an appointment directly, bypassing booking rules.
func (f *Fixture) AddAppointment(t testing.TB, date model.Date, at string, dentistID *uuid.UUID, status model.AppointmentStatus) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		PatientID: f.Patient.ID,
		DentistID: dentistID,
		ServiceID: f.Service.ID,
		BranchID:  f.Branch.ID,
		Date:      date,
		Time:      model.MustParseTimeOfDay(at),
		Status:    status,
	}
	require.NoError(t, f.Store.Appointments.Create(context.Background(), a))
	return a
}

func (f *Fixture) Block(t testing.TB, branchID uuid.UUID, date model.Date, reason string) *model.BlockedDate {
	t.Helper()
	b := &model.BlockedDate{BranchID: branchID, Date: date, Reason: reason, Active: true}
	require.NoError(t, f.Store.BlockedDates.Create(context.Background(), b))
	return b
}
