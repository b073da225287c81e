package dentist_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/service/dentist"
	"github.com/jwalitptl/dental-api/internal/testutil"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
)

func newService(f *testutil.Fixture) *dentist.Service {
	return dentist.NewService(f.Store.Dentists, f.Store.Schedules, zerolog.Nop())
}

func TestCreateDentist_SeedsDefaultWeek(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := newService(f)
	ctx := context.Background()

	d, err := svc.CreateDentist(ctx, model.CreateDentistRequest{Name: "Dr. Chen", Email: "chen@example.com"})
	require.NoError(t, err)
	assert.True(t, d.Active)

	schedule, err := svc.GetSchedule(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, schedule, 5)
	for i, entry := range schedule {
		assert.Equal(t, int(time.Monday)+i, entry.DayOfWeek)
		assert.Equal(t, "09:00", entry.StartTime.String())
		assert.Equal(t, "17:00", entry.EndTime.String())
	}

	list, err := svc.ListDentists(ctx, true)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestSaveSchedule(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := newService(f)
	ctx := context.Background()

	saved, err := svc.SaveSchedule(ctx, f.Dentist.ID, []model.ScheduleEntry{
		{DayOfWeek: 6, StartTime: model.NewTimeOfDay(10, 0), EndTime: model.NewTimeOfDay(14, 0), Active: true},
		{DayOfWeek: 2, StartTime: model.NewTimeOfDay(8, 0), EndTime: model.NewTimeOfDay(12, 0), Active: true},
		{DayOfWeek: 3, Active: false},
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, 2, saved[0].DayOfWeek)
	assert.Equal(t, 6, saved[2].DayOfWeek)

	monday, err := f.Store.Schedules.GetForDay(ctx, f.Dentist.ID, int(time.Monday))
	assert.Nil(t, monday)
	assert.Error(t, err)
}

func TestSaveSchedule_Validation(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := newService(f)
	ctx := context.Background()

	cases := map[string][]model.ScheduleEntry{
		"day out of range": {{DayOfWeek: 7, StartTime: 540, EndTime: 600, Active: true}},
		"duplicate day": {
			{DayOfWeek: 1, StartTime: 540, EndTime: 600, Active: true},
			{DayOfWeek: 1, StartTime: 700, EndTime: 800, Active: true},
		},
		"start after end":  {{DayOfWeek: 1, StartTime: 600, EndTime: 540, Active: true}},
		"empty active day": {{DayOfWeek: 1, StartTime: 600, EndTime: 600, Active: true}},
	}
	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.SaveSchedule(ctx, f.Dentist.ID, entries)
			assert.True(t, apperr.HasCode(err, apperr.ErrBadRequest), "got %v", err)
		})
	}

	// Inactive days are not checked for ordering.
	_, err := svc.SaveSchedule(ctx, f.Dentist.ID, []model.ScheduleEntry{{DayOfWeek: 1, StartTime: 600, EndTime: 540}})
	require.NoError(t, err)

	_, err = svc.SaveSchedule(ctx, uuid.New(), nil)
	assert.True(t, apperr.HasCode(err, apperr.ErrNotFound))
}

func TestGetDentist_NotFound(t *testing.T) {
	f := testutil.NewFixture(t)
	_, err := newService(f).GetDentist(context.Background(), uuid.New())
	assert.True(t, apperr.HasCode(err, apperr.ErrNotFound))
}
