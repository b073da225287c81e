package model

import (
	"time"

	"github.com/google/uuid"
)

// DentistSchedule is one weekly recurring working window of a dentist.
type DentistSchedule struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DentistID uuid.UUID `db:"dentist_id" json:"dentist_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime TimeOfDay `db:"start_time" json:"start_time"`
	EndTime   TimeOfDay `db:"end_time" json:"end_time"`
	Active    bool      `db:"is_active" json:"active"`
}

// Covers reports whether t falls in [StartTime, EndTime).
func (s *DentistSchedule) Covers(t TimeOfDay) bool {
	return s.Active && s.StartTime <= t && t < s.EndTime
}

// DefaultWeeklySchedule is seeded for every new dentist: Monday to Friday, 09:00-17:00.
func DefaultWeeklySchedule(dentistID uuid.UUID) []*DentistSchedule {
	entries := make([]*DentistSchedule, 0, 5)
	for day := time.Monday; day <= time.Friday; day++ {
		entries = append(entries, &DentistSchedule{
			ID:        uuid.New(),
			DentistID: dentistID,
			DayOfWeek: int(day),
			StartTime: NewTimeOfDay(9, 0),
			EndTime:   NewTimeOfDay(17, 0),
			Active:    true,
		})
	}
	return entries
}

// TimeSlot is a clinic-wide bookable time of day.
type TimeSlot struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Time      TimeOfDay `db:"slot_time" json:"time"`
	Active    bool      `db:"is_active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DefaultSlotTimes is the half-hourly catalog from 09:00 to 16:30.
func DefaultSlotTimes() []TimeOfDay {
	var times []TimeOfDay
	for t := NewTimeOfDay(9, 0); t < NewTimeOfDay(17, 0); t += 30 {
		times = append(times, t)
	}
	return times
}

// BlockedDate closes a branch for a day.
type BlockedDate struct {
	Base
	BranchID  uuid.UUID  `db:"branch_id" json:"branch_id"`
	Date      Date       `db:"blocked_date" json:"date"`
	Reason    string     `db:"reason" json:"reason"`
	Active    bool       `db:"is_active" json:"active"`
	CreatedBy *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
}

// ScheduleEntry is one day of a weekly schedule as submitted by staff.
type ScheduleEntry struct {
	DayOfWeek int       `json:"day_of_week" binding:"min=0,max=6"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	Active    bool      `json:"active"`
}

type BlockDateRequest struct {
	BranchID uuid.UUID `json:"branch_id" binding:"required"`
	Date     Date      `json:"date"`
	Reason   string    `json:"reason" binding:"max=255"`
}
