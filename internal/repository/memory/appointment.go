package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

type appointmentRepository struct {
	db *DB
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if appointment.Status.IsActive() &&
		r.db.laneTakenLocked(appointment.Date, appointment.Time, appointment.Lane(), nil) {
		return repository.ErrSlotTaken
	}

	r.db.stamp(&appointment.Base)
	if appointment.Reference == "" {
		appointment.Reference = r.db.nextReferenceLocked()
	}
	event, err := model.NewOutboxEvent(model.EventAppointmentBooked, appointment.ID, appointment)
	if err != nil {
		return err
	}
	cp := *appointment
	r.db.appointments[cp.ID] = &cp
	r.db.addEventLocked(event)
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	a, ok := r.db.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if filters == nil {
		filters = &model.AppointmentFilters{}
	}
	var out []*model.Appointment
	for _, a := range r.db.appointments {
		if !matches(a, filters) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].Reference < out[j].Reference
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return nil, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func matches(a *model.Appointment, f *model.AppointmentFilters) bool {
	switch {
	case f.BranchID != nil && a.BranchID != *f.BranchID:
		return false
	case f.PatientID != nil && a.PatientID != *f.PatientID:
		return false
	case f.DentistID != nil && (a.DentistID == nil || *a.DentistID != *f.DentistID):
		return false
	case f.Status != nil && a.Status != *f.Status:
		return false
	case f.From != nil && a.Date.Before(*f.From):
		return false
	case f.To != nil && a.Date.After(*f.To):
		return false
	}
	return true
}

func (r *appointmentRepository) IsSlotTaken(ctx context.Context, date model.Date, t model.TimeOfDay, dentistID, excludeID *uuid.UUID) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.db.laneTakenLocked(date, t, model.LaneOf(dentistID), excludeID), nil
}

func (r *appointmentRepository) TakenTimes(ctx context.Context, date model.Date, dentistID, excludeID *uuid.UUID) ([]model.TimeOfDay, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	lane := model.LaneOf(dentistID)
	var times []model.TimeOfDay
	for _, a := range r.db.appointments {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.Status.IsActive() && a.Date.Equal(date) && a.Lane() == lane {
			times = append(times, a.Time)
		}
	}
	return times, nil
}

func (r *appointmentRepository) Reschedule(ctx context.Context, id uuid.UUID, expect model.AppointmentStatus, date model.Date, t model.TimeOfDay, event *model.OutboxEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != expect {
		return repository.ErrStaleStatus
	}
	if r.db.laneTakenLocked(date, t, a.Lane(), &id) {
		return repository.ErrSlotTaken
	}
	a.Date = date
	a.Time = t
	a.UpdatedAt = r.db.now()
	r.db.addEventLocked(event)
	return nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, notes *string, event *model.OutboxEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != from {
		return repository.ErrStaleStatus
	}
	// Reactivation would need the lane to be free again.
	if !from.IsActive() && to.IsActive() && r.db.laneTakenLocked(a.Date, a.Time, a.Lane(), &id) {
		return repository.ErrSlotTaken
	}
	a.Status = to
	if notes != nil {
		a.Notes = *notes
	}
	a.UpdatedAt = r.db.now()
	r.db.addEventLocked(event)
	return nil
}

func (r *appointmentRepository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Notes = notes
	a.UpdatedAt = r.db.now()
	return nil
}

func (r *appointmentRepository) ListOverdue(ctx context.Context, before model.Date, limit int) ([]*model.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.Appointment
	for _, a := range r.db.appointments {
		if a.Status.IsActive() && a.Date.Before(before) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
