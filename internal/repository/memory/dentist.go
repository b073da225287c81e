package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

type dentistRepository struct {
	db *DB
}

func (r *dentistRepository) Create(ctx context.Context, dentist *model.Dentist, schedule []*model.DentistSchedule) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.stamp(&dentist.Base)
	cp := *dentist
	r.db.dentists[cp.ID] = &cp
	r.db.schedules[cp.ID] = copySchedule(cp.ID, schedule)
	return nil
}

func (r *dentistRepository) Get(ctx context.Context, id uuid.UUID) (*model.Dentist, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	d, ok := r.db.dentists[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *dentistRepository) List(ctx context.Context, activeOnly bool) ([]*model.Dentist, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.Dentist
	for _, d := range r.db.dentists {
		if activeOnly && !d.Active {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type scheduleRepository struct {
	db *DB
}

func (r *scheduleRepository) GetForDay(ctx context.Context, dentistID uuid.UUID, day int) (*model.DentistSchedule, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, s := range r.db.schedules[dentistID] {
		if s.DayOfWeek == day {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *scheduleRepository) List(ctx context.Context, dentistID uuid.UUID) ([]*model.DentistSchedule, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := copySchedule(dentistID, r.db.schedules[dentistID])
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (r *scheduleRepository) Replace(ctx context.Context, dentistID uuid.UUID, entries []*model.DentistSchedule) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.dentists[dentistID]; !ok {
		return repository.ErrNotFound
	}
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if seen[e.DayOfWeek] {
			return repository.ErrDuplicate
		}
		seen[e.DayOfWeek] = true
	}
	r.db.schedules[dentistID] = copySchedule(dentistID, entries)
	return nil
}

func copySchedule(dentistID uuid.UUID, entries []*model.DentistSchedule) []*model.DentistSchedule {
	out := make([]*model.DentistSchedule, 0, len(entries))
	for _, e := range entries {
		cp := *e
		if cp.ID == uuid.Nil {
			cp.ID = uuid.New()
		}
		cp.DentistID = dentistID
		out = append(out, &cp)
	}
	return out
}
