package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

type catalogRepository struct {
	db *DB
}

func (r *catalogRepository) GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	b, ok := r.db.branches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *catalogRepository) ListBranches(ctx context.Context) ([]*model.Branch, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*model.Branch, 0, len(r.db.branches))
	for _, b := range r.db.branches {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *catalogRepository) CreateBranch(ctx context.Context, branch *model.Branch) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.stamp(&branch.Base)
	cp := *branch
	r.db.branches[cp.ID] = &cp
	return nil
}

func (r *catalogRepository) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *catalogRepository) ListServices(ctx context.Context) ([]*model.Service, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*model.Service, 0, len(r.db.services))
	for _, s := range r.db.services {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *catalogRepository) CreateService(ctx context.Context, service *model.Service) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.stamp(&service.Base)
	cp := *service
	r.db.services[cp.ID] = &cp
	return nil
}

type timeSlotRepository struct {
	db *DB
}

func (r *timeSlotRepository) List(ctx context.Context, activeOnly bool) ([]*model.TimeSlot, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.TimeSlot
	for _, s := range r.db.slots {
		if activeOnly && !s.Active {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (r *timeSlotRepository) Create(ctx context.Context, slot *model.TimeSlot) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, s := range r.db.slots {
		if s.Time == slot.Time {
			return repository.ErrDuplicate
		}
	}
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.CreatedAt = r.db.now()
	cp := *slot
	r.db.slots[cp.ID] = &cp
	return nil
}

func (r *timeSlotRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.Active = active
	return nil
}
