package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

type blockedDateRepository struct {
	db *DB
}

func (r *blockedDateRepository) Create(ctx context.Context, blocked *model.BlockedDate) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, b := range r.db.blocked {
		if b.BranchID == blocked.BranchID && b.Date.Equal(blocked.Date) {
			return repository.ErrDuplicate
		}
	}
	r.db.stamp(&blocked.Base)
	cp := *blocked
	r.db.blocked[cp.ID] = &cp
	return nil
}

func (r *blockedDateRepository) Get(ctx context.Context, id uuid.UUID) (*model.BlockedDate, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	b, ok := r.db.blocked[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *blockedDateRepository) FindActive(ctx context.Context, date model.Date, branchID uuid.UUID) (*model.BlockedDate, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, b := range r.db.blocked {
		if b.Active && b.BranchID == branchID && b.Date.Equal(date) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *blockedDateRepository) Exists(ctx context.Context, date model.Date, branchID uuid.UUID) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, b := range r.db.blocked {
		if b.BranchID == branchID && b.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *blockedDateRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	b, ok := r.db.blocked[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Active = active
	b.UpdatedAt = r.db.now()
	return nil
}

func (r *blockedDateRepository) ListByBranch(ctx context.Context, branchID uuid.UUID, from *model.Date) ([]*model.BlockedDate, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.BlockedDate
	for _, b := range r.db.blocked {
		if b.BranchID != branchID {
			continue
		}
		if from != nil && b.Date.Before(*from) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
