package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

type catalogRepository struct {
	BaseRepository
}

func NewCatalogRepository(base BaseRepository) repository.CatalogRepository {
	return &catalogRepository{base}
}

const (
	branchColumns  = `id, name, address, phone, is_active, created_at, updated_at`
	serviceColumns = `id, name, description, duration_minutes, price, is_active, created_at, updated_at`
)

func stampBase(b *model.Base) {
	now := time.Now().UTC()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = now
	b.UpdatedAt = now
}

func (r *catalogRepository) GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	var branch model.Branch
	if err := r.db.GetContext(ctx, &branch, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", mapError(err))
	}
	return &branch, nil
}

func (r *catalogRepository) ListBranches(ctx context.Context) ([]*model.Branch, error) {
	var branches []*model.Branch
	if err := r.db.SelectContext(ctx, &branches, `SELECT `+branchColumns+` FROM branches ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, nil
}

func (r *catalogRepository) CreateBranch(ctx context.Context, branch *model.Branch) error {
	stampBase(&branch.Base)
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO branches (`+branchColumns+`)
		VALUES (:id, :name, :address, :phone, :is_active, :created_at, :updated_at)`, branch)
	if err != nil {
		return fmt.Errorf("failed to create branch: %w", mapError(err))
	}
	return nil
}

func (r *catalogRepository) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var service model.Service
	if err := r.db.GetContext(ctx, &service, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get service: %w", mapError(err))
	}
	return &service, nil
}

func (r *catalogRepository) ListServices(ctx context.Context) ([]*model.Service, error) {
	var services []*model.Service
	if err := r.db.SelectContext(ctx, &services, `SELECT `+serviceColumns+` FROM services ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func (r *catalogRepository) CreateService(ctx context.Context, service *model.Service) error {
	stampBase(&service.Base)
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO services (`+serviceColumns+`)
		VALUES (:id, :name, :description, :duration_minutes, :price, :is_active, :created_at, :updated_at)`, service)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", mapError(err))
	}
	return nil
}

type timeSlotRepository struct {
	BaseRepository
}

func NewTimeSlotRepository(base BaseRepository) repository.TimeSlotRepository {
	return &timeSlotRepository{base}
}

func (r *timeSlotRepository) List(ctx context.Context, activeOnly bool) ([]*model.TimeSlot, error) {
	var slots []*model.TimeSlot
	err := r.db.SelectContext(ctx, &slots, `
		SELECT id, slot_time, is_active, created_at
		FROM time_slots
		WHERE ($1 = FALSE OR is_active)
		ORDER BY slot_time`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}
	return slots, nil
}

func (r *timeSlotRepository) Create(ctx context.Context, slot *model.TimeSlot) error {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.CreatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO time_slots (id, slot_time, is_active, created_at)
		VALUES (:id, :slot_time, :is_active, :created_at)`, slot)
	if err != nil {
		return fmt.Errorf("failed to create time slot: %w", mapError(err))
	}
	return nil
}

func (r *timeSlotRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE time_slots SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update time slot: %w", err)
	}
	return expectOneRow(res, repository.ErrNotFound)
}
