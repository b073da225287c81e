package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

const blockedDateColumns = `id, branch_id, blocked_date, reason, is_active, created_by, created_at, updated_at`

type blockedDateRepository struct {
	BaseRepository
}

func NewBlockedDateRepository(base BaseRepository) repository.BlockedDateRepository {
	return &blockedDateRepository{base}
}

// Create relies on blocked_dates_branch_date_key for concurrent duplicates.
func (r *blockedDateRepository) Create(ctx context.Context, blocked *model.BlockedDate) error {
	stampBase(&blocked.Base)
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO blocked_dates (`+blockedDateColumns+`)
		VALUES (:id, :branch_id, :blocked_date, :reason, :is_active, :created_by, :created_at, :updated_at)`, blocked)
	if err != nil {
		return fmt.Errorf("failed to create blocked date: %w", mapError(err))
	}
	return nil
}

func (r *blockedDateRepository) Get(ctx context.Context, id uuid.UUID) (*model.BlockedDate, error) {
	var blocked model.BlockedDate
	err := r.db.GetContext(ctx, &blocked, `SELECT `+blockedDateColumns+` FROM blocked_dates WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get blocked date: %w", mapError(err))
	}
	return &blocked, nil
}

func (r *blockedDateRepository) FindActive(ctx context.Context, date model.Date, branchID uuid.UUID) (*model.BlockedDate, error) {
	var blocked model.BlockedDate
	err := r.db.GetContext(ctx, &blocked, `
		SELECT `+blockedDateColumns+` FROM blocked_dates
		WHERE blocked_date = $1 AND branch_id = $2 AND is_active`, date, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to find blocked date: %w", mapError(err))
	}
	return &blocked, nil
}

func (r *blockedDateRepository) Exists(ctx context.Context, date model.Date, branchID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM blocked_dates WHERE blocked_date = $1 AND branch_id = $2)`,
		date, branchID)
	if err != nil {
		return false, fmt.Errorf("failed to check blocked date: %w", err)
	}
	return exists, nil
}

func (r *blockedDateRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE blocked_dates SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update blocked date: %w", err)
	}
	return expectOneRow(res, repository.ErrNotFound)
}

func (r *blockedDateRepository) ListByBranch(ctx context.Context, branchID uuid.UUID, from *model.Date) ([]*model.BlockedDate, error) {
	var blocked []*model.BlockedDate
	err := r.db.SelectContext(ctx, &blocked, `
		SELECT `+blockedDateColumns+` FROM blocked_dates
		WHERE branch_id = $1 AND ($2::date IS NULL OR blocked_date >= $2)
		ORDER BY blocked_date`, branchID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked dates: %w", err)
	}
	return blocked, nil
}
