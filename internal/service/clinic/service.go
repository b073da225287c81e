package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
)

// Service manages the clinic's reference data: branches, treatments and
// the days a branch is closed.
type Service struct {
	catalog repository.CatalogRepository
	blocked repository.BlockedDateRepository
	logger  zerolog.Logger
}

func NewService(catalog repository.CatalogRepository, blocked repository.BlockedDateRepository, logger zerolog.Logger) *Service {
	return &Service{
		catalog: catalog,
		blocked: blocked,
		logger:  logger,
	}
}

func (s *Service) CreateBranch(ctx context.Context, req model.CreateBranchRequest) (*model.Branch, error) {
	branch := &model.Branch{
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
		Active:  true,
	}
	if err := s.catalog.CreateBranch(ctx, branch); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("a branch with this name already exists", err)
		}
		return nil, apperr.Internal(fmt.Errorf("failed to create branch: %w", err))
	}
	return branch, nil
}

func (s *Service) ListBranches(ctx context.Context) ([]*model.Branch, error) {
	list, err := s.catalog.ListBranches(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if list == nil {
		list = []*model.Branch{}
	}
	return list, nil
}

func (s *Service) GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	b, err := s.catalog.GetBranch(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("branch", err)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return b, nil
}

func (s *Service) CreateService(ctx context.Context, req model.CreateServiceRequest) (*model.Service, error) {
	service := &model.Service{
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		Active:          true,
	}
	if err := s.catalog.CreateService(ctx, service); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("a service with this name already exists", err)
		}
		return nil, apperr.Internal(fmt.Errorf("failed to create service: %w", err))
	}
	return service, nil
}

func (s *Service) ListServices(ctx context.Context) ([]*model.Service, error) {
	list, err := s.catalog.ListServices(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if list == nil {
		list = []*model.Service{}
	}
	return list, nil
}

// BlockDate closes a branch for a day. A (branch, date) pair can only be
// blocked once; toggle the existing row instead.
func (s *Service) BlockDate(ctx context.Context, req model.BlockDateRequest, actor model.Actor) (*model.BlockedDate, error) {
	if req.Date.IsZero() {
		return nil, apperr.BadRequest("date is required", nil)
	}
	if _, err := s.GetBranch(ctx, req.BranchID); err != nil {
		return nil, err
	}

	exists, err := s.blocked.Exists(ctx, req.Date, req.BranchID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, apperr.Conflict(fmt.Sprintf("%s is already blocked for this branch", req.Date), nil)
	}

	blocked := &model.BlockedDate{
		BranchID: req.BranchID,
		Date:     req.Date,
		Reason:   req.Reason,
		Active:   true,
	}
	if actor.UserID != uuid.Nil {
		id := actor.UserID
		blocked.CreatedBy = &id
	}

	// Two admins racing past Exists end up on the unique constraint.
	if err := s.blocked.Create(ctx, blocked); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(fmt.Sprintf("%s is already blocked for this branch", req.Date), err)
		}
		return nil, apperr.Internal(fmt.Errorf("failed to block date: %w", err))
	}

	s.logger.Info().
		Str("branch_id", req.BranchID.String()).
		Str("date", req.Date.String()).
		Str("reason", req.Reason).
		Msg("Date blocked")
	return blocked, nil
}

// SetBlockedDateActive toggles a block. Rows are never deleted.
func (s *Service) SetBlockedDateActive(ctx context.Context, id uuid.UUID, active bool) (*model.BlockedDate, error) {
	err := s.blocked.SetActive(ctx, id, active)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("blocked date", err)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	b, err := s.blocked.Get(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return b, nil
}

func (s *Service) ListBlockedDates(ctx context.Context, branchID uuid.UUID, from *model.Date) ([]*model.BlockedDate, error) {
	if _, err := s.GetBranch(ctx, branchID); err != nil {
		return nil, err
	}
	list, err := s.blocked.ListByBranch(ctx, branchID, from)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if list == nil {
		list = []*model.BlockedDate{}
	}
	return list, nil
}
