package dentist

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

type Service struct {
	dentists  repository.DentistRepository
	schedules repository.ScheduleRepository
	logger    zerolog.Logger
}

func NewService(dentists repository.DentistRepository, schedules repository.ScheduleRepository, logger zerolog.Logger) *Service {
	return &Service{
		dentists:  dentists,
		schedules: schedules,
		logger:    logger,
	}
}

// CreateDentist adds a dentist working the default Monday to Friday week.
func (s *Service) CreateDentist(ctx context.Context, req model.CreateDentistRequest) (*model.Dentist, error) {
	dentist := &model.Dentist{
		Base:           model.Base{ID: uuid.New()},
		UserID:         req.UserID,
		Name:           req.Name,
		Email:          req.Email,
		Specialization: req.Specialization,
		Active:         true,
	}

	err := s.dentists.Create(ctx, dentist, model.DefaultWeeklySchedule(dentist.ID))
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Conflict("a dentist with this email already exists", err)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to create dentist: %w", err))
	}

	s.logger.Info().Str("dentist_id", dentist.ID.String()).Msg("Dentist created")
	return dentist, nil
}

func (s *Service) GetDentist(ctx context.Context, id uuid.UUID) (*model.Dentist, error) {
	d, err := s.dentists.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("dentist", err)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return d, nil
}

func (s *Service) ListDentists(ctx context.Context, activeOnly bool) ([]*model.Dentist, error) {
	list, err := s.dentists.List(ctx, activeOnly)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if list == nil {
		list = []*model.Dentist{}
	}
	return list, nil
}

func (s *Service) GetSchedule(ctx context.Context, dentistID uuid.UUID) ([]*model.DentistSchedule, error) {
	if _, err := s.GetDentist(ctx, dentistID); err != nil {
		return nil, err
	}
	entries, err := s.schedules.List(ctx, dentistID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if entries == nil {
		entries = []*model.DentistSchedule{}
	}
	return entries, nil
}

// SaveSchedule replaces the whole weekly schedule. Days missing from entries
// become days off.
func (s *Service) SaveSchedule(ctx context.Context, dentistID uuid.UUID, entries []model.ScheduleEntry) ([]*model.DentistSchedule, error) {
	if err := ValidateSchedule(entries); err != nil {
		return nil, err
	}
	if _, err := s.GetDentist(ctx, dentistID); err != nil {
		return nil, err
	}

	rows := make([]*model.DentistSchedule, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &model.DentistSchedule{
			ID:        uuid.New(),
			DentistID: dentistID,
			DayOfWeek: e.DayOfWeek,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
			Active:    e.Active,
		})
	}

	err := s.schedules.Replace(ctx, dentistID, rows)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound("dentist", err)
	case errors.Is(err, repository.ErrDuplicate):
		return nil, apperr.BadRequest("each day of the week may appear only once", err)
	case err != nil:
		return nil, apperr.Internal(fmt.Errorf("failed to save schedule: %w", err))
	}

	s.logger.Info().
		Str("dentist_id", dentistID.String()).
		Int("entries", len(rows)).
		Msg("Dentist schedule replaced")
	return s.schedules.List(ctx, dentistID)
}

// ValidateSchedule checks day range, day uniqueness and that active days
// start before they end.
func ValidateSchedule(entries []model.ScheduleEntry) error {
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
			return apperr.BadRequest(fmt.Sprintf("day_of_week %d is out of range 0-6", e.DayOfWeek), nil)
		}
		if seen[e.DayOfWeek] {
			return apperr.BadRequest(fmt.Sprintf("day_of_week %d appears more than once", e.DayOfWeek), nil)
		}
		seen[e.DayOfWeek] = true

		if !e.StartTime.Valid() || !e.EndTime.Valid() {
			return apperr.BadRequest("start_time and end_time must be valid times of day", nil)
		}
		if e.Active && e.StartTime >= e.EndTime {
			return apperr.BadRequest(fmt.Sprintf("day_of_week %d: start_time must be before end_time", e.DayOfWeek), nil)
		}
	}
	return nil
}
