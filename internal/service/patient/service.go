package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/service/availability"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/security"
)

type Service struct {
	users        repository.UserRepository
	patients     repository.PatientRepository
	availability *availability.Service
	hasher       security.PasswordHasher
	logger       zerolog.Logger
}

func NewService(users repository.UserRepository, patients repository.PatientRepository, avail *availability.Service, hasher security.PasswordHasher, logger zerolog.Logger) *Service {
	return &Service{
		users:        users,
		patients:     patients,
		availability: avail,
		hasher:       hasher,
		logger:       logger,
	}
}

// Register creates a patient record and its login in one step.
func (s *Service) Register(ctx context.Context, req model.RegisterPatientRequest) (*model.Patient, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := s.hasher.Hash(req.Password)
	if errors.Is(err, security.ErrPasswordTooShort) {
		return nil, apperr.BadRequest(fmt.Sprintf("password must be at least %d characters", security.MinPasswordLen), err)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	patient := &model.Patient{
		Base:      model.Base{ID: uuid.New()},
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     email,
		Phone:     req.Phone,
	}
	user := &model.User{
		Base:         model.Base{ID: uuid.New()},
		Email:        email,
		PasswordHash: hash,
		Role:         model.RolePatient,
		Active:       true,
	}
	patient.UserID = &user.ID

	if err := s.users.CreateWithPatient(ctx, user, patient); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered", err)
		}
		return nil, apperr.Internal(fmt.Errorf("failed to register patient: %w", err))
	}

	s.logger.Info().
		Str("patient_id", patient.ID.String()).
		Str("user_id", user.ID.String()).
		Msg("Patient registered")
	return patient, nil
}

// GetPatient lets staff read any patient and patients read themselves.
func (s *Service) GetPatient(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Patient, error) {
	if !actor.Role.IsStaff() && !actor.OwnsPatient(id) {
		return nil, apperr.Forbidden("you do not have access to this patient")
	}
	p, err := s.patients.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("patient", err)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

// Eligibility reports whether the calling patient may book online.
func (s *Service) Eligibility(ctx context.Context, actor model.Actor) (*model.BookingEligibility, error) {
	if actor.Role != model.RolePatient || actor.PatientID == nil {
		return nil, apperr.Forbidden("only patients have a booking eligibility")
	}
	return s.availability.Eligibility(ctx, *actor.PatientID)
}
