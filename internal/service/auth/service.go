package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/pkg/auth"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/security"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	users  repository.UserRepository
	jwtSvc auth.JWTService
	hasher security.PasswordHasher
	logger zerolog.Logger
}

func NewService(users repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher, logger zerolog.Logger) *Service {
	return &Service{
		users:  users,
		jwtSvc: jwtSvc,
		hasher: hasher,
		logger: logger,
	}
}

// Login checks the password and issues an access token carrying the role
// and the linked patient or dentist.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized(ErrInvalidCredentials)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !user.Active {
		return nil, apperr.Unauthorized(errors.New("account disabled"))
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperr.Unauthorized(ErrInvalidCredentials)
	}

	token, expiresAt, err := s.jwtSvc.GenerateAccessToken(auth.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		PatientID: user.PatientID,
		DentistID: user.DentistID,
	})
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to generate token: %w", err))
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Failed to update last login")
	}

	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Role:        user.Role,
	}, nil
}

// Authenticate turns a bearer token into the actor a request runs as.
func (s *Service) Authenticate(token string) (model.Actor, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return model.Actor{}, apperr.Unauthorized(err)
	}

	role := model.Role(claims.Role)
	switch role {
	case model.RoleAdmin, model.RoleDentist, model.RolePatient:
	default:
		return model.Actor{}, apperr.Unauthorized(fmt.Errorf("unknown role %q", claims.Role))
	}

	return model.Actor{
		UserID:    claims.UserID,
		Role:      role,
		PatientID: claims.PatientID,
		DentistID: claims.DentistID,
	}, nil
}
