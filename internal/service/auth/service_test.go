package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository/memory"
	authsvc "github.com/jwalitptl/dental-api/internal/service/auth"
	"github.com/jwalitptl/dental-api/pkg/auth"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/security"
)

func TestLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	svc := authsvc.NewService(store.Users, auth.NewJWTService("secret", "dental-api", time.Hour), hasher, zerolog.Nop())

	hash, err := hasher.Hash("s3cret-pass")
	require.NoError(t, err)
	dentistID := uuid.New()
	user := &model.User{Email: "dr@example.com", PasswordHash: hash, Role: model.RoleDentist, DentistID: &dentistID, Active: true}
	require.NoError(t, store.Users.Create(ctx, user))

	tok, err := svc.Login(ctx, model.LoginRequest{Email: "DR@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, model.RoleDentist, tok.Role)
	assert.True(t, tok.ExpiresAt.After(time.Now()))

	actor, err := svc.Authenticate(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.UserID)
	assert.Equal(t, model.RoleDentist, actor.Role)
	require.NotNil(t, actor.DentistID)
	assert.Equal(t, dentistID, *actor.DentistID)
	assert.Nil(t, actor.PatientID)

	stored, err := store.Users.GetByEmail(ctx, "dr@example.com")
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLogin_Rejections(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	svc := authsvc.NewService(store.Users, auth.NewJWTService("secret", "dental-api", time.Hour), hasher, zerolog.Nop())

	hash, err := hasher.Hash("s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, store.Users.Create(ctx, &model.User{Email: "on@example.com", PasswordHash: hash, Role: model.RoleAdmin, Active: true}))
	require.NoError(t, store.Users.Create(ctx, &model.User{Email: "off@example.com", PasswordHash: hash, Role: model.RoleAdmin}))

	_, err = svc.Login(ctx, model.LoginRequest{Email: "on@example.com", Password: "wrong-pass"})
	assert.True(t, apperr.HasCode(err, apperr.ErrUnauthorized))

	_, err = svc.Login(ctx, model.LoginRequest{Email: "nobody@example.com", Password: "s3cret-pass"})
	assert.True(t, apperr.HasCode(err, apperr.ErrUnauthorized))

	_, err = svc.Login(ctx, model.LoginRequest{Email: "off@example.com", Password: "s3cret-pass"})
	assert.True(t, apperr.HasCode(err, apperr.ErrUnauthorized))
}

func TestAuthenticate_RejectsForeignTokens(t *testing.T) {
	store := memory.NewStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	svc := authsvc.NewService(store.Users, auth.NewJWTService("secret", "dental-api", time.Hour), hasher, zerolog.Nop())

	other := auth.NewJWTService("other-secret", "dental-api", time.Hour)
	tok, _, err := other.GenerateAccessToken(auth.Claims{UserID: uuid.New(), Role: "admin"})
	require.NoError(t, err)
	_, err = svc.Authenticate(tok)
	assert.True(t, apperr.HasCode(err, apperr.ErrUnauthorized))

	same := auth.NewJWTService("secret", "dental-api", time.Hour)
	tok, _, err = same.GenerateAccessToken(auth.Claims{UserID: uuid.New(), Role: "system"})
	require.NoError(t, err)
	_, err = svc.Authenticate(tok)
	assert.True(t, apperr.HasCode(err, apperr.ErrUnauthorized))

	_, err = svc.Authenticate("not-a-token")
	assert.True(t, apperr.HasCode(err, apperr.ErrUnauthorized))
}
