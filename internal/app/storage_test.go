package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/dental-api/internal/app"
	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/pkg/security"
)

func TestOpenStore_MemorySeedsCatalog(t *testing.T) {
	store, err := app.OpenStore(context.Background(), &config.Config{Storage: config.StorageConfig{Driver: "memory"}})
	require.NoError(t, err)

	slots, err := store.TimeSlots.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, slots, len(model.DefaultSlotTimes()))
	require.NoError(t, store.Ping(context.Background()))
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := app.OpenStore(context.Background(), &config.Config{Storage: config.StorageConfig{Driver: "sqlite"}})
	assert.Error(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	store, err := app.OpenStore(ctx, &config.Config{Storage: config.StorageConfig{Driver: "memory"}})
	require.NoError(t, err)
	hasher := security.NewBcryptHasher(bcrypt.MinCost)

	created, err := app.EnsureAdmin(ctx, store.Users, hasher, "", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = app.EnsureAdmin(ctx, store.Users, hasher, " Admin@Clinic.test ", "bootstrap-pass")
	require.NoError(t, err)
	assert.True(t, created)

	u, err := store.Users.GetByEmail(ctx, "admin@clinic.test")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.NoError(t, hasher.Compare(u.PasswordHash, "bootstrap-pass"))

	created, err = app.EnsureAdmin(ctx, store.Users, hasher, "admin@clinic.test", "bootstrap-pass")
	require.NoError(t, err)
	assert.False(t, created)
}
