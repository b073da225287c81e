package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/email"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/repository/memory"
	"github.com/jwalitptl/dental-api/internal/repository/postgres"
	"github.com/jwalitptl/dental-api/pkg/security"
)

// OpenStore connects the configured storage driver. The memory driver
// starts with the default slot catalog so a fresh instance can take bookings.
func OpenStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		for _, t := range model.DefaultSlotTimes() {
			if err := store.TimeSlots.Create(ctx, &model.TimeSlot{Time: t, Active: true}); err != nil {
				return nil, fmt.Errorf("failed to seed slot %s: %w", t, err)
			}
		}
		return store, nil
	case "postgres":
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewMailer returns the SMTP mailer when it is enabled and a logging
// mailer otherwise.
func NewMailer(cfg config.SMTPConfig, logger zerolog.Logger) email.Service {
	if cfg.Enabled {
		return email.NewSMTPService(cfg)
	}
	return email.NewLogService(logger)
}

// EnsureAdmin creates an active admin user with the given credentials
// unless the email is already registered. It reports whether a user was created.
func EnsureAdmin(ctx context.Context, users repository.UserRepository, hasher security.PasswordHasher, emailAddr, password string) (bool, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if emailAddr == "" || password == "" {
		return false, nil
	}

	_, err := users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("failed to look up admin: %w", err)
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := &model.User{
		Email:        emailAddr,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Active:       true,
	}
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create admin: %w", err)
	}
	return true, nil
}
