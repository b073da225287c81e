package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

const userColumns = `
	id, email, password_hash, role, patient_id, dentist_id,
	is_active, last_login_at, created_at, updated_at`

const insertUserQuery = `
	INSERT INTO users (` + userColumns + `)
	VALUES (
		:id, :email, :password_hash, :role, :patient_id, :dentist_id,
		:is_active, :last_login_at, :created_at, :updated_at
	)
`

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	stampBase(&user.Base)
	if _, err := r.db.NamedExecContext(ctx, insertUserQuery, user); err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

func (r *userRepository) CreateWithPatient(ctx context.Context, user *model.User, patient *model.Patient) error {
	stampBase(&user.Base)
	preparePatient(patient)
	patient.UserID = &user.ID
	user.PatientID = &patient.ID

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertPatientQuery, patient); err != nil {
			return fmt.Errorf("failed to create patient: %w", mapError(err))
		}
		if _, err := tx.NamedExecContext(ctx, insertUserQuery, user); err != nil {
			return fmt.Errorf("failed to create user: %w", mapError(err))
		}
		return nil
	})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", mapError(err))
	}
	return &user, nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return expectOneRow(res, repository.ErrNotFound)
}
