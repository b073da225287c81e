package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

const patientColumns = `
	id, user_id, first_name, last_name, email, phone,
	no_show_count, last_no_show_date, created_at, updated_at`

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

const insertPatientQuery = `
	INSERT INTO patients (
		id, user_id, first_name, last_name, email, phone,
		no_show_count, last_no_show_date, created_at, updated_at
	) VALUES (
		:id, :user_id, :first_name, :last_name, :email, :phone,
		:no_show_count, :last_no_show_date, :created_at, :updated_at
	)
`

func preparePatient(patient *model.Patient) {
	now := time.Now().UTC()
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.CreatedAt = now
	patient.UpdatedAt = now
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	preparePatient(patient)
	if _, err := r.db.NamedExecContext(ctx, insertPatientQuery, patient); err != nil {
		return fmt.Errorf("failed to create patient: %w", mapError(err))
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", mapError(err))
	}
	return &patient, nil
}

func (r *patientRepository) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient,
		`SELECT `+patientColumns+` FROM patients WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient by email: %w", mapError(err))
	}
	return &patient, nil
}

func (r *patientRepository) RecordNoShow(ctx context.Context, id uuid.UUID, date model.Date) error {
	query := `
		UPDATE patients
		SET no_show_count = no_show_count + 1,
			last_no_show_date = GREATEST(COALESCE(last_no_show_date, $1), $1),
			updated_at = NOW()
		WHERE id = $2
	`
	res, err := r.db.ExecContext(ctx, query, date, id)
	if err != nil {
		return fmt.Errorf("failed to record no-show: %w", err)
	}
	return expectOneRow(res, repository.ErrNotFound)
}
