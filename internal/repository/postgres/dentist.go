package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

type dentistRepository struct {
	BaseRepository
}

func NewDentistRepository(base BaseRepository) repository.DentistRepository {
	return &dentistRepository{base}
}

func (r *dentistRepository) Create(ctx context.Context, dentist *model.Dentist, schedule []*model.DentistSchedule) error {
	now := time.Now().UTC()
	if dentist.ID == uuid.Nil {
		dentist.ID = uuid.New()
	}
	dentist.CreatedAt = now
	dentist.UpdatedAt = now

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO dentists (
				id, user_id, name, email, specialization, is_active, created_at, updated_at
			) VALUES (
				:id, :user_id, :name, :email, :specialization, :is_active, :created_at, :updated_at
			)`, dentist)
		if err != nil {
			return fmt.Errorf("failed to create dentist: %w", mapError(err))
		}
		return insertSchedule(ctx, tx, dentist.ID, schedule)
	})
}

func (r *dentistRepository) Get(ctx context.Context, id uuid.UUID) (*model.Dentist, error) {
	var dentist model.Dentist
	err := r.db.GetContext(ctx, &dentist, `
		SELECT id, user_id, name, email, specialization, is_active, created_at, updated_at
		FROM dentists WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get dentist: %w", mapError(err))
	}
	return &dentist, nil
}

func (r *dentistRepository) List(ctx context.Context, activeOnly bool) ([]*model.Dentist, error) {
	var dentists []*model.Dentist
	err := r.db.SelectContext(ctx, &dentists, `
		SELECT id, user_id, name, email, specialization, is_active, created_at, updated_at
		FROM dentists
		WHERE ($1 = FALSE OR is_active)
		ORDER BY name`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list dentists: %w", err)
	}
	return dentists, nil
}

type scheduleRepository struct {
	BaseRepository
}

func NewScheduleRepository(base BaseRepository) repository.ScheduleRepository {
	return &scheduleRepository{base}
}

const scheduleColumns = `id, dentist_id, day_of_week, start_time, end_time, is_active`

func (r *scheduleRepository) GetForDay(ctx context.Context, dentistID uuid.UUID, day int) (*model.DentistSchedule, error) {
	var entry model.DentistSchedule
	err := r.db.GetContext(ctx, &entry,
		`SELECT `+scheduleColumns+` FROM dentist_schedules WHERE dentist_id = $1 AND day_of_week = $2`,
		dentistID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", mapError(err))
	}
	return &entry, nil
}

func (r *scheduleRepository) List(ctx context.Context, dentistID uuid.UUID) ([]*model.DentistSchedule, error) {
	var entries []*model.DentistSchedule
	err := r.db.SelectContext(ctx, &entries,
		`SELECT `+scheduleColumns+` FROM dentist_schedules WHERE dentist_id = $1 ORDER BY day_of_week`,
		dentistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule: %w", err)
	}
	return entries, nil
}

func (r *scheduleRepository) Replace(ctx context.Context, dentistID uuid.UUID, entries []*model.DentistSchedule) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM dentists WHERE id = $1)`, dentistID); err != nil {
			return fmt.Errorf("failed to check dentist: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM dentist_schedules WHERE dentist_id = $1`, dentistID); err != nil {
			return fmt.Errorf("failed to clear schedule: %w", err)
		}
		return insertSchedule(ctx, tx, dentistID, entries)
	})
}

func insertSchedule(ctx context.Context, tx *sqlx.Tx, dentistID uuid.UUID, entries []*model.DentistSchedule) error {
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.DentistID = dentistID
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO dentist_schedules (`+scheduleColumns+`)
			VALUES (:id, :dentist_id, :day_of_week, :start_time, :end_time, :is_active)`, e)
		if err != nil {
			return fmt.Errorf("failed to insert schedule entry: %w", mapError(err))
		}
	}
	return nil
}
