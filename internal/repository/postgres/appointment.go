package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

const appointmentColumns = `
	id, reference, patient_id, dentist_id, service_id, branch_id,
	appointment_date, appointment_time, reason, status, notes,
	created_by, created_at, updated_at`

// laneExpr must match the expression of appointments_active_lane_key.
const laneExpr = `COALESCE(dentist_id, '00000000-0000-0000-0000-000000000000'::uuid)`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func slotTaken(ctx context.Context, q sqlx.QueryerContext, date model.Date, t model.TimeOfDay, dentistID, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE appointment_date = $1
			AND appointment_time = $2
			AND ` + laneExpr + ` = $3
			AND status IN ('pending', 'confirmed')
			AND ($4::uuid IS NULL OR id <> $4)
		)
	`
	var taken bool
	if err := sqlx.GetContext(ctx, q, &taken, query, date, t, model.LaneOf(dentistID), excludeID); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return taken, nil
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	now := time.Now().UTC()
	appointment.ID = uuid.New()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	query := `
		INSERT INTO appointments (
			id, patient_id, dentist_id, service_id, branch_id,
			appointment_date, appointment_time, reason, status, notes,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING reference
	`

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		taken, err := slotTaken(ctx, tx, appointment.Date, appointment.Time, appointment.DentistID, nil)
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrSlotTaken
		}

		err = tx.QueryRowxContext(ctx, query,
			appointment.ID,
			appointment.PatientID,
			appointment.DentistID,
			appointment.ServiceID,
			appointment.BranchID,
			appointment.Date,
			appointment.Time,
			appointment.Reason,
			appointment.Status,
			appointment.Notes,
			appointment.CreatedBy,
			appointment.CreatedAt,
			appointment.UpdatedAt,
		).Scan(&appointment.Reference)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", mapError(err))
		}

		event, err := model.NewOutboxEvent(model.EventAppointmentBooked, appointment.ID, appointment)
		if err != nil {
			return fmt.Errorf("failed to build booking event: %w", err)
		}
		return insertEvent(ctx, tx, event)
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", mapError(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters == nil {
		filters = &model.AppointmentFilters{}
	}

	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filters.BranchID != nil {
		add("branch_id = $%d", *filters.BranchID)
	}
	if filters.DentistID != nil {
		add("dentist_id = $%d", *filters.DentistID)
	}
	if filters.PatientID != nil {
		add("patient_id = $%d", *filters.PatientID)
	}
	if filters.Status != nil {
		add("status = $%d", *filters.Status)
	}
	if filters.From != nil {
		add("appointment_date >= $%d", *filters.From)
	}
	if filters.To != nil {
		add("appointment_date <= $%d", *filters.To)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY appointment_date, appointment_time, reference"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) IsSlotTaken(ctx context.Context, date model.Date, t model.TimeOfDay, dentistID, excludeID *uuid.UUID) (bool, error) {
	return slotTaken(ctx, r.db, date, t, dentistID, excludeID)
}

func (r *appointmentRepository) TakenTimes(ctx context.Context, date model.Date, dentistID, excludeID *uuid.UUID) ([]model.TimeOfDay, error) {
	query := `
		SELECT appointment_time FROM appointments
		WHERE appointment_date = $1
		AND ` + laneExpr + ` = $2
		AND status IN ('pending', 'confirmed')
		AND ($3::uuid IS NULL OR id <> $3)
	`
	var times []model.TimeOfDay
	if err := r.db.SelectContext(ctx, &times, query, date, model.LaneOf(dentistID), excludeID); err != nil {
		return nil, fmt.Errorf("failed to list taken times: %w", err)
	}
	return times, nil
}

func (r *appointmentRepository) Reschedule(ctx context.Context, id uuid.UUID, expect model.AppointmentStatus, date model.Date, t model.TimeOfDay, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current struct {
			Status    model.AppointmentStatus `db:"status"`
			DentistID *uuid.UUID              `db:"dentist_id"`
		}
		err := tx.GetContext(ctx, &current,
			`SELECT status, dentist_id FROM appointments WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return fmt.Errorf("failed to lock appointment: %w", mapError(err))
		}
		if current.Status != expect {
			return repository.ErrStaleStatus
		}

		taken, err := slotTaken(ctx, tx, date, t, current.DentistID, &id)
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrSlotTaken
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE appointments
			SET appointment_date = $1, appointment_time = $2, updated_at = NOW()
			WHERE id = $3
		`, date, t, id)
		if err != nil {
			return fmt.Errorf("failed to reschedule appointment: %w", mapError(err))
		}
		return insertEvent(ctx, tx, event)
	})
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, notes *string, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE appointments
			SET status = $1, notes = COALESCE($2, notes), updated_at = NOW()
			WHERE id = $3 AND status = $4
		`, to, notes, id, from)
		if err != nil {
			return fmt.Errorf("failed to update appointment status: %w", mapError(err))
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			var exists bool
			if err := tx.GetContext(ctx, &exists,
				`SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id); err != nil {
				return fmt.Errorf("failed to check appointment: %w", err)
			}
			if !exists {
				return repository.ErrNotFound
			}
			return repository.ErrStaleStatus
		}
		return insertEvent(ctx, tx, event)
	})
}

func (r *appointmentRepository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET notes = $1, updated_at = NOW() WHERE id = $2`, notes, id)
	if err != nil {
		return fmt.Errorf("failed to update appointment notes: %w", err)
	}
	return expectOneRow(res, repository.ErrNotFound)
}

func (r *appointmentRepository) ListOverdue(ctx context.Context, before model.Date, limit int) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE appointment_date < $1
		AND status IN ('pending', 'confirmed')
		ORDER BY appointment_date, appointment_time
		LIMIT $2`

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, before, limit); err != nil {
		return nil, fmt.Errorf("failed to list overdue appointments: %w", err)
	}
	return appointments, nil
}
