package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
)

// Storage level failures shared by every implementation. Services translate
// them into application errors.
var (
	ErrNotFound = errors.New("record not found")
	// ErrSlotTaken means the (date, time, lane) triple is held by an active appointment.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrStaleStatus means a conditional status update matched no row.
	ErrStaleStatus = errors.New("appointment status changed concurrently")
	ErrDuplicate   = errors.New("duplicate record")
)

// All repository interfaces in one file
type (
	AppointmentRepository interface {
		// Create checks the lane, inserts the appointment and records an
		// appointment.booked outbox event in one transaction. It fills in ID,
		// Reference and timestamps.
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		IsSlotTaken(ctx context.Context, date model.Date, t model.TimeOfDay, dentistID, excludeID *uuid.UUID) (bool, error)
		// TakenTimes returns the times held by active appointments in the lane on date.
		TakenTimes(ctx context.Context, date model.Date, dentistID, excludeID *uuid.UUID) ([]model.TimeOfDay, error)
		// Reschedule moves an appointment still in status expect, excluding itself from the lane check.
		Reschedule(ctx context.Context, id uuid.UUID, expect model.AppointmentStatus, date model.Date, t model.TimeOfDay, event *model.OutboxEvent) error
		// UpdateStatus applies from -> to only when the stored status is still from.
		UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, notes *string, event *model.OutboxEvent) error
		UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error
		// ListOverdue returns active appointments dated before the given date, oldest first.
		ListOverdue(ctx context.Context, before model.Date, limit int) ([]*model.Appointment, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByEmail(ctx context.Context, email string) (*model.Patient, error)
		// RecordNoShow increments the counter and keeps the latest no-show date.
		RecordNoShow(ctx context.Context, id uuid.UUID, date model.Date) error
	}

	DentistRepository interface {
		// Create inserts the dentist together with its initial schedule.
		Create(ctx context.Context, dentist *model.Dentist, schedule []*model.DentistSchedule) error
		Get(ctx context.Context, id uuid.UUID) (*model.Dentist, error)
		List(ctx context.Context, activeOnly bool) ([]*model.Dentist, error)
	}

	ScheduleRepository interface {
		GetForDay(ctx context.Context, dentistID uuid.UUID, day int) (*model.DentistSchedule, error)
		List(ctx context.Context, dentistID uuid.UUID) ([]*model.DentistSchedule, error)
		// Replace deletes every row of the dentist and inserts entries.
		Replace(ctx context.Context, dentistID uuid.UUID, entries []*model.DentistSchedule) error
	}

	TimeSlotRepository interface {
		List(ctx context.Context, activeOnly bool) ([]*model.TimeSlot, error)
		Create(ctx context.Context, slot *model.TimeSlot) error
		SetActive(ctx context.Context, id uuid.UUID, active bool) error
	}

	BlockedDateRepository interface {
		Create(ctx context.Context, blocked *model.BlockedDate) error
		Get(ctx context.Context, id uuid.UUID) (*model.BlockedDate, error)
		// FindActive returns the active block for (date, branch) or ErrNotFound.
		FindActive(ctx context.Context, date model.Date, branchID uuid.UUID) (*model.BlockedDate, error)
		Exists(ctx context.Context, date model.Date, branchID uuid.UUID) (bool, error)
		SetActive(ctx context.Context, id uuid.UUID, active bool) error
		ListByBranch(ctx context.Context, branchID uuid.UUID, from *model.Date) ([]*model.BlockedDate, error)
	}

	CatalogRepository interface {
		GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error)
		ListBranches(ctx context.Context) ([]*model.Branch, error)
		CreateBranch(ctx context.Context, branch *model.Branch) error
		GetService(ctx context.Context, id uuid.UUID) (*model.Service, error)
		ListServices(ctx context.Context) ([]*model.Service, error)
		CreateService(ctx context.Context, service *model.Service) error
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		// CreateWithPatient inserts the login and its patient record together.
		CreateWithPatient(ctx context.Context, user *model.User, patient *model.Patient) error
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		// ClaimPendingEvents returns due events and hides them from other
		// claimers until lease has passed. Concurrent claimers never get the
		// same event within one lease.
		ClaimPendingEvents(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		// MarkFailed schedules a retry at retryAt, or fails the event for good when retryAt is nil.
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryCount int, retryAt *time.Time) error
	}
)

// Store bundles every repository an application instance needs.
type Store struct {
	Appointments AppointmentRepository
	Patients     PatientRepository
	Dentists     DentistRepository
	Schedules    ScheduleRepository
	TimeSlots    TimeSlotRepository
	BlockedDates BlockedDateRepository
	Catalog      CatalogRepository
	Users        UserRepository
	Outbox       OutboxRepository
	// Ping reports storage health.
	Ping func(ctx context.Context) error
	// Close releases the underlying connections.
	Close func() error
}
