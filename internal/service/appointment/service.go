package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/service/availability"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

// Notifier delivers best-effort patient notifications. Implementations must
// not block the caller.
type Notifier interface {
	NotifyConfirmed(summary model.AppointmentSummary)
	NotifyCancelled(summary model.AppointmentSummary)
}

type Service struct {
	appointments repository.AppointmentRepository
	patients     repository.PatientRepository
	dentists     repository.DentistRepository
	catalog      repository.CatalogRepository

	availability *availability.Service
	clock        availability.Clock
	notifier     Notifier
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

func NewService(store *repository.Store, avail *availability.Service, notifier Notifier, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		appointments: store.Appointments,
		patients:     store.Patients,
		dentists:     store.Dentists,
		catalog:      store.Catalog,
		availability: avail,
		clock:        avail.Clock(),
		notifier:     notifier,
		metrics:      m,
		logger:       logger,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(actor, a); err != nil {
		return nil, err
	}
	return a, nil
}

// List scopes patients to their own appointments and dentists to their lane.
func (s *Service) List(ctx context.Context, filters model.AppointmentFilters, actor model.Actor) ([]*model.Appointment, error) {
	switch actor.Role {
	case model.RolePatient:
		if actor.PatientID == nil {
			return nil, apperr.Forbidden("no patient record for this account")
		}
		filters.PatientID = actor.PatientID
	case model.RoleDentist:
		if actor.DentistID == nil {
			return nil, apperr.Forbidden("no dentist record for this account")
		}
		filters.DentistID = actor.DentistID
	}

	list, err := s.appointments.List(ctx, &filters)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if list == nil {
		list = []*model.Appointment{}
	}
	return list, nil
}

// AllowedNextStatusesFor drives the status picker of one appointment.
func (s *Service) AllowedNextStatusesFor(ctx context.Context, id uuid.UUID, actor model.Actor) ([]model.AppointmentStatus, error) {
	a, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return s.GetAllowedNextStatuses(a.Status, a.Date), nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.appointments.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("appointment", err)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func authorizeView(actor model.Actor, a *model.Appointment) error {
	switch actor.Role {
	case model.RoleAdmin, model.RoleSystem:
		return nil
	case model.RoleDentist:
		if actor.DentistID != nil && a.DentistID != nil && *a.DentistID == *actor.DentistID {
			return nil
		}
	case model.RolePatient:
		if actor.OwnsPatient(a.PatientID) {
			return nil
		}
	}
	return apperr.Forbidden("you do not have access to this appointment")
}

// authorizeChange applies the view rule and limits patients to cancelling.
// Patients may attach notes only to the cancellation itself; notes on any
// other change belong to staff.
func authorizeChange(actor model.Actor, a *model.Appointment, to model.AppointmentStatus, notes *string) error {
	if err := authorizeView(actor, a); err != nil {
		return err
	}
	if actor.Role != model.RolePatient {
		return nil
	}
	if to != model.AppointmentStatusCancelled && to != a.Status {
		return apperr.Forbidden("patients can only cancel their appointments")
	}
	if notes != nil && (to != model.AppointmentStatusCancelled || a.Status == model.AppointmentStatusCancelled) {
		return apperr.Forbidden("patients can only add notes when cancelling")
	}
	return nil
}

// summary collects what a notification needs. Lookups that fail leave the
// field empty.
func (s *Service) summary(ctx context.Context, a *model.Appointment) model.AppointmentSummary {
	sum := model.AppointmentSummary{
		AppointmentID: a.ID,
		Reference:     a.Reference,
		Date:          a.Date,
		Time:          a.Time,
		Notes:         a.Notes,
	}
	if p, err := s.patients.Get(ctx, a.PatientID); err == nil {
		sum.PatientName = p.FullName()
		sum.PatientEmail = p.Email
	} else {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("Failed to load patient for notification")
	}
	if a.DentistID != nil {
		if d, err := s.dentists.Get(ctx, *a.DentistID); err == nil {
			sum.DentistName = d.Name
		}
	}
	if svc, err := s.catalog.GetService(ctx, a.ServiceID); err == nil {
		sum.ServiceName = svc.Name
	}
	if b, err := s.catalog.GetBranch(ctx, a.BranchID); err == nil {
		sum.BranchName = b.Name
	}
	return sum
}
