package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
)

const (
	sourceOnline = "online"
	sourceStaff  = "staff"
)

// BookAppointment validates the request in a fixed order and stores the
// appointment. Patients book for themselves as pending and must pass the
// no-show gate; staff bookings start confirmed. The storage layer has the
// last word on slot conflicts.
func (s *Service) BookAppointment(ctx context.Context, actor model.Actor, req model.BookingRequest) (*model.Appointment, error) {
	source := sourceStaff
	if actor.Role == model.RolePatient {
		source = sourceOnline
	}

	a, err := s.book(ctx, actor, req)
	if s.metrics != nil {
		s.metrics.Bookings.WithLabelValues(source, bookingResult(err)).Inc()
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("reference", a.Reference).
		Str("status", string(a.Status)).
		Str("source", source).
		Msg("Appointment booked")

	if a.Status == confirmed {
		s.notifier.NotifyConfirmed(s.summary(ctx, a))
	}
	return a, nil
}

func (s *Service) book(ctx context.Context, actor model.Actor, req model.BookingRequest) (*model.Appointment, error) {
	status := confirmed
	var createdBy *uuid.UUID
	switch actor.Role {
	case model.RolePatient:
		if actor.PatientID == nil {
			return nil, apperr.Forbidden("no patient record for this account")
		}
		if req.PatientID == uuid.Nil {
			req.PatientID = *actor.PatientID
		}
		if req.PatientID != *actor.PatientID {
			return nil, apperr.Forbidden("patients can only book for themselves")
		}
		status = pending
	case model.RoleAdmin, model.RoleDentist:
		id := actor.UserID
		createdBy = &id
	default:
		return nil, apperr.Forbidden("not allowed to book appointments")
	}

	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}
	if err := s.checkDateTime(ctx, req.Date, req.Time); err != nil {
		return nil, err
	}

	if actor.Role == model.RolePatient {
		ok, err := s.availability.CanBookOnline(ctx, req.PatientID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.PolicyDenied("online booking is disabled after repeated missed appointments, please call the clinic")
		}
	}

	if err := s.checkCalendar(ctx, req.BranchID, req.DentistID, req.Date, req.Time); err != nil {
		return nil, err
	}

	a := &model.Appointment{
		PatientID: req.PatientID,
		DentistID: req.DentistID,
		ServiceID: req.ServiceID,
		BranchID:  req.BranchID,
		Date:      req.Date,
		Time:      req.Time,
		Reason:    req.Reason,
		Status:    status,
		CreatedBy: createdBy,
	}

	// Create checks the lane inside the insert transaction and the unique
	// lane index settles concurrent bookings.
	if err := s.appointments.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, apperr.SlotConflict(err)
		}
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) checkReferences(ctx context.Context, req model.BookingRequest) error {
	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		return notFoundOr("patient", err)
	}

	service, err := s.catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		return notFoundOr("service", err)
	}
	if !service.Active {
		return apperr.BadRequest("the selected service is not offered at the moment", nil)
	}

	branch, err := s.catalog.GetBranch(ctx, req.BranchID)
	if err != nil {
		return notFoundOr("branch", err)
	}
	if !branch.Active {
		return apperr.BadRequest("the selected branch is closed", nil)
	}

	if req.DentistID != nil {
		dentist, err := s.dentists.Get(ctx, *req.DentistID)
		if err != nil {
			return notFoundOr("dentist", err)
		}
		if !dentist.Active {
			return apperr.BadRequest("the selected dentist is not taking appointments", nil)
		}
	}
	return nil
}

// checkDateTime rejects past moments and times outside the slot catalog.
func (s *Service) checkDateTime(ctx context.Context, date model.Date, t model.TimeOfDay) error {
	if date.IsZero() || !t.Valid() {
		return apperr.BadRequest("date and time are required", nil)
	}
	if s.clock.HasPassed(date, t) {
		return apperr.PastDate()
	}
	ok, err := s.availability.IsCatalogSlot(ctx, t)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.BadRequest("the selected time is not a bookable slot", nil)
	}
	return nil
}

// checkCalendar applies the blocked-date guard and the dentist's schedule.
func (s *Service) checkCalendar(ctx context.Context, branchID uuid.UUID, dentistID *uuid.UUID, date model.Date, t model.TimeOfDay) error {
	block, err := s.availability.ActiveBlock(ctx, date, branchID)
	if err != nil {
		return err
	}
	if block != nil {
		return apperr.DateBlocked(block.Reason)
	}

	if dentistID != nil {
		working, err := s.availability.IsDentistWorking(ctx, *dentistID, date, t)
		if err != nil {
			return err
		}
		if !working {
			return apperr.DentistUnavailable()
		}
	}
	return nil
}

// RescheduleAppointment moves an active appointment to a new date and time.
// The appointment never conflicts with itself, so moving onto its current
// slot succeeds.
func (s *Service) RescheduleAppointment(ctx context.Context, id uuid.UUID, date model.Date, t model.TimeOfDay, actor model.Actor) (*model.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(actor, a); err != nil {
		return nil, err
	}
	if a.Status.IsTerminal() {
		return nil, apperr.InvalidState("only pending or confirmed appointments can be rescheduled")
	}

	if err := s.checkDateTime(ctx, date, t); err != nil {
		return nil, err
	}
	if err := s.checkCalendar(ctx, a.BranchID, a.DentistID, date, t); err != nil {
		return nil, err
	}

	event, err := model.NewOutboxEvent(model.EventAppointmentRescheduled, a.ID, model.Rescheduled{
		AppointmentID: a.ID,
		Reference:     a.Reference,
		FromDate:      a.Date,
		FromTime:      a.Time,
		ToDate:        date,
		ToTime:        t,
		ActorID:       actor.UserID,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	err = s.appointments.Reschedule(ctx, id, a.Status, date, t, event)
	switch {
	case errors.Is(err, repository.ErrSlotTaken):
		return nil, apperr.SlotConflict(err)
	case errors.Is(err, repository.ErrStaleStatus):
		return nil, apperr.InvalidState("the appointment was changed by someone else, reload and try again")
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound("appointment", err)
	case err != nil:
		return nil, apperr.Internal(err)
	}

	a.Date = date
	a.Time = t
	return a, nil
}

func notFoundOr(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(resource, err)
	}
	return apperr.Internal(err)
}

func bookingResult(err error) string {
	if err == nil {
		return "booked"
	}
	switch apperr.CodeOf(err) {
	case apperr.ErrSlotConflict:
		return "conflict"
	case apperr.ErrInternal:
		return "error"
	default:
		return "rejected"
	}
}
