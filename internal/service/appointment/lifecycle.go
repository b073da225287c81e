package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/service/availability"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
)

const (
	pending   = model.AppointmentStatusPending
	confirmed = model.AppointmentStatusConfirmed
	completed = model.AppointmentStatusCompleted
	cancelled = model.AppointmentStatusCancelled
	noShow    = model.AppointmentStatusNoShow
)

// transitions lists the allowed next statuses of every active status. The
// current status is always included. Same-day confirmation is too late and
// completion cannot happen before the visit day.
var transitions = map[model.AppointmentStatus]map[availability.DateBucket][]model.AppointmentStatus{
	pending: {
		availability.BucketPast:   {pending, completed, cancelled, noShow},
		availability.BucketToday:  {pending, cancelled, noShow},
		availability.BucketFuture: {pending, confirmed, cancelled},
	},
	confirmed: {
		availability.BucketPast:   {confirmed, completed, cancelled, noShow},
		availability.BucketToday:  {confirmed, completed, cancelled, noShow},
		availability.BucketFuture: {confirmed, cancelled},
	},
}

// AllowedNextStatuses is a pure lookup of the transition table. Terminal
// statuses only allow themselves.
func AllowedNextStatuses(current model.AppointmentStatus, bucket availability.DateBucket) []model.AppointmentStatus {
	if current.IsTerminal() {
		return []model.AppointmentStatus{current}
	}
	next, ok := transitions[current][bucket]
	if !ok {
		return nil
	}
	out := make([]model.AppointmentStatus, len(next))
	copy(out, next)
	return out
}

func IsAllowed(current model.AppointmentStatus, bucket availability.DateBucket, next model.AppointmentStatus) bool {
	for _, s := range AllowedNextStatuses(current, bucket) {
		if s == next {
			return true
		}
	}
	return false
}

// GetAllowedNextStatuses resolves the date bucket against the clinic clock.
func (s *Service) GetAllowedNextStatuses(current model.AppointmentStatus, date model.Date) []model.AppointmentStatus {
	return AllowedNextStatuses(current, s.clock.Bucket(date))
}

// Transition is the only way to change an appointment's status. Identity
// transitions succeed without side effects and may still update notes.
// Side effects run after the status change is stored.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to model.AppointmentStatus, notes *string, actor model.Actor) (*model.Appointment, error) {
	if !to.Valid() {
		return nil, apperr.BadRequest("unknown status "+string(to), nil)
	}

	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeChange(actor, a, to, notes); err != nil {
		return nil, err
	}

	from := a.Status
	if !IsAllowed(from, s.clock.Bucket(a.Date), to) {
		return nil, apperr.InvalidTransition(string(from), string(to))
	}

	if to == from {
		if notes != nil && *notes != a.Notes {
			if err := s.appointments.UpdateNotes(ctx, id, *notes); err != nil {
				return nil, apperr.Internal(err)
			}
			a.Notes = *notes
		}
		return a, nil
	}

	event, err := model.NewOutboxEvent(model.EventAppointmentStatusChanged, a.ID, model.StatusChange{
		AppointmentID: a.ID,
		Reference:     a.Reference,
		PatientID:     a.PatientID,
		From:          from,
		To:            to,
		ActorID:       actor.UserID,
		ChangedAt:     s.clock.Now(),
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	err = s.appointments.UpdateStatus(ctx, id, from, to, notes, event)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound("appointment", err)
	case errors.Is(err, repository.ErrStaleStatus):
		return nil, apperr.InvalidState("the appointment was changed by someone else, reload and try again")
	case errors.Is(err, repository.ErrSlotTaken):
		return nil, apperr.SlotConflict(err)
	case err != nil:
		return nil, apperr.Internal(err)
	}

	a.Status = to
	if notes != nil {
		a.Notes = *notes
	}
	a.UpdatedAt = time.Now().UTC()
	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(from), string(to)).Inc()
	}

	s.afterTransition(ctx, a, from)
	return a, nil
}

func (s *Service) afterTransition(ctx context.Context, a *model.Appointment, from model.AppointmentStatus) {
	switch a.Status {
	case confirmed:
		s.notifier.NotifyConfirmed(s.summary(ctx, a))
	case cancelled:
		s.notifier.NotifyCancelled(s.summary(ctx, a))
	case noShow:
		if err := s.patients.RecordNoShow(ctx, a.PatientID, a.Date); err != nil {
			s.logger.Error().
				Err(err).
				Str("appointment_id", a.ID.String()).
				Str("patient_id", a.PatientID.String()).
				Str("from", string(from)).
				Msg("Failed to record no-show")
		}
	}
}
