package appointment

import (
	"context"

	"github.com/jwalitptl/dental-api/internal/model"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
)

type SweepResult struct {
	Scanned   int `json:"scanned"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// AutoUpdateOverdueAppointments marks up to limit active appointments dated
// before today as no_show, oldest first, through the regular transition
// path. Failures are logged and skipped; running it again is harmless.
func (s *Service) AutoUpdateOverdueAppointments(ctx context.Context, limit int) (SweepResult, error) {
	var result SweepResult
	if limit <= 0 {
		return result, nil
	}

	overdue, err := s.appointments.ListOverdue(ctx, s.clock.Today(), limit)
	if err != nil {
		return result, apperr.Internal(err)
	}
	result.Scanned = len(overdue)

	system := model.SystemActor()
	for _, a := range overdue {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := s.Transition(ctx, a.ID, noShow, nil, system); err != nil {
			result.Failed++
			if s.metrics != nil {
				s.metrics.SweepFailed.Inc()
			}
			s.logger.Warn().
				Err(err).
				Str("appointment_id", a.ID.String()).
				Str("status", string(a.Status)).
				Msg("Overdue sweep skipped appointment")
			continue
		}
		result.Processed++
		if s.metrics != nil {
			s.metrics.SweepProcessed.Inc()
		}
	}

	if result.Scanned > 0 {
		s.logger.Info().
			Int("scanned", result.Scanned).
			Int("processed", result.Processed).
			Int("failed", result.Failed).
			Msg("Overdue sweep finished")
	}
	return result, nil
}
