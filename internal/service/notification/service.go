package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/internal/email"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindCancellation Kind = "cancellation"
)

const defaultTimeout = 10 * time.Second

var templates = template.Must(template.New("confirmation").Parse(`<p>Dear {{.PatientName}},</p>
<p>Your appointment <strong>{{.Reference}}</strong> for {{.ServiceName}} on {{.Date}} at {{.Time}}
{{- if .DentistName}} with {{.DentistName}}{{end}} at our {{.BranchName}} clinic is confirmed.</p>
<p>Please arrive ten minutes early.</p>`))

func init() {
	template.Must(templates.New("cancellation").Parse(`<p>Dear {{.PatientName}},</p>
<p>Your appointment <strong>{{.Reference}}</strong> for {{.ServiceName}} on {{.Date}} at {{.Time}} has been cancelled.</p>
{{- if .Notes}}<p>{{.Notes}}</p>{{end}}
<p>You can book a new appointment online at any time.</p>`))
}

// Service sends appointment mail. Notify* calls return at once; delivery
// happens on a background goroutine bounded by the timeout.
type Service struct {
	mailer  email.Service
	metrics *metrics.Metrics
	logger  zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewService(mailer email.Service, m *metrics.Metrics, logger zerolog.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		mailer:  mailer,
		metrics: m,
		logger:  logger,
		timeout: timeout,
	}
}

func (s *Service) NotifyConfirmed(summary model.AppointmentSummary) {
	s.dispatch(KindConfirmation, summary)
}

func (s *Service) NotifyCancelled(summary model.AppointmentSummary) {
	s.dispatch(KindCancellation, summary)
}

func (s *Service) dispatch(kind Kind, summary model.AppointmentSummary) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.send(ctx, kind, summary)
	}()
}

// SendConfirmation delivers synchronously and reports success. Failures are
// logged, never returned.
func (s *Service) SendConfirmation(ctx context.Context, summary model.AppointmentSummary) bool {
	return s.send(ctx, KindConfirmation, summary)
}

func (s *Service) SendCancellation(ctx context.Context, summary model.AppointmentSummary) bool {
	return s.send(ctx, KindCancellation, summary)
}

// Wait blocks until every in-flight delivery finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) send(ctx context.Context, kind Kind, summary model.AppointmentSummary) bool {
	msg, err := render(kind, summary)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}

	result := "sent"
	if err != nil {
		result = "failed"
		s.logger.Warn().
			Err(err).
			Str("kind", string(kind)).
			Str("appointment_id", summary.AppointmentID.String()).
			Str("reference", summary.Reference).
			Msg("Appointment notification failed")
	}
	if s.metrics != nil {
		s.metrics.Notifications.WithLabelValues(string(kind), result).Inc()
	}
	return err == nil
}

func render(kind Kind, summary model.AppointmentSummary) (email.Message, error) {
	if summary.PatientEmail == "" {
		return email.Message{}, fmt.Errorf("patient %q has no email address", summary.PatientName)
	}

	var subject string
	switch kind {
	case KindConfirmation:
		subject = fmt.Sprintf("Appointment %s confirmed", summary.Reference)
	case KindCancellation:
		subject = fmt.Sprintf("Appointment %s cancelled", summary.Reference)
	default:
		return email.Message{}, fmt.Errorf("unknown notification kind %q", kind)
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, string(kind), summary); err != nil {
		return email.Message{}, fmt.Errorf("failed to render %s email: %w", kind, err)
	}

	return email.Message{
		To:      summary.PatientEmail,
		Subject: subject,
		HTML:    body.String(),
		Text: fmt.Sprintf("Appointment %s on %s at %s: %s.",
			summary.Reference, summary.Date, summary.Time, kind),
	}, nil
}
