package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/pkg/circuitbreaker"
)

// Dialer is the part of gomail.Dialer the mailer uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	dialer  Dialer
	from    string
	breaker *circuitbreaker.CircuitBreaker
}

// NewSMTPService sends mail through the configured SMTP relay. Repeated
// relay failures open a breaker so callers fail fast.
func NewSMTPService(cfg config.SMTPConfig) Service {
	return NewSMTPServiceWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From)
}

func NewSMTPServiceWithDialer(dialer Dialer, from string) Service {
	return &smtpService{
		dialer: dialer,
		from:   from,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "smtp",
			MaxFailures: 5,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
		}),
	}
}

func (s *smtpService) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("email recipient is required")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		if msg.HTML != "" {
			m.AddAlternative("text/html", msg.HTML)
		}
	} else {
		m.SetBody("text/html", msg.HTML)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.breaker.Execute(func() error {
			return s.dialer.DialAndSend(m)
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type logService struct {
	logger zerolog.Logger
}

// NewLogService only logs outgoing mail. Used when SMTP is disabled.
func NewLogService(logger zerolog.Logger) Service {
	return &logService{logger: logger}
}

func (s *logService) Send(_ context.Context, msg Message) error {
	s.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("Email delivery disabled, message not sent")
	return nil
}
