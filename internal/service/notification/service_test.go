package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/email"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func summary() model.AppointmentSummary {
	return model.AppointmentSummary{
		AppointmentID: uuid.New(),
		Reference:     "APT000042",
		PatientName:   "Pat <Tester>",
		PatientEmail:  "pat@example.com",
		DentistName:   "Dr. Adams",
		ServiceName:   "Cleaning",
		BranchName:    "Downtown",
		Date:          model.NewDate(2026, 3, 12),
		Time:          model.NewTimeOfDay(9, 30),
	}
}

func TestNotifyConfirmed_SendsInBackground(t *testing.T) {
	mailer := &recordingMailer{}
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	svc := NewService(mailer, m, zerolog.Nop(), 0)

	svc.NotifyConfirmed(summary())
	svc.NotifyCancelled(summary())
	svc.Wait()

	require.Len(t, mailer.sent, 2)
	subjects := []string{mailer.sent[0].Subject, mailer.sent[1].Subject}
	assert.ElementsMatch(t, []string{"Appointment APT000042 confirmed", "Appointment APT000042 cancelled"}, subjects)
	for _, msg := range mailer.sent {
		assert.Equal(t, "pat@example.com", msg.To)
		assert.Contains(t, msg.HTML, "Pat &lt;Tester&gt;")
		assert.Contains(t, msg.HTML, "2026-03-12")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("confirmation", "sent")))
}

func TestSend_FailureIsReportedNotReturned(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	svc := NewService(mailer, m, zerolog.Nop(), 0)

	assert.False(t, svc.SendConfirmation(context.Background(), summary()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("confirmation", "failed")))

	noEmail := summary()
	noEmail.PatientEmail = ""
	mailer.err = nil
	assert.False(t, svc.SendCancellation(context.Background(), noEmail))
	assert.Empty(t, mailer.sent)
}

func TestSendCancellation(t *testing.T) {
	mailer := &recordingMailer{}
	svc := NewService(mailer, nil, zerolog.Nop(), 0)

	s := summary()
	s.Notes = "Dentist unavailable"
	assert.True(t, svc.SendCancellation(context.Background(), s))
	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].HTML, "Dentist unavailable")
}
