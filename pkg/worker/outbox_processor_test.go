package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository/memory"
	"github.com/jwalitptl/dental-api/pkg/logger"
	"github.com/jwalitptl/dental-api/pkg/messaging"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

type fakeBroker struct {
	mu        sync.Mutex
	fail      bool
	published []messaging.Message
	channels  []string
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("broker unavailable")
	}
	b.channels = append(b.channels, channel)
	b.published = append(b.published, message.(messaging.Message))
	return nil
}

func (b *fakeBroker) Close() error { return nil }

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		Channel:       "appointments",
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Minute,
	}
}

func seedEvent(t *testing.T, db *memory.DB, eventType string) *model.OutboxEvent {
	t.Helper()
	event, err := model.NewOutboxEvent(eventType, uuid.New(), map[string]string{"reference": "APT000001"})
	require.NoError(t, err)
	require.NoError(t, db.Store().Outbox.Create(context.Background(), event))
	return event
}

func TestNewOutboxProcessor_ValidatesConfig(t *testing.T) {
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	cfg := testConfig()
	cfg.BatchSize = 0

	_, err := NewOutboxProcessor(memory.NewStore().Outbox, &fakeBroker{}, cfg, logger.Nop(), m)
	assert.Error(t, err)
}

func TestOutboxProcessor_PublishesPendingEvents(t *testing.T) {
	db := memory.NewDB()
	store := db.Store()
	booked := seedEvent(t, db, model.EventAppointmentBooked)
	seedEvent(t, db, model.EventAppointmentStatusChanged)

	broker := &fakeBroker{}
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	p, err := NewOutboxProcessor(store.Outbox, broker, testConfig(), logger.Nop(), m)
	require.NoError(t, err)

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, broker.published, 2)
	assert.Equal(t, []string{"appointments", "appointments"}, broker.channels)
	assert.Equal(t, booked.ID.String(), broker.published[0].ID)
	assert.Equal(t, model.EventAppointmentBooked, broker.published[0].Type)
	assert.Equal(t, 2.0, promtest.ToFloat64(m.OutboxEventsProcessed))

	pending, err := store.Outbox.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxProcessor_RetriesThenFails(t *testing.T) {
	db := memory.NewDB()
	store := db.Store()
	event := seedEvent(t, db, model.EventAppointmentBooked)

	broker := &fakeBroker{fail: true}
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	p, err := NewOutboxProcessor(store.Outbox, broker, testConfig(), logger.Nop(), m)
	require.NoError(t, err)

	clock := time.Now().UTC()
	p.now = func() time.Time { return clock }

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.OutboxEventsFailed))

	// scheduled a minute out, so nothing is due yet
	pending, err := store.Outbox.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// second failure exhausts the attempts and marks the event failed
	retry := *event
	retry.RetryCount = 1
	require.Error(t, p.processEvent(context.Background(), &retry))
	pending, err = store.Outbox.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, 2.0, promtest.ToFloat64(m.OutboxEventsFailed))
}

func TestOutboxProcessor_ParallelWorkersPublishOnce(t *testing.T) {
	db := memory.NewDB()
	store := db.Store()
	for i := 0; i < 25; i++ {
		seedEvent(t, db, model.EventAppointmentBooked)
	}

	broker := &fakeBroker{}
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	cfg := testConfig()
	cfg.BatchSize = 4

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		p, err := NewOutboxProcessor(store.Outbox, broker, cfg, logger.Nop(), m)
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				n, err := p.ProcessBatch(context.Background())
				if err != nil || n == 0 {
					return
				}
			}
		}()
	}
	wg.Wait()

	seen := map[string]int{}
	for _, msg := range broker.published {
		seen[msg.ID]++
	}
	assert.Len(t, seen, 25)
	for id, n := range seen {
		assert.Equal(t, 1, n, "event %s published %d times", id, n)
	}
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(time.Second, 0))
	assert.Equal(t, 4*time.Second, backoff(time.Second, 2))
	assert.Equal(t, backoff(time.Second, 10), backoff(time.Second, 50))
}
