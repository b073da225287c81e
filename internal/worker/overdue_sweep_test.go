package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/service/appointment"
)

type blockingSweeper struct {
	mu      sync.Mutex
	calls   int
	limits  []int
	release chan struct{}
	entered chan struct{}
}

func (s *blockingSweeper) AutoUpdateOverdueAppointments(ctx context.Context, limit int) (appointment.SweepResult, error) {
	s.mu.Lock()
	s.calls++
	s.limits = append(s.limits, limit)
	s.mu.Unlock()
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	return appointment.SweepResult{Scanned: 1, Processed: 1}, nil
}

func TestNewOverdueSweepWorker_InvalidSchedule(t *testing.T) {
	_, err := NewOverdueSweepWorker(&blockingSweeper{}, "not a schedule", 10, zerolog.Nop())
	assert.Error(t, err)
}

func TestOverdueSweepWorker_RunOnce(t *testing.T) {
	s := &blockingSweeper{}
	w, err := NewOverdueSweepWorker(s, "@every 1h", 25, zerolog.Nop())
	require.NoError(t, err)

	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, []int{25}, s.limits)
}

func TestOverdueSweepWorker_SkipsOverlappingRun(t *testing.T) {
	s := &blockingSweeper{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	w, err := NewOverdueSweepWorker(s, "@every 1h", 10, zerolog.Nop())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.RunOnce(context.Background())
	}()
	<-s.entered

	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)

	close(s.release)
	<-done
	assert.Equal(t, 1, s.calls)
}

func TestOverdueSweepWorker_StartStops(t *testing.T) {
	w, err := NewOverdueSweepWorker(&blockingSweeper{}, "@every 1h", 10, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
