package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/internal/service/appointment"
)

// Sweeper is the part of the appointment service the scheduler drives.
type Sweeper interface {
	AutoUpdateOverdueAppointments(ctx context.Context, limit int) (appointment.SweepResult, error)
}

// OverdueSweepWorker runs the no-show sweep on a cron schedule. A run that
// is still in progress when the next tick fires causes that tick to be skipped.
type OverdueSweepWorker struct {
	sweeper   Sweeper
	batchSize int
	cron      *cron.Cron
	logger    zerolog.Logger

	mu      sync.Mutex
	running bool
}

func NewOverdueSweepWorker(sweeper Sweeper, schedule string, batchSize int, logger zerolog.Logger) (*OverdueSweepWorker, error) {
	w := &OverdueSweepWorker{
		sweeper:   sweeper,
		batchSize: batchSize,
		cron:      cron.New(),
		logger:    logger.With().Str("worker", "overdue_sweep").Logger(),
	}
	if _, err := w.cron.AddFunc(schedule, w.tick); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start blocks until ctx is cancelled, then waits for a running sweep to end.
func (w *OverdueSweepWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Starting overdue sweep worker")
	w.cron.Start()

	<-ctx.Done()
	stopped := w.cron.Stop()
	<-stopped.Done()
	w.logger.Info().Msg("Overdue sweep worker stopped")
}

func (w *OverdueSweepWorker) tick() {
	if _, err := w.RunOnce(context.Background()); err != nil {
		w.logger.Error().Err(err).Msg("Overdue sweep failed")
	}
}

// RunOnce performs one sweep unless another is already running.
func (w *OverdueSweepWorker) RunOnce(ctx context.Context) (appointment.SweepResult, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.logger.Debug().Msg("Previous sweep still running, skipping")
		return appointment.SweepResult{}, nil
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	return w.sweeper.AutoUpdateOverdueAppointments(ctx, w.batchSize)
}
