package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

type outboxRepository struct {
	db *DB
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.addEventLocked(event)
	return nil
}

func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.db.dueEventsLocked(r.db.now(), limit), nil
}

// dueEventsLocked returns copies of the events due at now, oldest first.
func (db *DB) dueEventsLocked(now time.Time, limit int) []*model.OutboxEvent {
	var out []*model.OutboxEvent
	for _, e := range db.outbox {
		if e.Status != model.OutboxStatusPending && e.Status != model.OutboxStatusRetry {
			continue
		}
		if e.RetryAt != nil && e.RetryAt.After(now) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *outboxRepository) ClaimPendingEvents(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	due := r.db.dueEventsLocked(now, limit)
	until := now.Add(lease)
	for _, e := range due {
		stored := r.db.outbox[e.ID]
		stored.RetryAt = &until
		stored.UpdatedAt = now
		e.RetryAt = &until
	}
	return due, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e, ok := r.db.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := r.db.now()
	e.Status = model.OutboxStatusProcessed
	e.ProcessedAt = &now
	e.UpdatedAt = now
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryCount int, retryAt *time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e, ok := r.db.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.ErrorMessage = &errMsg
	e.RetryCount = retryCount
	e.RetryAt = retryAt
	e.Status = model.OutboxStatusRetry
	if retryAt == nil {
		e.Status = model.OutboxStatusFailed
	}
	e.UpdatedAt = r.db.now()
	return nil
}
