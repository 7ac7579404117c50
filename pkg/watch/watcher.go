// Package watch follows a process until it reaches a final status.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/concordctl/pkg/eventbus"
	"github.com/dukex/concordctl/pkg/events"
	"github.com/dukex/concordctl/pkg/log"
	"github.com/dukex/concordctl/pkg/models"
	"github.com/google/uuid"
)

const DefaultInterval = 2 * time.Second

// Getter loads the current snapshot of a process. *process.Service implements it.
type Getter interface {
	Get(ctx context.Context, id uuid.UUID, include ...models.ProcessDataInclude) (*models.ProcessEntry, error)
}

// Observer is called with every snapshot whose status differs from the previous one.
type Observer func(entry *models.ProcessEntry)

type Watcher struct {
	getter    Getter
	publisher eventbus.EventPublisher
	idgen     func() string
	interval  time.Duration
	observer  Observer
	logger    *slog.Logger
}

type Option func(*Watcher)

func WithInterval(interval time.Duration) Option {
	return func(w *Watcher) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithEventBus publishes status changes and the final status to bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(w *Watcher) {
		w.publisher = bus
		w.idgen = bus.GenerateID
	}
}

func WithObserver(observer Observer) Option {
	return func(w *Watcher) {
		w.observer = observer
	}
}

func NewWatcher(getter Getter, opts ...Option) *Watcher {
	w := &Watcher{
		getter:   getter,
		interval: DefaultInterval,
		idgen:    uuid.NewString,
		logger:   log.WithModule("watch"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// With returns a copy of the watcher with opts applied.
func (w *Watcher) With(opts ...Option) *Watcher {
	clone := *w

	for _, opt := range opts {
		opt(&clone)
	}

	return &clone
}

// Watch polls the process until its status is final and returns that last snapshot.
// Backend errors stop the watch and are returned unchanged. Cancelling ctx returns ctx.Err().
func (w *Watcher) Watch(ctx context.Context, id uuid.UUID) (*models.ProcessEntry, error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var last models.ProcessStatus

	for {
		entry, err := w.getter.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if entry.Status != last {
			if err := w.statusChanged(ctx, entry, last); err != nil {
				return nil, err
			}

			last = entry.Status
		}

		if entry.Status.IsFinal() {
			if err := w.finished(ctx, entry); err != nil {
				return nil, err
			}

			return entry, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) statusChanged(ctx context.Context, entry *models.ProcessEntry, from models.ProcessStatus) error {
	w.logger.InfoContext(ctx, "Process status changed",
		"instance_id", entry.InstanceID,
		"from", from,
		"to", entry.Status,
	)

	if w.observer != nil {
		w.observer(entry)
	}

	if w.publisher == nil {
		return nil
	}

	event := events.NewProcessStatusChanged(w.idgen(), entry.InstanceID, from, entry.Status)
	if err := w.publisher.Publish(ctx, entry.InstanceID.String(), event); err != nil {
		return fmt.Errorf("failed to publish status change: %w", err)
	}

	return nil
}

func (w *Watcher) finished(ctx context.Context, entry *models.ProcessEntry) error {
	if w.publisher == nil {
		return nil
	}

	event := events.NewProcessFinished(w.idgen(), entry)
	if err := w.publisher.Publish(ctx, entry.InstanceID.String(), event); err != nil {
		return fmt.Errorf("failed to publish process finished: %w", err)
	}

	return nil
}
