// Package publisher records credential audit events, synchronously or through
// a bounded background queue.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	id "credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	audit "credledger/pkg/platform/audit"
)

// Publisher appends audit events to a Store. With an async buffer, Emit never
// blocks a write path: a full queue drops the event and counts it.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	events    chan audit.Event
	wg        sync.WaitGroup
	closeOnce sync.Once
	dropped   atomic.Int64
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer queues up to size events for a background writer.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan audit.Event, size)
		}
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPublisher(store audit.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.events != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"subject", event.Subject,
			)
		}
	}
}

// Close stops the background writer after the queue drains. Safe to call twice.
func (p *Publisher) Close() {
	if p.events == nil {
		return
	}
	p.closeOnce.Do(func() {
		close(p.events)
		p.wg.Wait()
	})
}

// Emit stamps and records one event. Category is derived from Action when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if p.events == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.dropped.Add(1)
		p.logger.Warn("audit buffer full, event dropped",
			"action", event.Action,
			"subject", event.Subject,
		)
		return dErrors.New(dErrors.CodeInternal, "audit buffer full")
	}
}

// Dropped reports how many events a full queue has discarded.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// List returns the events performed by actor, oldest first.
func (p *Publisher) List(ctx context.Context, actor id.Address) ([]audit.Event, error) {
	return p.store.ListByActor(ctx, actor)
}

// History returns every event recorded against one credential, oldest first.
func (p *Publisher) History(ctx context.Context, credentialID id.CredentialID) ([]audit.Event, error) {
	return p.store.ListBySubject(ctx, credentialID.String())
}
