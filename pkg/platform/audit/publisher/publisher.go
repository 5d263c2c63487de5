// Package publisher emits audit events to a Store.
//
// Compliance events are always written synchronously and their failure is
// returned to the caller, which must fail its own operation. Other
// categories go through an optional bounded buffer and are dropped with a
// warning when it is full.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	id "supplierhub/pkg/domain"
	audit "supplierhub/pkg/platform/audit"
)

// ErrBufferFull is returned when an async event could not be queued.
var ErrBufferFull = errors.New("audit buffer full")

// Metrics receives publisher counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	IncEmitted(category audit.EventCategory)
	IncDropped(category audit.EventCategory)
	IncFailed(category audit.EventCategory)
}

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time

	buffer  int
	queue   chan audit.Event
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	closeMu sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous delivery of non-compliance events.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer > 0 {
		p.queue = make(chan audit.Event, p.buffer)
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event. Missing timestamp, ID and category are filled in.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return errors.New("audit event requires Action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.Category = audit.AuditEvent(event.Action).Category()

	if p.queue == nil || event.Category == audit.CategoryCompliance {
		return p.persist(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.persist(ctx, event)
	}
	select {
	case p.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"request_id", event.RequestID,
		)
		if p.metrics != nil {
			p.metrics.IncDropped(event.Category)
		}
		return ErrBufferFull
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.IncFailed(event.Category)
		}
		p.logger.ErrorContext(ctx, "audit persistence failed",
			"action", event.Action,
			"category", event.Category,
			"request_id", event.RequestID,
			"error", err,
		)
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	if p.metrics != nil {
		p.metrics.IncEmitted(event.Category)
	}
	return nil
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.queue {
		// Async events outlive the request that produced them.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = p.persist(ctx, event)
		cancel()
	}
}

// List returns the events recorded for a user.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close flushes buffered events. Emit after Close writes synchronously.
func (p *Publisher) Close() {
	p.closeMu.Do(func() {
		if p.queue == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
	})
}
