// Package outbox relays committed audit outbox rows to Kafka.
package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"supplierhub/internal/platform/kafka/producer"
	audit "supplierhub/pkg/platform/audit"
	"supplierhub/pkg/platform/audit/store/postgres"
	"supplierhub/pkg/platform/tx"
)

// Store is the outbox side of the audit store.
type Store interface {
	FetchUnpublished(ctx context.Context, limit int) ([]postgres.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	Backlog(ctx context.Context) (int, error)
}

// Publisher sends records to the broker.
type Publisher interface {
	Publish(ctx context.Context, msgs ...producer.Message) error
}

// Metrics observes relay progress.
type Metrics interface {
	AddPublished(n int)
	SetBacklog(n int)
}

// Relay moves outbox rows to the audit topic. Compliance events, which are
// the contact lifecycle changes, are also published to the contact topic for
// downstream consumers. Delivery is at-least-once: a crash between publish
// and commit republishes the batch, and consumers dedupe on the event ID key.
type Relay struct {
	store        Store
	publisher    Publisher
	txManager    tx.Manager
	auditTopic   string
	contactTopic string
	batchSize    int
	interval     time.Duration
	logger       *slog.Logger
	metrics      Metrics
	now          func() time.Time
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithContactTopic enables the contact lifecycle fan-out.
func WithContactTopic(topic string) Option {
	return func(r *Relay) { r.contactTopic = topic }
}

func New(store Store, publisher Publisher, txManager tx.Manager, auditTopic string, opts ...Option) (*Relay, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	if publisher == nil {
		return nil, errors.New("outbox publisher is required")
	}
	if txManager == nil {
		return nil, errors.New("transaction manager is required")
	}
	r := &Relay{
		store:      store,
		publisher:  publisher,
		txManager:  txManager,
		auditTopic: auditTopic,
		batchSize:  100,
		interval:   2 * time.Second,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run relays on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
			if r.metrics != nil {
				if n, err := r.store.Backlog(ctx); err == nil {
					r.metrics.SetBacklog(n)
				}
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many rows it covered.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var published int
	err := r.txManager.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := r.store.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		msgs := make([]producer.Message, 0, len(entries))
		ids := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			msgs = append(msgs, r.messagesFor(e)...)
			ids = append(ids, e.ID)
		}
		if err := r.publisher.Publish(ctx, msgs...); err != nil {
			return err
		}
		if err := r.store.MarkPublished(ctx, ids, r.now()); err != nil {
			return err
		}
		published = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 && r.metrics != nil {
		r.metrics.AddPublished(published)
	}
	return published, nil
}

func (r *Relay) messagesFor(e postgres.OutboxEntry) []producer.Message {
	headers := map[string]string{"event_type": e.EventType}
	msgs := []producer.Message{{
		Topic:   r.auditTopic,
		Key:     []byte(e.ID.String()),
		Value:   e.Payload,
		Headers: headers,
	}}
	if r.contactTopic != "" && audit.AuditEvent(e.EventType).Category() == audit.CategoryCompliance {
		// Keyed by aggregate so one contact's events stay ordered in a partition.
		msgs = append(msgs, producer.Message{
			Topic:   r.contactTopic,
			Key:     []byte(e.AggregateID),
			Value:   e.Payload,
			Headers: headers,
		})
	}
	return msgs
}
