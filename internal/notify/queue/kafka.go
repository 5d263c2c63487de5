package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"supplierhub/internal/notify"
	"supplierhub/internal/platform/kafka/consumer"
	"supplierhub/internal/platform/kafka/producer"
)

// Publisher is the producer subset the Kafka queue needs.
type Publisher interface {
	Publish(ctx context.Context, msgs ...producer.Message) error
}

// Runner consumes until its context ends.
type Runner interface {
	Run(ctx context.Context) error
}

// ConsumerFactory joins the notification topic with handler.
type ConsumerFactory func(handler consumer.Handler) (Runner, error)

// Kafka queues notifications on a topic keyed by recipient. A failed
// delivery is republished with a raised attempt count and the original
// offset is committed, so one bad message never stalls its partition.
type Kafka struct {
	publisher   Publisher
	newConsumer ConsumerFactory
	topic       string
	logger      *slog.Logger
}

func NewKafka(publisher Publisher, newConsumer ConsumerFactory, topic string, logger *slog.Logger) *Kafka {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{publisher: publisher, newConsumer: newConsumer, topic: topic, logger: logger}
}

func (q *Kafka) Enqueue(ctx context.Context, msg notify.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return q.publisher.Publish(ctx, producer.Message{
		Topic: q.topic,
		Key:   []byte(msg.To),
		Value: raw,
		Headers: map[string]string{
			"template":   string(msg.Template),
			"request_id": msg.RequestID,
		},
	})
}

func (q *Kafka) Consume(ctx context.Context, handle notify.HandleFunc) error {
	c, err := q.newConsumer(consumer.HandlerFunc(func(ctx context.Context, rec *consumer.Message) error {
		var msg notify.Message
		if err := json.Unmarshal(rec.Value, &msg); err != nil {
			q.logger.ErrorContext(ctx, "undecodable notification",
				"partition", rec.Partition,
				"offset", rec.Offset,
				"error", err,
			)
			return nil
		}
		if err := handle(ctx, msg); err != nil {
			msg.Attempts++
			// A failed republish stops the consumer without committing, so
			// the record is redelivered.
			return q.Enqueue(ctx, msg)
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("start notification consumer: %w", err)
	}
	return c.Run(ctx)
}

func (q *Kafka) DeadLetter(ctx context.Context, msg notify.Message, reason string) error {
	raw, err := json.Marshal(DeadLetter{Message: msg, Reason: reason, FailedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	return q.publisher.Publish(ctx, producer.Message{
		Topic: q.topic + ".dlq",
		Key:   []byte(msg.To),
		Value: raw,
	})
}
