package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"supplierhub/internal/notify"
)

// Redis is a reliable list queue. Consumers move each message atomically
// from the pending list to a processing list and remove it only after the
// handler finished, so a crash mid-delivery leaves it recoverable.
type Redis struct {
	client       redis.UniversalClient
	pending      string
	processing   string
	dead         string
	blockTimeout time.Duration
	logger       *slog.Logger
}

type RedisOption func(*Redis)

// WithKeyPrefix namespaces the three lists. Default "notify".
func WithKeyPrefix(prefix string) RedisOption {
	return func(q *Redis) {
		q.pending = prefix + ":pending"
		q.processing = prefix + ":processing"
		q.dead = prefix + ":dlq"
	}
}

// WithBlockTimeout bounds each blocking pop so Consume notices cancellation.
func WithBlockTimeout(d time.Duration) RedisOption {
	return func(q *Redis) {
		q.blockTimeout = d
	}
}

func NewRedis(client redis.UniversalClient, logger *slog.Logger, opts ...RedisOption) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Redis{client: client, blockTimeout: 5 * time.Second, logger: logger}
	WithKeyPrefix("notify")(q)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Redis) Enqueue(ctx context.Context, msg notify.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := q.client.LPush(ctx, q.pending, raw).Err(); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

func (q *Redis) Consume(ctx context.Context, handle notify.HandleFunc) error {
	for ctx.Err() == nil {
		raw, err := q.client.BLMove(ctx, q.pending, q.processing, "RIGHT", "LEFT", q.blockTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			q.logger.ErrorContext(ctx, "notification queue pop failed", "error", err)
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}
		q.process(ctx, raw, handle)
	}
	return nil
}

func (q *Redis) process(ctx context.Context, raw string, handle notify.HandleFunc) {
	var msg notify.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		q.logger.ErrorContext(ctx, "undecodable notification", "error", err)
		_, _ = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.LRem(ctx, q.processing, 1, raw)
			p.LPush(ctx, q.dead, raw)
			return nil
		})
		return
	}

	herr := handle(ctx, msg)
	if ctx.Err() != nil {
		// Left in processing; Recover puts it back on the next start.
		return
	}

	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, q.processing, 1, raw)
		if herr != nil {
			msg.Attempts++
			retry, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			p.LPush(ctx, q.pending, retry)
		}
		return nil
	})
	if err != nil {
		q.logger.ErrorContext(ctx, "notification ack failed",
			"message_id", msg.ID,
			"error", err,
		)
	}
}

// Recover moves messages left in the processing list by a crashed consumer
// back to pending. Call it once before starting consumers.
func (q *Redis) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.pending, "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("recover notifications: %w", err)
		}
		n++
	}
}

func (q *Redis) DeadLetter(ctx context.Context, msg notify.Message, reason string) error {
	raw, err := json.Marshal(DeadLetter{Message: msg, Reason: reason, FailedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	if err := q.client.LPush(ctx, q.dead, raw).Err(); err != nil {
		return fmt.Errorf("push dead letter: %w", err)
	}
	return nil
}

// Backlog reports the pending and dead-letter list lengths.
func (q *Redis) Backlog(ctx context.Context) (pending, dead int64, err error) {
	pipe := q.client.Pipeline()
	p := pipe.LLen(ctx, q.pending)
	d := pipe.LLen(ctx, q.dead)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("notification backlog: %w", err)
	}
	return p.Val(), d.Val(), nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
