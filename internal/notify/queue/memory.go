// Package queue holds the notification transports: an in-process channel,
// a Redis list and a Kafka topic.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"supplierhub/internal/notify"
)

// ErrQueueFull is returned by Memory.Enqueue when the buffer is at capacity.
var ErrQueueFull = errors.New("notification queue full")

// DeadLetter is a message parked after exhausting its attempts.
type DeadLetter struct {
	Message  notify.Message `json:"message"`
	Reason   string         `json:"reason"`
	FailedAt time.Time      `json:"failed_at"`
}

// Memory is a buffered channel queue for single-process deployments and
// tests. Messages queued at shutdown are lost.
type Memory struct {
	ch     chan notify.Message
	logger *slog.Logger

	mu   sync.Mutex
	dead []DeadLetter
}

func NewMemory(size int, logger *slog.Logger) *Memory {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{ch: make(chan notify.Message, size), logger: logger}
}

func (q *Memory) Enqueue(ctx context.Context, msg notify.Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Consume returns nil when ctx is done. A failed message is put back with
// its attempt count raised; when the buffer is full it is dead-lettered.
func (q *Memory) Consume(ctx context.Context, handle notify.HandleFunc) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-q.ch:
			if err := handle(ctx, msg); err != nil {
				msg.Attempts++
				select {
				case q.ch <- msg:
				default:
					q.logger.WarnContext(ctx, "notification queue full, parking message",
						"message_id", msg.ID,
						"template", msg.Template,
					)
					_ = q.DeadLetter(ctx, msg, "requeue failed: "+ErrQueueFull.Error())
				}
			}
		}
	}
}

func (q *Memory) DeadLetter(_ context.Context, msg notify.Message, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, DeadLetter{Message: msg, Reason: reason, FailedAt: time.Now().UTC()})
	return nil
}

// DeadLetters returns a copy of the parked messages.
func (q *Memory) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadLetter, len(q.dead))
	copy(out, q.dead)
	return out
}

// Len reports how many messages are waiting.
func (q *Memory) Len() int {
	return len(q.ch)
}
