package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplierhub/internal/notify"
)

func TestMemoryQueue(t *testing.T) {
	t.Run("delivers enqueued messages", func(t *testing.T) {
		q := NewMemory(4, nil)
		require.NoError(t, q.Enqueue(context.Background(), notify.Message{ID: "m1"}))

		ctx, cancel := context.WithCancel(context.Background())
		got := make(chan notify.Message, 1)
		go func() {
			_ = q.Consume(ctx, func(_ context.Context, msg notify.Message) error {
				got <- msg
				return nil
			})
		}()

		select {
		case msg := <-got:
			assert.Equal(t, "m1", msg.ID)
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
		cancel()
	})

	t.Run("redelivers failures with a raised attempt count", func(t *testing.T) {
		q := NewMemory(4, nil)
		require.NoError(t, q.Enqueue(context.Background(), notify.Message{ID: "m2"}))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var calls atomic.Int32
		attempts := make(chan int, 3)
		go func() {
			_ = q.Consume(ctx, func(_ context.Context, msg notify.Message) error {
				attempts <- msg.Attempts
				if calls.Add(1) < 3 {
					return errors.New("smtp down")
				}
				return nil
			})
		}()

		var seen []int
		for range 3 {
			select {
			case a := <-attempts:
				seen = append(seen, a)
			case <-time.After(time.Second):
				t.Fatal("redelivery did not happen")
			}
		}
		assert.Equal(t, []int{0, 1, 2}, seen)
	})

	t.Run("full buffer rejects enqueue", func(t *testing.T) {
		q := NewMemory(1, nil)
		require.NoError(t, q.Enqueue(context.Background(), notify.Message{ID: "a"}))
		assert.ErrorIs(t, q.Enqueue(context.Background(), notify.Message{ID: "b"}), ErrQueueFull)
		assert.Equal(t, 1, q.Len())
	})

	t.Run("dead letters are kept for inspection", func(t *testing.T) {
		q := NewMemory(1, nil)
		require.NoError(t, q.DeadLetter(context.Background(), notify.Message{ID: "x"}, "exhausted"))
		dead := q.DeadLetters()
		require.Len(t, dead, 1)
		assert.Equal(t, "exhausted", dead[0].Reason)
	})
}
