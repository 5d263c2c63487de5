package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"supplierhub/internal/platform/config"
)

func TestToMessage(t *testing.T) {
	ts := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	msg := toMessage(&kgo.Record{
		Topic:     "notifications",
		Partition: 2,
		Offset:    41,
		Key:       []byte("k"),
		Value:     []byte(`{"template":"contact_response"}`),
		Headers:   []kgo.RecordHeader{{Key: "event_type", Value: []byte("notification")}},
		Timestamp: ts,
	})

	assert.Equal(t, "notifications", msg.Topic)
	assert.Equal(t, int32(2), msg.Partition)
	assert.Equal(t, int64(41), msg.Offset)
	assert.Equal(t, "notification", msg.Headers["event_type"])
	assert.Equal(t, ts, msg.Timestamp)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, "g", []string{"t"}, nil, nil)
	require.Error(t, err)

	noop := HandlerFunc(func(context.Context, *Message) error { return nil })
	_, err = New(config.KafkaConfig{}, "g", []string{"t"}, noop, nil)
	require.Error(t, err)
}
