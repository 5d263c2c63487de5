package producer

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"supplierhub/internal/platform/config"
	"supplierhub/internal/platform/kafka"
)

// Message is a single record to publish.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Producer publishes records synchronously so callers learn about broker
// failures before acknowledging their own work.
type Producer struct {
	client *kgo.Client
}

// New connects a producer to the configured brokers.
func New(cfg config.KafkaConfig) (*Producer, error) {
	client, err := kafka.NewClient(cfg, kgo.ProducerLinger(0))
	if err != nil {
		return nil, err
	}
	return &Producer{client: client}, nil
}

// NewFromClient wraps an existing client, used by tests and by callers that
// share one client between roles.
func NewFromClient(client *kgo.Client) *Producer {
	return &Producer{client: client}
}

// Publish writes all messages and waits for broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(msgs))
	for _, m := range msgs {
		rec := &kgo.Record{Topic: m.Topic, Key: m.Key, Value: m.Value}
		for k, v := range m.Headers {
			rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
		}
		records = append(records, rec)
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce %d records: %w", len(records), err)
	}
	return nil
}

// Health pings the brokers.
func (p *Producer) Health(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Client exposes the underlying client for admin operations.
func (p *Producer) Client() *kgo.Client {
	return p.client
}

func (p *Producer) Close() {
	p.client.Close()
}
