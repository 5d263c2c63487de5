package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"supplierhub/internal/notify"
	"supplierhub/internal/notify/queue"
	"supplierhub/internal/platform/config"
	"supplierhub/internal/platform/kafka/consumer"
)

// buildQueue selects the notification transport named by NOTIFY_QUEUE.
func buildQueue(ctx context.Context, cfg config.Config, in *infra, log *slog.Logger) (notify.Queue, error) {
	switch cfg.Contact.NotifyQueue {
	case "redis":
		if in.redis == nil {
			return nil, errors.New("redis notification queue requires REDIS_URL")
		}
		q := queue.NewRedis(in.redis.Client, log)
		n, err := q.Recover(ctx)
		if err != nil {
			return nil, fmt.Errorf("recover notification queue: %w", err)
		}
		if n > 0 {
			log.Info("requeued notifications left in processing", "count", n)
		}
		return q, nil
	case "kafka":
		if in.producer == nil {
			return nil, errors.New("kafka notification queue requires KAFKA_BROKERS")
		}
		topic := cfg.Kafka.NotificationTopic
		return queue.NewKafka(in.producer, func(h consumer.Handler) (queue.Runner, error) {
			return consumer.New(cfg.Kafka, cfg.Kafka.ConsumerGroup+"-notify", []string{topic}, h, log)
		}, topic, log), nil
	default:
		return queue.NewMemory(1024, log), nil
	}
}
