package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	httpapi "supplierhub/internal/http"
	"supplierhub/internal/platform/config"
	"supplierhub/internal/platform/kafka"
	"supplierhub/internal/platform/kafka/producer"
	redisclient "supplierhub/internal/platform/redis"
)

// infra holds the optional external connections. A nil field means the
// dependency is not configured.
type infra struct {
	db       *sql.DB
	redis    *redisclient.Client
	producer *producer.Producer
	log      *slog.Logger
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{log: log}

	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		in.db = db
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.redis = rc

	if cfg.Kafka.Enabled() {
		p, err := producer.New(cfg.Kafka)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.producer = p
		if err := kafka.EnsureTopics(ctx, p.Client(), 3, 1,
			cfg.Kafka.ContactTopic, cfg.Kafka.AuditTopic, cfg.Kafka.NotificationTopic,
		); err != nil {
			// Managed clusters often forbid topic creation; publishing still
			// works when the topics were provisioned out of band.
			log.Warn("could not ensure kafka topics", "error", err)
		}
	}
	return in, nil
}

// Checks exposes a health check per configured dependency.
func (in *infra) Checks() map[string]httpapi.HealthCheck {
	checks := map[string]httpapi.HealthCheck{}
	if in.db != nil {
		checks["postgres"] = in.db.PingContext
	}
	if in.redis != nil {
		checks["redis"] = in.redis.Health
	}
	if in.producer != nil {
		checks["kafka"] = in.producer.Health
	}
	return checks
}

func (in *infra) Close() {
	if in.producer != nil {
		in.producer.Close()
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			in.log.Warn("failed to close redis", "error", err)
		}
	}
	if in.db != nil {
		if err := in.db.Close(); err != nil {
			in.log.Warn("failed to close postgres", "error", err)
		}
	}
}
