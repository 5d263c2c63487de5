package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"supplierhub/internal/captcha"
	contacthandler "supplierhub/internal/contact/handler"
	contactmetrics "supplierhub/internal/contact/metrics"
	contactservice "supplierhub/internal/contact/service"
	httpapi "supplierhub/internal/http"
	jwttoken "supplierhub/internal/jwt_token"
	"supplierhub/internal/notify"
	notifymetrics "supplierhub/internal/notify/metrics"
	"supplierhub/internal/notify/sender"
	"supplierhub/internal/notify/templates"
	"supplierhub/internal/notify/worker"
	"supplierhub/internal/platform/config"
	"supplierhub/internal/platform/httpserver"
	"supplierhub/internal/platform/logger"
	"supplierhub/internal/platform/metrics"
	ratelimithandler "supplierhub/internal/ratelimit/handler"
	ratelimitmetrics "supplierhub/internal/ratelimit/metrics"
	ratelimitmw "supplierhub/internal/ratelimit/middleware"
	quotasvc "supplierhub/internal/ratelimit/service/quota"
	"supplierhub/internal/ratelimit/service/requestlimit"
	"supplierhub/internal/ratelimit/store/bucket"
	auditmetrics "supplierhub/pkg/platform/audit/metrics"
	"supplierhub/pkg/platform/audit/outbox"
	auditpublisher "supplierhub/pkg/platform/audit/publisher"
	"supplierhub/pkg/platform/circuit"
)

// main wires dependencies and runs the HTTP server alongside the background
// workers. Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error("supplierhub exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	st, err := buildStores(cfg, infra)
	if err != nil {
		return err
	}

	auditMetrics := auditmetrics.New(m.Registry)
	auditPub := auditpublisher.NewPublisher(st.audit,
		auditpublisher.WithAsyncBuffer(256),
		auditpublisher.WithLogger(log),
		auditpublisher.WithMetrics(auditMetrics),
	)
	defer auditPub.Close()

	rlMetrics := ratelimitmetrics.New(m.Registry)
	quota, err := quotasvc.New(st.quotas, st.limits,
		quotasvc.WithLogger(log),
		quotasvc.WithAuditPublisher(auditPub),
		quotasvc.WithMetrics(rlMetrics),
		quotasvc.WithDefaultLimit(cfg.Contact.DefaultWeeklyLimit),
		quotasvc.WithPeriod(cfg.Contact.QuotaPeriod),
	)
	if err != nil {
		return fmt.Errorf("build quota service: %w", err)
	}

	var buckets requestlimit.BucketStore = bucket.NewInMemoryBucketStore()
	if infra.redis != nil {
		buckets = bucket.NewRedisBucketStore(infra.redis.Client)
	}
	limiter, err := requestlimit.New(buckets,
		requestlimit.WithLogger(log),
		requestlimit.WithAuditPublisher(auditPub),
		requestlimit.WithMetrics(rlMetrics),
		requestlimit.WithLimit(cfg.Contact.RateLimitAttempts, cfg.Contact.RateLimitWindow),
	)
	if err != nil {
		return fmt.Errorf("build submission limiter: %w", err)
	}

	queue, err := buildQueue(ctx, cfg, infra, log)
	if err != nil {
		return err
	}
	dispatcher, err := notify.NewDispatcher(queue, notify.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build notification dispatcher: %w", err)
	}
	renderer, err := templates.New()
	if err != nil {
		return fmt.Errorf("load mail templates: %w", err)
	}
	mailer := sender.New(cfg.SMTP, log, sender.WithBreaker(circuit.New("smtp")))
	notifyWorker, err := worker.New(queue, renderer, mailer,
		worker.WithLogger(log),
		worker.WithMetrics(notifymetrics.New(m.Registry)),
		worker.WithConcurrency(cfg.Contact.NotifyWorkers),
	)
	if err != nil {
		return fmt.Errorf("build notification worker: %w", err)
	}

	contacts, err := contactservice.New(contactservice.Deps{
		Contacts:  st.contacts,
		Companies: st.companies,
		Users:     st.users,
		Quota:     quota,
		Captcha:   captcha.New(cfg.Captcha, cfg.Environment, log),
		Notifier:  dispatcher,
		TxManager: st.tx,
	},
		contactservice.WithLogger(log),
		contactservice.WithAuditPublisher(auditPub),
		contactservice.WithMetrics(contactmetrics.New(m.Registry)),
		contactservice.WithFrontendURL(cfg.Contact.FrontendURL),
	)
	if err != nil {
		return fmt.Errorf("build contact service: %w", err)
	}

	routerDeps := httpapi.Deps{
		Logger:          log,
		Validator:       jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)),
		Contacts:        contacthandler.New(contacts, log),
		Limits:          ratelimithandler.New(quota, log),
		SubmissionLimit: ratelimitmw.New(limiter, log),
		AdminToken:      cfg.Auth.AdminAPIToken,
		RequestTimeout:  cfg.Server.RequestTimeout,
		Checks:          infra.Checks(),
	}
	if cfg.Server.MetricsEnabled {
		routerDeps.Metrics = m
	}
	srv := httpserver.New(cfg.Server.Addr, httpapi.NewRouter(routerDeps))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting supplierhub",
			"addr", cfg.Server.Addr,
			"environment", cfg.Environment,
			"storage", st.kind,
			"notify_queue", cfg.Contact.NotifyQueue,
		)
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout)
	})
	g.Go(func() error {
		return notifyWorker.Run(gctx)
	})
	if st.outbox != nil && infra.producer != nil {
		relay, err := outbox.New(st.outbox, infra.producer, st.tx, cfg.Kafka.AuditTopic,
			outbox.WithLogger(log),
			outbox.WithMetrics(auditMetrics),
			outbox.WithBatchSize(cfg.Kafka.OutboxBatchSize),
			outbox.WithInterval(cfg.Kafka.OutboxPollEvery),
			outbox.WithContactTopic(cfg.Kafka.ContactTopic),
		)
		if err != nil {
			return fmt.Errorf("build outbox relay: %w", err)
		}
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("supplierhub stopped")
	return nil
}
