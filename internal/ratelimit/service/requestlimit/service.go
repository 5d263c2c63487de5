// Package requestlimit throttles contact submissions per client IP and
// contact email, independent of the caller's weekly allowance.
package requestlimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"supplierhub/internal/ratelimit/metrics"
	"supplierhub/internal/ratelimit/models"
	"supplierhub/internal/ratelimit/ports"
	dErrors "supplierhub/pkg/domain-errors"
	"supplierhub/pkg/platform/audit"
	"supplierhub/pkg/platform/privacy"
)

// Type aliases for interfaces from ports package.
// This allows external packages to use these types without importing ports directly.
type (
	BucketStore    = ports.BucketStore
	AuditPublisher = ports.AuditPublisher
)

const (
	DefaultAttempts = 5
	DefaultWindow   = 60 * time.Minute
)

type Service struct {
	buckets        BucketStore
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	attempts       int
	window         time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLimit overrides the number of submissions allowed per window.
// Non-positive values are ignored.
func WithLimit(attempts int, window time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if window > 0 {
			s.window = window
		}
	}
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}

	svc := &Service{
		buckets:  buckets,
		attempts: DefaultAttempts,
		window:   DefaultWindow,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckSubmission consumes one attempt from the bucket keyed by ip and
// email. A denied result is not an error; callers decide how to reject.
func (s *Service) CheckSubmission(ctx context.Context, ip, email string) (*models.RateLimitResult, error) {
	key := models.SubmissionKey(ip, email)
	result, err := s.buckets.Allow(ctx, key, s.attempts, s.window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}

	if !result.Allowed {
		s.metrics.IncrementThrottled()
		ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventContactRateLimited,
			"identifier", privacy.AnonymizeIP(ip),
			"email", privacy.RedactEmail(email),
			"decision", "throttled",
			"reason", "contact submission rate limit exceeded",
			"limit", s.attempts,
			"window_seconds", int(s.window.Seconds()),
			"retry_after", result.RetryAfter,
		)
	}
	return result, nil
}

// Allow is CheckSubmission for callers that only need a yes or no. A denied
// attempt returns a CodeRateLimited error carrying the retry hint.
func (s *Service) Allow(ctx context.Context, ip, email string) error {
	result, err := s.CheckSubmission(ctx, ip, email)
	if err != nil {
		return err
	}
	if !result.Allowed {
		return dErrors.NewRateLimited(result.RetryAfter)
	}
	return nil
}

// ResetSubmission clears the bucket for ip and email.
func (s *Service) ResetSubmission(ctx context.Context, ip, email string) error {
	if err := s.buckets.Reset(ctx, models.SubmissionKey(ip, email)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset rate limit")
	}
	return nil
}
