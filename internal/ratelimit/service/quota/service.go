// Package quota enforces the weekly contact allowance of authenticated buyers.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"supplierhub/internal/ratelimit/metrics"
	"supplierhub/internal/ratelimit/models"
	"supplierhub/internal/ratelimit/ports"
	id "supplierhub/pkg/domain"
	dErrors "supplierhub/pkg/domain-errors"
	"supplierhub/pkg/platform/audit"
	"supplierhub/pkg/platform/retry"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/requestcontext"
)

// Type aliases for shared interfaces.
type (
	Store          = ports.QuotaStore
	LimitResolver  = ports.LimitResolver
	AuditPublisher = ports.AuditPublisher
)

const (
	DefaultWeeklyLimit = 1
	DefaultPeriod      = 7 * 24 * time.Hour
)

type Service struct {
	store          Store
	limits         LimitResolver
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	defaultLimit   int
	period         time.Duration
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

// WithDefaultLimit sets the allowance for buyers whose company has no package.
func WithDefaultLimit(limit int) Option {
	return func(s *Service) {
		s.defaultLimit = limit
	}
}

// WithPeriod sets the window length. Non-positive values are ignored.
func WithPeriod(period time.Duration) Option {
	return func(s *Service) {
		if period > 0 {
			s.period = period
		}
	}
}

func New(store Store, limits LimitResolver, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("quota store is required")
	}
	if limits == nil {
		return nil, errors.New("limit resolver is required")
	}

	svc := &Service{
		store:        store,
		limits:       limits,
		defaultLimit: DefaultWeeklyLimit,
		period:       DefaultPeriod,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckAndConsume takes one unit of the buyer's weekly allowance. It joins a
// transaction carried in ctx so the unit is only spent if the contact request
// is stored. An exhausted allowance returns a CodeQuotaExceeded error.
func (s *Service) CheckAndConsume(ctx context.Context, userID id.UserID) (*models.QuotaDecision, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user_id is required")
	}

	limit, err := s.resolveLimit(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	state, allowed, err := s.store.Consume(ctx, userID, limit, now, s.period)
	if err != nil {
		return nil, s.storeError(err, "failed to consume contact quota")
	}

	decision := &models.QuotaDecision{
		Allowed:       allowed,
		QuotaSnapshot: models.NewQuotaSnapshot(limit, state),
	}
	if !allowed {
		s.metrics.IncrementExceeded()
		ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventContactQuotaExceeded,
			"user_id", userID,
			"subject", userID,
			"decision", "denied",
			"reason", fmt.Sprintf("weekly limit %d reached", limit),
			"resets_at", state.ResetAt,
		)
		return decision, dErrors.NewQuotaExceeded(limit, state.ResetAt, now)
	}

	s.metrics.IncrementConsumed()
	return decision, nil
}

// Status reports the allowance as it applies now. A lapsed window reads as
// unused with no reset time; the next contact opens a fresh window.
func (s *Service) Status(ctx context.Context, userID id.UserID) (*models.QuotaSnapshot, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user_id is required")
	}

	limit, err := retry.Once(ctx, func(ctx context.Context) (int, error) {
		return s.resolveLimit(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	state, err := retry.Once(ctx, func(ctx context.Context) (models.QuotaState, error) {
		st, err := s.store.Get(ctx, userID)
		if err != nil {
			return models.QuotaState{}, s.storeError(err, "failed to load contact quota")
		}
		return st, nil
	})
	if err != nil {
		return nil, err
	}

	snap := models.NewQuotaSnapshot(limit, state.Current(requestcontext.Now(ctx)))
	return &snap, nil
}

// Reset clears a buyer's counter. Used by administrators.
func (s *Service) Reset(ctx context.Context, userID id.UserID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "user_id is required")
	}

	if err := s.store.Reset(ctx, userID); err != nil {
		return s.storeError(err, "failed to reset contact quota")
	}

	s.metrics.IncrementResets()
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventContactQuotaReset,
		"user_id", userID,
		"subject", userID,
		"decision", "reset",
	)
	return nil
}

func (s *Service) resolveLimit(ctx context.Context, userID id.UserID) (int, error) {
	limit, ok, err := s.limits.ContactLimit(ctx, userID)
	if err != nil {
		return 0, s.storeError(err, "failed to resolve contact limit")
	}
	if !ok {
		return s.defaultLimit, nil
	}
	return limit, nil
}

func (s *Service) storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "buyer account not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
