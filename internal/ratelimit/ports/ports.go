// Package ports defines shared interfaces for the ratelimit module.
// Interfaces are placed here when consumed by multiple services to avoid duplication.
package ports

import (
	"context"
	"log/slog"
	"time"

	"supplierhub/internal/ratelimit/models"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/attrs"
	"supplierhub/pkg/platform/audit"
	"supplierhub/pkg/requestcontext"
)

// AuditPublisher emits audit events for security-relevant operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// BucketStore manages sliding window rate limit counters.
type BucketStore interface {
	// Allow checks if a single request is allowed and consumes one token if so.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)

	// AllowN checks if 'cost' requests are allowed and consumes that many tokens if so.
	AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.RateLimitResult, error)

	// Reset clears the rate limit counter for a key.
	Reset(ctx context.Context, key string) error

	// GetCurrentCount returns the current request count in the window.
	GetCurrentCount(ctx context.Context, key string) (int, error)
}

// QuotaStore persists weekly contact counters per buyer.
type QuotaStore interface {
	// Consume applies the reset policy and takes one unit of the allowance in
	// a single atomic step. When the window has lapsed the count restarts at
	// one and the window ends at now+period. allowed is false when the buyer
	// is at limit; the returned state is then the unchanged stored state.
	// A limit of zero or less never denies.
	Consume(ctx context.Context, userID id.UserID, limit int, now time.Time, period time.Duration) (state models.QuotaState, allowed bool, err error)

	// Get returns the stored state. Unknown buyers read as a zero state.
	Get(ctx context.Context, userID id.UserID) (models.QuotaState, error)

	// Reset clears the counter and the active window.
	Reset(ctx context.Context, userID id.UserID) error
}

// LimitResolver looks up the weekly contact limit granted by a buyer's
// package. ok is false when the buyer has no package and the default applies.
type LimitResolver interface {
	ContactLimit(ctx context.Context, userID id.UserID) (limit int, ok bool, err error)
}

// LogAudit is a shared helper for logging audit events across ratelimit services.
// It logs to both the structured logger and the audit publisher if available.
// The "subject", "reason", "decision" and "user_id" attributes are copied onto
// the published event.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.AuditEvent, kv ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		kv = append(kv, "request_id", requestID)
	}

	args := append(kv, "event", string(event), "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, string(event), args...)
	}

	if publisher == nil {
		return
	}
	e := audit.NewEvent(ctx, event)
	e.Subject = attrs.ExtractString(kv, "subject")
	e.Reason = attrs.ExtractString(kv, "reason")
	e.Decision = attrs.ExtractString(kv, "decision")
	if raw := attrs.ExtractString(kv, "user_id"); raw != "" {
		if uid, err := id.ParseUserID(raw); err == nil {
			e.UserID = uid
		}
	}
	if err := publisher.Emit(ctx, e); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
