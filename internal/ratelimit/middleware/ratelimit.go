package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"supplierhub/internal/ratelimit/models"
	dErrors "supplierhub/pkg/domain-errors"
	"supplierhub/pkg/platform/httputil"
	"supplierhub/pkg/platform/privacy"
	"supplierhub/pkg/requestcontext"
)

// maxPeekBytes bounds how much of the body is buffered to read the email.
const maxPeekBytes = 1 << 20

type SubmissionLimiter interface {
	CheckSubmission(ctx context.Context, ip, email string) (*models.RateLimitResult, error)
}

type Middleware struct {
	limiter  SubmissionLimiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter SubmissionLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("contact submission rate limiting disabled")
	}
	return m
}

// RateLimitContactSubmission throttles POST /contacts per client IP and the
// email in the body. Every attempt counts, including ones that later fail
// validation. Limiter errors fail open so a Redis outage does not block
// buyers; quota enforcement still applies downstream.
func (m *Middleware) RateLimitContactSubmission() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			email := peekEmail(r)

			result, err := m.limiter.CheckSubmission(ctx, ip, email)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check contact submission rate limit",
					"error", err,
					"ip_prefix", privacy.AnonymizeIP(ip),
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)

			if !result.Allowed {
				httputil.WriteError(w, dErrors.NewRateLimited(result.RetryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// peekEmail reads the email field and restores the body for the handler.
func peekEmail(r *http.Request) string {
	if r.Body == nil || r.ContentLength == 0 {
		return ""
	}
	bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	if err != nil || len(bodyBytes) == 0 {
		return ""
	}
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(bodyBytes, &payload) != nil {
		return ""
	}
	return strings.TrimSpace(payload.Email)
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
