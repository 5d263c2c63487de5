// Package service implements the contact request workflow: submission,
// supplier responses, admin moderation and the visibility toggle.
//
// Every state change runs in one unit of work together with its audit event.
// Notifications are queued after commit and their failures are only logged.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"supplierhub/internal/contact/metrics"
	"supplierhub/internal/contact/models"
	"supplierhub/internal/contact/ports"
	id "supplierhub/pkg/domain"
	dErrors "supplierhub/pkg/domain-errors"
	"supplierhub/pkg/platform/attrs"
	"supplierhub/pkg/platform/audit"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/platform/tx"
	"supplierhub/pkg/requestcontext"
)

// Type aliases for the interfaces this service consumes.
type (
	ContactStore    = ports.ContactStore
	CompanyStore    = ports.CompanyStore
	UserStore       = ports.UserStore
	QuotaService    = ports.QuotaService
	CaptchaVerifier = ports.CaptchaVerifier
	Notifier        = ports.Notifier
	AuditPublisher  = ports.AuditPublisher
)

const tracerName = "supplierhub/contact"

type Service struct {
	contacts  ContactStore
	companies CompanyStore
	users     UserStore
	quota     QuotaService
	captcha   CaptchaVerifier
	notifier  Notifier
	tx        tx.Manager

	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer

	// frontendURL prefixes dashboard links in supplier emails.
	frontendURL string
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

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

func WithFrontendURL(url string) Option {
	return func(s *Service) {
		s.frontendURL = url
	}
}

// Deps groups the collaborators every Service needs.
type Deps struct {
	Contacts  ContactStore
	Companies CompanyStore
	Users     UserStore
	Quota     QuotaService
	Captcha   CaptchaVerifier
	Notifier  Notifier
	TxManager tx.Manager
}

func New(deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Contacts == nil:
		return nil, errors.New("contact store is required")
	case deps.Companies == nil:
		return nil, errors.New("company store is required")
	case deps.Users == nil:
		return nil, errors.New("user store is required")
	case deps.Quota == nil:
		return nil, errors.New("quota service is required")
	case deps.Captcha == nil:
		return nil, errors.New("captcha verifier is required")
	case deps.Notifier == nil:
		return nil, errors.New("notifier is required")
	case deps.TxManager == nil:
		return nil, errors.New("transaction manager is required")
	}

	svc := &Service{
		contacts:  deps.Contacts,
		companies: deps.Companies,
		users:     deps.Users,
		quota:     deps.Quota,
		captcha:   deps.Captcha,
		notifier:  deps.Notifier,
		tx:        deps.TxManager,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *Service) startSpan(ctx context.Context, name string, kv ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(kv...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

// recordAudit logs event and publishes it. Compliance events fail closed:
// the error is returned so the enclosing transaction rolls back.
func (s *Service) recordAudit(ctx context.Context, event audit.AuditEvent, kv ...any) error {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		kv = append(kv, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, string(event), append(kv, "event", string(event), "log_type", "audit")...)

	if s.auditPublisher == nil {
		return nil
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
	if err := s.auditPublisher.Emit(ctx, e); err != nil {
		if event.Category() == audit.CategoryCompliance {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
	return nil
}

// contactError translates store failures for a contact lookup or update.
// Domain errors raised by validate callbacks pass through, except invariant
// violations, which mean the request is in the wrong state.
func contactError(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		if de.Code == dErrors.CodeInvariantViolation {
			return dErrors.Wrap(err, dErrors.CodeConflict, de.Message)
		}
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "Contact request not found")
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeConflict, "contact request was modified concurrently")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func companyError(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "Company not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// currentUser loads the calling account. Anonymous callers are rejected.
func (s *Service) currentUser(ctx context.Context) (*models.User, error) {
	caller := requestcontext.CallerFrom(ctx)
	if caller.IsAnonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Unauthenticated.")
	}
	user, err := s.users.FindByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "Unauthenticated.")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}
