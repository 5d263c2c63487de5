// Package sender hands rendered emails to the outbound mail relay.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/jordan-wright/email"

	"supplierhub/internal/platform/config"
	"supplierhub/pkg/platform/circuit"
	"supplierhub/pkg/platform/privacy"
)

// Email is one rendered message ready for delivery.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

// ErrRelayUnavailable is returned without contacting the relay while the
// breaker is open.
var ErrRelayUnavailable = errors.New("mail relay unavailable")

// sendFunc matches (*email.Email).Send so tests can replace the network call.
type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// SMTP sends through an authenticated relay.
type SMTP struct {
	addr    string
	from    string
	auth    smtp.Auth
	breaker *circuit.Breaker
	logger  *slog.Logger
	send    sendFunc
}

type Option func(*SMTP)

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *SMTP) {
		s.breaker = b
	}
}

func withSendFunc(fn sendFunc) Option {
	return func(s *SMTP) {
		s.send = fn
	}
}

// New returns the SMTP sender, or a Log sender when no relay host is set.
func New(cfg config.SMTPConfig, logger *slog.Logger, opts ...Option) Sender {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" {
		return &Log{logger: logger}
	}
	return NewSMTP(cfg, logger, opts...)
}

func NewSMTP(cfg config.SMTPConfig, logger *slog.Logger, opts ...Option) *SMTP {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SMTP{
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		from:   cfg.From,
		logger: logger,
		breaker: circuit.New("smtp",
			circuit.WithFailureThreshold(5),
			circuit.WithCooldown(30*time.Second),
		),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
	if cfg.FromName != "" {
		s.from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SMTP) Send(ctx context.Context, msg Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.breaker.Allow() {
		return ErrRelayUnavailable
	}

	e := email.NewEmail()
	e.From = s.from
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)

	if err := s.send(e, s.addr, s.auth); err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.WarnContext(ctx, "smtp circuit opened", "breaker", s.breaker.Name(), "error", err)
		}
		return fmt.Errorf("send to %s: %w", privacy.RedactEmail(msg.To), err)
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "smtp circuit closed", "breaker", s.breaker.Name())
	}
	return nil
}

// Log writes emails to the logger instead of sending them. Local
// development runs without a relay.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, msg Email) error {
	l.logger.InfoContext(ctx, "email not sent, no smtp relay configured",
		"to", privacy.RedactEmail(msg.To),
		"subject", msg.Subject,
		"bytes", len(msg.HTML),
	)
	return nil
}
