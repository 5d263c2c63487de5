// Package captcha verifies reCAPTCHA v3 tokens attached to contact submissions.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"supplierhub/internal/platform/config"
	dErrors "supplierhub/pkg/domain-errors"
	"supplierhub/pkg/platform/circuit"
	"supplierhub/pkg/platform/privacy"
)

const (
	DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"
	DefaultMinScore  = 0.5
	defaultTimeout   = 5 * time.Second

	// FailureMessage is shown to the submitter on a rejected token.
	FailureMessage = "reCAPTCHA verification failed. Please try again."
)

// Verifier checks a captcha token. A rejected token is a CodeValidation error
// on the recaptcha_token field; an unreachable provider is CodeUnavailable.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// New picks a verifier for cfg. Without a secret key, local environments
// accept every token and every other environment rejects every token.
func New(cfg config.CaptchaConfig, environment string, logger *slog.Logger) Verifier {
	if cfg.SecretKey == "" {
		logger.Warn("recaptcha secret key not configured", "environment", environment)
		return Static{Allow: environment == config.EnvLocal}
	}
	return NewReCaptcha(cfg, logger)
}

// ReCaptcha calls the siteverify endpoint. Consecutive transport failures
// open a breaker so submissions fail fast while the provider is down.
type ReCaptcha struct {
	secret    string
	verifyURL string
	minScore  float64
	client    *http.Client
	breaker   *circuit.Breaker
	logger    *slog.Logger
}

type Option func(*ReCaptcha)

// WithHTTPClient replaces the default client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(r *ReCaptcha) {
		r.client = c
	}
}

func NewReCaptcha(cfg config.CaptchaConfig, logger *slog.Logger, opts ...Option) *ReCaptcha {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	r := &ReCaptcha{
		secret:    cfg.SecretKey,
		verifyURL: cfg.VerifyURL,
		minScore:  cfg.MinScore,
		client:    &http.Client{Timeout: timeout},
		breaker:   circuit.New("recaptcha", circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second)),
		logger:    logger,
	}
	if r.verifyURL == "" {
		r.verifyURL = DefaultVerifyURL
	}
	if r.minScore <= 0 {
		r.minScore = DefaultMinScore
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

func (r *ReCaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return rejected()
	}
	if !r.breaker.Allow() {
		return dErrors.New(dErrors.CodeUnavailable, "captcha verification unavailable")
	}

	result, err := r.call(ctx, token, remoteIP)
	if err != nil {
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.WarnContext(ctx, "recaptcha circuit opened", "error", err)
		}
		r.logger.ErrorContext(ctx, "recaptcha verification error",
			"error", err,
			"ip_prefix", privacy.AnonymizeIP(remoteIP),
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "captcha verification unavailable")
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "recaptcha circuit closed")
	}

	if !result.Success || result.Score < r.minScore {
		r.logger.InfoContext(ctx, "recaptcha token rejected",
			"success", result.Success,
			"score", result.Score,
			"error_codes", result.ErrorCodes,
			"ip_prefix", privacy.AnonymizeIP(remoteIP),
		)
		return rejected()
	}
	return nil
}

func (r *ReCaptcha) call(ctx context.Context, token, remoteIP string) (*siteVerifyResponse, error) {
	form := url.Values{
		"secret":   {r.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("siteverify status %d", resp.StatusCode)
	}

	var out siteVerifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode siteverify response: %w", err)
	}
	return &out, nil
}

// Static accepts or rejects every non-empty token. Used for local development
// and tests.
type Static struct {
	Allow bool
}

func (s Static) Verify(_ context.Context, token, _ string) error {
	if !s.Allow || strings.TrimSpace(token) == "" {
		return rejected()
	}
	return nil
}

func rejected() error {
	return dErrors.NewValidation(FailureMessage, map[string][]string{
		"recaptcha_token": {FailureMessage},
	})
}

// IsRejected reports whether err is a rejected token rather than an outage.
func IsRejected(err error) bool {
	return dErrors.Is(err, dErrors.CodeValidation)
}
