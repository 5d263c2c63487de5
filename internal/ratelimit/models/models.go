package models

import (
	"strings"
	"time"

	id "supplierhub/pkg/domain"
)

// KeyPrefix namespaces bucket keys per limiter.
type KeyPrefix string

const KeyPrefixContactSubmission KeyPrefix = "contact-request"

// SubmissionKey builds the bucket key for a contact submission. The email is
// case-folded so "A@x.com" and "a@x.com" share a bucket.
func SubmissionKey(ip, email string) string {
	return string(KeyPrefixContactSubmission) + ":" + ip + ":" + strings.ToLower(strings.TrimSpace(email))
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds, with a
// floor of one so a denied caller never sees "retry in 0 seconds".
func RetryAfterSeconds(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	secs := int((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}

// QuotaState is the persisted weekly contact allowance of a buyer.
// A zero ResetAt means no window has started yet.
type QuotaState struct {
	UserID  id.UserID
	Count   int
	ResetAt time.Time
}

// Expired reports whether the window has lapsed (or never started) at now.
func (q QuotaState) Expired(now time.Time) bool {
	return q.ResetAt.IsZero() || now.After(q.ResetAt)
}

// Current returns the state as it applies at now: an expired window reads as
// an unused allowance with no active window.
func (q QuotaState) Current(now time.Time) QuotaState {
	if q.Expired(now) {
		return QuotaState{UserID: q.UserID}
	}
	return q
}

// QuotaSnapshot is the caller-facing view of a buyer's allowance.
type QuotaSnapshot struct {
	Limit     int
	Used      int
	Remaining int
	// ResetAt is zero when no window is active.
	ResetAt   time.Time
	Unlimited bool
}

// NewQuotaSnapshot derives remaining and unlimited from limit and usage.
// A limit of zero or less means unlimited.
func NewQuotaSnapshot(limit int, state QuotaState) QuotaSnapshot {
	snap := QuotaSnapshot{
		Limit:     limit,
		Used:      state.Count,
		ResetAt:   state.ResetAt,
		Unlimited: limit <= 0,
	}
	if !snap.Unlimited {
		snap.Remaining = max(0, limit-state.Count)
	}
	return snap
}

// QuotaDecision is the result of CheckAndConsume.
type QuotaDecision struct {
	Allowed bool
	QuotaSnapshot
}

// LimitStatusResponse is returned by GET /contacts/limit-status.
// Remaining is null for unlimited plans.
type LimitStatusResponse struct {
	ContactLimit int        `json:"contact_limit"`
	UsedContacts int        `json:"used_contacts"`
	Remaining    *int       `json:"remaining"`
	ResetsAt     *time.Time `json:"resets_at"`
	IsUnlimited  bool       `json:"is_unlimited"`
}

// ToLimitStatusResponse maps a snapshot onto the wire shape.
func ToLimitStatusResponse(s QuotaSnapshot) LimitStatusResponse {
	resp := LimitStatusResponse{
		ContactLimit: s.Limit,
		UsedContacts: s.Used,
		IsUnlimited:  s.Unlimited,
	}
	if !s.Unlimited {
		remaining := s.Remaining
		resp.Remaining = &remaining
	}
	if !s.ResetAt.IsZero() {
		resetAt := s.ResetAt.UTC()
		resp.ResetsAt = &resetAt
	}
	return resp
}

// QuotaResetResponse is returned by the admin quota reset endpoint.
type QuotaResetResponse struct {
	UserID       string `json:"user_id"`
	UsedContacts int    `json:"used_contacts"`
	Message      string `json:"message"`
}
