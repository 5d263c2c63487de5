package audit

import (
	"context"
	"time"

	id "supplierhub/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and failure semantics.
type EventCategory string

const (
	// CategoryCompliance covers contact lifecycle changes that must never be
	// lost. Publishers write them synchronously and fail closed.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers abuse signals such as throttling and overrides.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be dropped under load.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	// UserID is the account the event is about (the buyer for quota events,
	// the acting user otherwise). Zero for anonymous submissions.
	UserID id.UserID
	// Subject names the entity touched, e.g. a contact or company ID.
	Subject  string
	Action   string
	Decision string
	Reason   string
	// ActorID tracks who performed the action when different from UserID.
	ActorID   string
	RequestID string
	IP        string
	Device    string
}

type AuditEvent string

const (
	EventContactRequested         AuditEvent = "contact_requested"
	EventContactResponded         AuditEvent = "contact_responded"
	EventContactVisibilityChanged AuditEvent = "contact_visibility_changed"
	EventContactApproved          AuditEvent = "contact_approved"
	EventContactRejected          AuditEvent = "contact_rejected"
	EventContactUnlocked          AuditEvent = "contact_unlocked"
	EventContactStatusOverridden  AuditEvent = "contact_status_overridden"
	EventContactQuotaExceeded     AuditEvent = "contact_quota_exceeded"
	EventContactRateLimited       AuditEvent = "contact_rate_limited"
	EventContactQuotaReset        AuditEvent = "contact_quota_reset"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventContactRequested:         CategoryCompliance,
	EventContactResponded:         CategoryCompliance,
	EventContactVisibilityChanged: CategoryCompliance,
	EventContactApproved:          CategoryCompliance,
	EventContactRejected:          CategoryCompliance,
	EventContactUnlocked:          CategoryCompliance,

	EventContactStatusOverridden: CategorySecurity,
	EventContactRateLimited:      CategorySecurity,
	EventContactQuotaReset:       CategorySecurity,

	EventContactQuotaExceeded: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
