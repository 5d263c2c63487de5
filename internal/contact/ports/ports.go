// Package ports defines the interfaces the contact service depends on.
package ports

import (
	"context"
	"time"

	"supplierhub/internal/contact/models"
	"supplierhub/internal/notify"
	rlmodels "supplierhub/internal/ratelimit/models"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks ContactStore,CompanyStore,UserStore,QuotaService,CaptchaVerifier,Notifier,AuditPublisher

// ContactStore persists contact requests. Implementations encrypt the buyer's
// email and phone on write and decrypt them on read.
type ContactStore interface {
	Create(ctx context.Context, contact *models.ContactRequest) error
	FindByID(ctx context.Context, contactID id.ContactID) (*models.ContactRequest, error)

	// Execute loads the contact under a row lock, runs validate, and applies
	// mutate only when validate returns nil. The updated record is returned.
	Execute(ctx context.Context, contactID id.ContactID,
		validate func(*models.ContactRequest) error,
		mutate func(*models.ContactRequest),
	) (*models.ContactRequest, error)

	// List methods return one page, newest first, plus the total row count.
	ListByCompany(ctx context.Context, companyID id.CompanyID, page models.Page) ([]*models.ContactRequest, int, error)
	ListByBuyer(ctx context.Context, buyerID id.UserID, page models.Page) ([]*models.ContactRequest, int, error)
	ListByStatus(ctx context.Context, status models.Status, page models.Page) ([]*models.ContactRequest, int, error)
}

// CompanyStore reads supplier companies and flips their visibility flag.
type CompanyStore interface {
	FindByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error)
	SetShowContactInfo(ctx context.Context, companyID id.CompanyID, show bool, now time.Time) (*models.Company, error)
}

// UserStore reads accounts.
type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	// FirstSupplier returns the earliest supplier account of companyID, the
	// receiver of forwarded requests.
	FirstSupplier(ctx context.Context, companyID id.CompanyID) (*models.User, error)
}

// QuotaService spends one unit of a buyer's weekly allowance.
type QuotaService interface {
	CheckAndConsume(ctx context.Context, userID id.UserID) (*rlmodels.QuotaDecision, error)
}

// CaptchaVerifier checks the bot-protection token of a submission.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Notifier queues a transactional email. Failures never affect the caller's
// transaction.
type Notifier interface {
	Send(ctx context.Context, template notify.Template, recipient string, data map[string]string) error
}

// AuditPublisher records contact lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
