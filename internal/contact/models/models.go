package models

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"supplierhub/internal/masking"
	id "supplierhub/pkg/domain"
	dErrors "supplierhub/pkg/domain-errors"
)

// Status is the lifecycle state of a contact request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusResponded Status = "responded"
	StatusRejected  Status = "rejected"
	StatusUnlocked  Status = "unlocked"
)

// transitions lists the moves allowed without an admin override.
var transitions = map[Status][]Status{
	StatusPending:  {StatusResponded, StatusRejected, StatusUnlocked, StatusApproved},
	StatusApproved: {StatusUnlocked},
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid contact status")
	}
	return st, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusResponded, StatusRejected, StatusUnlocked:
		return true
	}
	return false
}

// IsTerminal reports whether only an override can move the request on.
func (s Status) IsTerminal() bool {
	return s == StatusResponded || s == StatusRejected
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// Field limits shared by constructors and request validation.
const (
	MaxSubjectLength         = 255
	MaxNameLength            = 255
	MaxEmailLength           = 255
	MaxPhoneLength           = 50
	MaxCountryLength         = 100
	MaxMessageLength         = 1000
	MaxResponseMessageLength = 2000
	MaxNotesLength           = 2000
)

// ContactRequest is a buyer's request to reach a supplier company. Records
// are never deleted; their lifecycle ends in a terminal status.
//
// Invariants:
//   - CompanyID is set and immutable
//   - Message is non-empty and at most MaxMessageLength characters
//   - Email is non-empty
//   - Status only changes through the Can/Apply pairs below or ApplyOverride
//   - IsUnlocked implies UnlockedAt is set
type ContactRequest struct {
	ID            id.ContactID
	CompanyID     id.CompanyID
	BuyerID       id.UserID // nil for anonymous submissions
	Subject       string
	Message       string
	CompanyName   string
	ContactPerson string
	// Email and Phone are plaintext in memory and encrypted at rest.
	Email   string
	Phone   string
	Country string
	Status  Status

	ResponseMessage string
	RespondedAt     *time.Time

	IsUnlocked bool
	UnlockedAt *time.Time
	UnlockedBy id.UserID
	UnlockFee  *decimal.Decimal

	AdminNotes  string
	ReceiverID  id.UserID
	ForwardedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewContactRequest builds a pending request. Callers validate user input
// first; the checks here guard the invariants only.
func NewContactRequest(
	contactID id.ContactID,
	companyID id.CompanyID,
	buyerID id.UserID,
	subject, message, companyName, contactPerson, email, phone, country string,
	now time.Time,
) (*ContactRequest, error) {
	if companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "company_id cannot be empty")
	}
	if strings.TrimSpace(message) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "message cannot be empty")
	}
	if len([]rune(message)) > MaxMessageLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "message must be 1000 characters or less")
	}
	if strings.TrimSpace(email) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if subject == "" {
		subject = DefaultSubject(companyName)
	}
	return &ContactRequest{
		ID:            contactID,
		CompanyID:     companyID,
		BuyerID:       buyerID,
		Subject:       subject,
		Message:       message,
		CompanyName:   companyName,
		ContactPerson: contactPerson,
		Email:         email,
		Phone:         phone,
		Country:       country,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// DefaultSubject is used when the buyer leaves the subject blank.
func DefaultSubject(companyName string) string {
	return "Contact request from " + companyName
}

func (c *ContactRequest) IsAnonymous() bool {
	return c.BuyerID.IsNil()
}

// BuyerVisibility decides whether the supplier may see the buyer's raw email
// and phone. Forwarding by an admin and an explicit unlock both reveal them.
func (c *ContactRequest) BuyerVisibility() masking.Visibility {
	return masking.Visibility{RequestUnlocked: c.IsUnlocked || c.ForwardedAt != nil}
}

func (c *ContactRequest) canMoveTo(next Status) error {
	if c.Status.CanTransitionTo(next) {
		return nil
	}
	if c.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "contact request is already "+c.Status.String())
	}
	return dErrors.New(dErrors.CodeInvariantViolation, "contact request cannot move from "+c.Status.String()+" to "+next.String())
}

// CanRespond checks the pending -> responded move.
func (c *ContactRequest) CanRespond() error {
	return c.canMoveTo(StatusResponded)
}

// ApplyResponse records the supplier's reply. Must only be called after
// CanRespond returns nil.
func (c *ContactRequest) ApplyResponse(message string, now time.Time) {
	c.Status = StatusResponded
	c.ResponseMessage = message
	c.RespondedAt = &now
	c.UpdatedAt = now
}

// CanApprove checks the pending -> approved move.
func (c *ContactRequest) CanApprove() error {
	return c.canMoveTo(StatusApproved)
}

// ApplyApproval forwards the request to receiver.
func (c *ContactRequest) ApplyApproval(receiver id.UserID, notes string, now time.Time) {
	c.Status = StatusApproved
	c.ReceiverID = receiver
	c.ForwardedAt = &now
	if notes != "" {
		c.AdminNotes = notes
	}
	c.UpdatedAt = now
}

// CanReject checks the pending -> rejected move.
func (c *ContactRequest) CanReject() error {
	return c.canMoveTo(StatusRejected)
}

func (c *ContactRequest) ApplyRejection(notes string, now time.Time) {
	c.Status = StatusRejected
	c.AdminNotes = notes
	c.UpdatedAt = now
}

// CanUnlock checks the pending|approved -> unlocked move.
func (c *ContactRequest) CanUnlock() error {
	if c.IsUnlocked {
		return dErrors.New(dErrors.CodeInvariantViolation, "contact request is already unlocked")
	}
	return c.canMoveTo(StatusUnlocked)
}

// ApplyUnlock reveals the buyer's details to the supplier. fee may be nil
// for a free unlock; it is stored rounded to cents.
func (c *ContactRequest) ApplyUnlock(by id.UserID, fee *decimal.Decimal, now time.Time) {
	c.Status = StatusUnlocked
	c.IsUnlocked = true
	c.UnlockedAt = &now
	c.UnlockedBy = by
	if fee != nil {
		rounded := fee.Round(2)
		c.UnlockFee = &rounded
	}
	c.UpdatedAt = now
}

// CanOverride only rejects no-op overrides; any other move is allowed.
func (c *ContactRequest) CanOverride(next Status) error {
	if !next.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid contact status")
	}
	if c.Status == next {
		return dErrors.New(dErrors.CodeInvariantViolation, "contact request is already "+next.String())
	}
	return nil
}

// ApplyOverride forces the request into next. The reason is appended to the
// admin notes so the record itself shows why it left the normal flow.
func (c *ContactRequest) ApplyOverride(next Status, actor id.UserID, reason string, now time.Time) {
	prev := c.Status
	c.Status = next
	note := "status overridden from " + prev.String() + " to " + next.String() + ": " + reason
	if c.AdminNotes == "" {
		c.AdminNotes = note
	} else {
		c.AdminNotes += "\n" + note
	}
	if next == StatusUnlocked && !c.IsUnlocked {
		c.IsUnlocked = true
		c.UnlockedAt = &now
		c.UnlockedBy = actor
	}
	c.UpdatedAt = now
}

// VerificationStatus is the company's directory verification state.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// Company is the supplier side of a contact request.
type Company struct {
	ID                 id.CompanyID
	Name               string
	VerificationStatus VerificationStatus
	ShowContactInfo    bool
	ContactEmail       string
	ContactPhone       string
	Rating             decimal.Decimal
	PackageID          id.PackageID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (c *Company) IsVerified() bool {
	return c.VerificationStatus == VerificationVerified
}

// Visibility is the gate for the company's own contact details.
func (c *Company) Visibility() masking.Visibility {
	return masking.Visibility{CompanyShowsContact: c.ShowContactInfo}
}

// User is an account as the contact flow sees it.
type User struct {
	ID        id.UserID
	Email     string
	Name      string
	Role      id.Role
	CompanyID id.CompanyID
	CreatedAt time.Time
}

// BelongsTo reports whether the user is a member of companyID.
func (u *User) BelongsTo(companyID id.CompanyID) bool {
	return !u.CompanyID.IsNil() && u.CompanyID == companyID
}

// DefaultPageSize is the listing page size.
const DefaultPageSize = 20

// MaxPageNumber keeps Offset within int32 so it is valid for every store.
const MaxPageNumber = math.MaxInt32 / DefaultPageSize

// Page selects a slice of a listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps number to [1, MaxPageNumber] and uses DefaultPageSize.
func NewPage(number int) Page {
	return Page{Number: max(1, min(number, MaxPageNumber)), Size: DefaultPageSize}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// LastPage is the number of the final page for total rows, at least 1.
func (p Page) LastPage(total int) int {
	if total <= 0 || p.Size <= 0 {
		return 1
	}
	return (total + p.Size - 1) / p.Size
}
