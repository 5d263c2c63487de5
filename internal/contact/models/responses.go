package models

import (
	"time"

	"supplierhub/internal/masking"
)

// ContactView is the JSON shape of a contact request. Email and Phone hold
// whatever the viewer is allowed to see.
type ContactView struct {
	ID              string     `json:"id"`
	CompanyID       string     `json:"company_id"`
	BuyerID         *string    `json:"buyer_id"`
	Subject         string     `json:"subject"`
	Message         string     `json:"message"`
	CompanyName     string     `json:"company_name"`
	ContactPerson   string     `json:"contact_person"`
	Email           string     `json:"email"`
	Phone           *string    `json:"phone"`
	Country         string     `json:"country"`
	Status          Status     `json:"status"`
	ResponseMessage *string    `json:"response_message"`
	RespondedAt     *time.Time `json:"responded_at"`
	IsUnlocked      bool       `json:"is_unlocked"`
	UnlockedAt      *time.Time `json:"unlocked_at"`
	UnlockFee       *string    `json:"unlock_fee"`
	AdminNotes      *string    `json:"admin_notes"`
	ForwardedAt     *time.Time `json:"forwarded_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ToView renders c with the buyer's email and phone passed through vis.
func ToView(c *ContactRequest, vis masking.Visibility) ContactView {
	v := ContactView{
		ID:              c.ID.String(),
		CompanyID:       c.CompanyID.String(),
		Subject:         c.Subject,
		Message:         c.Message,
		CompanyName:     c.CompanyName,
		ContactPerson:   c.ContactPerson,
		Email:           vis.Email(c.Email),
		Phone:           optional(vis.Phone(c.Phone)),
		Country:         c.Country,
		Status:          c.Status,
		ResponseMessage: optional(c.ResponseMessage),
		RespondedAt:     c.RespondedAt,
		IsUnlocked:      c.IsUnlocked,
		UnlockedAt:      c.UnlockedAt,
		AdminNotes:      optional(c.AdminNotes),
		ForwardedAt:     c.ForwardedAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if !c.BuyerID.IsNil() {
		buyer := c.BuyerID.String()
		v.BuyerID = &buyer
	}
	if c.UnlockFee != nil {
		fee := c.UnlockFee.StringFixed(2)
		v.UnlockFee = &fee
	}
	return v
}

// FullView renders c without masking, for the buyer who wrote it and for admins.
func FullView(c *ContactRequest) ContactView {
	return ToView(c, masking.Visibility{RequestUnlocked: true})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SubmitResponse answers POST /contacts. RemainingContacts is null for
// anonymous submissions and unlimited packages.
type SubmitResponse struct {
	Message           string      `json:"message"`
	Data              ContactView `json:"data"`
	RemainingContacts *int        `json:"remaining_contacts"`
}

// ContactResponse wraps a single contact after a state change.
type ContactResponse struct {
	Message string      `json:"message"`
	Data    ContactView `json:"data"`
}

// ListResponse is one page of a contact listing.
type ListResponse struct {
	Data        []ContactView `json:"data"`
	CurrentPage int           `json:"current_page"`
	PerPage     int           `json:"per_page"`
	Total       int           `json:"total"`
	LastPage    int           `json:"last_page"`
}

// MaskedContactResponse answers GET /contacts/masked/{companyId}.
type MaskedContactResponse struct {
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	ShowFullContact   bool   `json:"show_full_contact"`
	CanRequestContact bool   `json:"can_request_contact"`
}

// ToMaskedContactResponse applies the company visibility gate.
func ToMaskedContactResponse(c *Company) MaskedContactResponse {
	vis := c.Visibility()
	return MaskedContactResponse{
		Email:             vis.Email(c.ContactEmail),
		Phone:             vis.Phone(c.ContactPhone),
		ShowFullContact:   c.ShowContactInfo,
		CanRequestContact: c.IsVerified(),
	}
}

// VisibilityResponse answers POST /contacts/toggle-visibility.
type VisibilityResponse struct {
	Message         string `json:"message"`
	ShowContactInfo bool   `json:"show_contact_info"`
}
