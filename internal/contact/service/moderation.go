package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"supplierhub/internal/contact/models"
	id "supplierhub/pkg/domain"
	dErrors "supplierhub/pkg/domain-errors"
	"supplierhub/pkg/platform/audit"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/requestcontext"
)

// Respond records a supplier's reply. The caller must belong to the
// contact's company. With share_full_contact the company's contact details
// become visible in the same transaction as the status change.
func (s *Service) Respond(ctx context.Context, contactID id.ContactID, req *models.RespondRequest) (contact *models.ContactRequest, err error) {
	ctx, span := s.startSpan(ctx, "contact.Respond", attribute.String("contact.id", contactID.String()))
	defer func() { endSpan(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var company *models.Company
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		user, err := s.currentUser(ctx)
		if err != nil {
			return err
		}

		updated, err := s.contacts.Execute(ctx, contactID,
			func(c *models.ContactRequest) error {
				if !user.BelongsTo(c.CompanyID) {
					return dErrors.New(dErrors.CodeForbidden, "Unauthorized")
				}
				return c.CanRespond()
			},
			func(c *models.ContactRequest) {
				c.ApplyResponse(req.ResponseMessage, now)
			},
		)
		if err != nil {
			return contactError(err, "failed to record response")
		}
		contact = updated

		if req.Share() {
			company, err = s.companies.SetShowContactInfo(ctx, updated.CompanyID, true, now)
		} else {
			company, err = s.companies.FindByID(ctx, updated.CompanyID)
		}
		if err != nil {
			return companyError(err, "failed to update company visibility")
		}

		return s.recordAudit(ctx, audit.EventContactResponded,
			"user_id", user.ID,
			"subject", contactID,
			"decision", string(models.StatusResponded),
			"reason", fmt.Sprintf("share_full_contact=%t", req.Share()),
			"company_id", updated.CompanyID,
		)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(models.StatusResponded), false)
	if req.Share() {
		s.metrics.IncrementVisibilityChange()
	}
	s.notifyResponded(ctx, contact, company, req.Share())
	return contact, nil
}

// Review applies an admin's moderation decision. Approval forwards the
// request to the company's first supplier account.
func (s *Service) Review(ctx context.Context, contactID id.ContactID, req *models.ReviewRequest) (contact *models.ContactRequest, err error) {
	ctx, span := s.startSpan(ctx, "contact.Review", attribute.String("contact.id", contactID.String()))
	defer func() { endSpan(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("contact.review_action", string(req.Action)))

	now := requestcontext.Now(ctx)
	actor := requestcontext.UserID(ctx)

	var (
		company  *models.Company
		receiver *models.User
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.contacts.FindByID(ctx, contactID)
		if err != nil {
			return contactError(err, "failed to load contact request")
		}
		company, err = s.companies.FindByID(ctx, current.CompanyID)
		if err != nil {
			return companyError(err, "failed to load company")
		}

		event := audit.EventContactRejected
		var updated *models.ContactRequest
		switch req.Action {
		case models.ReviewApprove:
			event = audit.EventContactApproved
			receiver, err = s.users.FirstSupplier(ctx, current.CompanyID)
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeNotFound, "No supplier account found for this company")
			}
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load supplier account")
			}
			updated, err = s.contacts.Execute(ctx, contactID,
				func(c *models.ContactRequest) error { return c.CanApprove() },
				func(c *models.ContactRequest) { c.ApplyApproval(receiver.ID, req.AdminNotes, now) },
			)
		default:
			updated, err = s.contacts.Execute(ctx, contactID,
				func(c *models.ContactRequest) error { return c.CanReject() },
				func(c *models.ContactRequest) { c.ApplyRejection(req.AdminNotes, now) },
			)
		}
		if err != nil {
			return contactError(err, "failed to record review")
		}
		contact = updated

		return s.recordAudit(ctx, event,
			"user_id", actor,
			"subject", contactID,
			"decision", string(updated.Status),
			"reason", req.AdminNotes,
			"company_id", updated.CompanyID,
		)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(contact.Status), false)
	if req.Action == models.ReviewApprove {
		s.notifyApproved(ctx, contact, company, receiver)
	} else {
		s.notifyRejected(ctx, contact, company)
	}
	return contact, nil
}

// Unlock reveals the buyer's contact details to the supplier, optionally
// against a fee.
func (s *Service) Unlock(ctx context.Context, contactID id.ContactID, req *models.UnlockRequest) (contact *models.ContactRequest, err error) {
	ctx, span := s.startSpan(ctx, "contact.Unlock", attribute.String("contact.id", contactID.String()))
	defer func() { endSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	actor := requestcontext.UserID(ctx)

	var company *models.Company
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		updated, err := s.contacts.Execute(ctx, contactID,
			func(c *models.ContactRequest) error { return c.CanUnlock() },
			func(c *models.ContactRequest) { c.ApplyUnlock(actor, req.UnlockFee, now) },
		)
		if err != nil {
			return contactError(err, "failed to unlock contact request")
		}
		contact = updated

		company, err = s.companies.FindByID(ctx, updated.CompanyID)
		if err != nil {
			return companyError(err, "failed to load company")
		}

		reason := "free unlock"
		if updated.UnlockFee != nil {
			reason = "unlock fee " + updated.UnlockFee.StringFixed(2)
		}
		return s.recordAudit(ctx, audit.EventContactUnlocked,
			"user_id", actor,
			"subject", contactID,
			"decision", string(models.StatusUnlocked),
			"reason", reason,
			"company_id", updated.CompanyID,
		)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(models.StatusUnlocked), false)
	s.notifyUnlocked(ctx, contact, company)
	return contact, nil
}

// OverrideStatus forces a status change outside the normal lifecycle,
// including out of terminal states. Every override is logged at WARN and
// audited with the admin's reason.
func (s *Service) OverrideStatus(ctx context.Context, contactID id.ContactID, req *models.OverrideStatusRequest) (contact *models.ContactRequest, err error) {
	ctx, span := s.startSpan(ctx, "contact.OverrideStatus", attribute.String("contact.id", contactID.String()))
	defer func() { endSpan(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	target, err := models.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	actor := requestcontext.UserID(ctx)

	var previous models.Status
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		updated, err := s.contacts.Execute(ctx, contactID,
			func(c *models.ContactRequest) error {
				previous = c.Status
				return c.CanOverride(target)
			},
			func(c *models.ContactRequest) { c.ApplyOverride(target, actor, req.Reason, now) },
		)
		if err != nil {
			return contactError(err, "failed to override contact status")
		}
		contact = updated

		return s.recordAudit(ctx, audit.EventContactStatusOverridden,
			"user_id", actor,
			"subject", contactID,
			"decision", string(target),
			"reason", req.Reason,
			"previous_status", string(previous),
		)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WarnContext(ctx, "contact status overridden",
		"contact_id", contactID,
		"from", string(previous),
		"to", string(target),
		"actor_id", actor,
		"reason", req.Reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementTransition(string(target), true)
	return contact, nil
}
