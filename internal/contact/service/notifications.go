package service

import (
	"context"
	"errors"
	"strings"

	"supplierhub/internal/contact/models"
	"supplierhub/internal/masking"
	"supplierhub/internal/notify"
	"supplierhub/pkg/email"
	"supplierhub/pkg/platform/privacy"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/requestcontext"
)

// Notifications run after commit. A failure is logged and counted but never
// reaches the caller.

func (s *Service) notifySubmitted(ctx context.Context, c *models.ContactRequest, company *models.Company) {
	if supplier := s.firstSupplier(ctx, c); supplier != nil {
		s.send(ctx, notify.TemplateContactRequestNotification, supplier.Email, s.buyerDetails(c, company, supplier))
	}
	s.send(ctx, notify.TemplateContactRequestReceived, c.Email, map[string]string{
		"supplier_company": company.Name,
		"contact_person":   c.ContactPerson,
		"subject":          c.Subject,
		"message":          c.Message,
	})
}

// notifyResponded reveals the supplier's details only when this response
// shared them, whatever the company-wide flag already says.
func (s *Service) notifyResponded(ctx context.Context, c *models.ContactRequest, company *models.Company, shared bool) {
	vis := masking.Visibility{CompanyShowsContact: shared}
	full := ""
	if vis.Reveals() {
		full = "true"
	}
	s.send(ctx, notify.TemplateContactResponse, c.Email, map[string]string{
		"supplier_company": company.Name,
		"contact_person":   c.ContactPerson,
		"response_message": c.ResponseMessage,
		"supplier_email":   vis.Email(company.ContactEmail),
		"supplier_phone":   vis.Phone(company.ContactPhone),
		"full_contact":     full,
	})
}

func (s *Service) notifyApproved(ctx context.Context, c *models.ContactRequest, company *models.Company, receiver *models.User) {
	if receiver != nil {
		s.send(ctx, notify.TemplateContactForwarded, receiver.Email, s.buyerDetails(c, company, receiver))
	}
	s.send(ctx, notify.TemplateContactApproved, c.Email, map[string]string{
		"supplier_company": company.Name,
		"contact_person":   c.ContactPerson,
	})
}

func (s *Service) notifyRejected(ctx context.Context, c *models.ContactRequest, company *models.Company) {
	s.send(ctx, notify.TemplateContactRejected, c.Email, map[string]string{
		"supplier_company": company.Name,
		"contact_person":   c.ContactPerson,
		"admin_notes":      c.AdminNotes,
	})
}

func (s *Service) notifyUnlocked(ctx context.Context, c *models.ContactRequest, company *models.Company) {
	supplier := s.firstSupplier(ctx, c)
	if supplier == nil {
		return
	}
	s.send(ctx, notify.TemplateContactUnlocked, supplier.Email, s.buyerDetails(c, company, supplier))
}

// firstSupplier resolves who receives supplier-side mail: the forwarding
// receiver when set, else the company's earliest supplier account.
func (s *Service) firstSupplier(ctx context.Context, c *models.ContactRequest) *models.User {
	if !c.ReceiverID.IsNil() {
		if u, err := s.users.FindByID(ctx, c.ReceiverID); err == nil {
			return u
		}
	}
	u, err := s.users.FirstSupplier(ctx, c.CompanyID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to resolve supplier recipient",
				"contact_id", c.ID,
				"company_id", c.CompanyID,
				"error", err,
			)
		} else {
			s.logger.InfoContext(ctx, "company has no supplier account to notify",
				"contact_id", c.ID,
				"company_id", c.CompanyID,
			)
		}
		return nil
	}
	return u
}

// buyerDetails is the supplier-facing summary of a request addressed to
// recipient. The buyer's email and phone stay masked until the request is
// forwarded or unlocked.
func (s *Service) buyerDetails(c *models.ContactRequest, company *models.Company, recipient *models.User) map[string]string {
	vis := c.BuyerVisibility()
	data := map[string]string{
		"recipient_name":   recipientName(recipient),
		"supplier_company": company.Name,
		"buyer_company":    c.CompanyName,
		"contact_person":   c.ContactPerson,
		"email":            vis.Email(c.Email),
		"phone":            vis.Phone(c.Phone),
		"country":          c.Country,
		"subject":          c.Subject,
		"message":          c.Message,
	}
	if s.frontendURL != "" {
		data["dashboard_url"] = strings.TrimRight(s.frontendURL, "/") + "/supplier/contacts"
	}
	return data
}

// recipientName greets by account name, falling back to a name guessed from
// the mailbox.
func recipientName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	first, _ := email.DeriveNameFromEmail(u.Email)
	return first
}

func (s *Service) send(ctx context.Context, template notify.Template, recipient string, data map[string]string) {
	if err := s.notifier.Send(ctx, template, recipient, data); err != nil {
		s.metrics.IncrementNotifyFailure()
		s.logger.ErrorContext(ctx, "failed to queue notification",
			"template", string(template),
			"recipient", privacy.RedactEmail(recipient),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
