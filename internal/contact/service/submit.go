package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"supplierhub/internal/contact/metrics"
	"supplierhub/internal/contact/models"
	rlmodels "supplierhub/internal/ratelimit/models"
	id "supplierhub/pkg/domain"
	dErrors "supplierhub/pkg/domain-errors"
	"supplierhub/pkg/platform/audit"
	"supplierhub/pkg/platform/retry"
	"supplierhub/pkg/platform/sentinel"
	"supplierhub/pkg/requestcontext"
)

// SubmitResult is the stored request plus the buyer's allowance after it was
// spent. Quota is nil for anonymous submissions.
type SubmitResult struct {
	Contact *models.ContactRequest
	Quota   *rlmodels.QuotaSnapshot
}

// RemainingContacts is nil for anonymous submissions and unlimited plans.
func (r *SubmitResult) RemainingContacts() *int {
	if r == nil || r.Quota == nil || r.Quota.Unlimited {
		return nil
	}
	remaining := r.Quota.Remaining
	return &remaining
}

// Submit stores a new contact request. Authenticated buyers spend one unit
// of their weekly allowance in the same transaction as the insert, so a
// failed insert leaves the allowance untouched.
func (s *Service) Submit(ctx context.Context, req *models.SubmitRequest) (result *SubmitResult, err error) {
	caller := requestcontext.CallerFrom(ctx)
	isBuyer := !caller.IsAnonymous() && caller.Role == id.RoleBuyer

	ctx, span := s.startSpan(ctx, "contact.Submit", attribute.Bool("contact.authenticated_buyer", isBuyer))
	defer func() { endSpan(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		s.metrics.IncrementSubmission(metrics.OutcomeInvalid, isBuyer)
		return nil, err
	}

	if err := s.captcha.Verify(ctx, req.RecaptchaToken, requestcontext.ClientIP(ctx)); err != nil {
		s.metrics.IncrementSubmission(metrics.OutcomeCaptcha, isBuyer)
		return nil, err
	}

	company, err := s.targetCompany(ctx, req.CompanyID)
	if err != nil {
		s.metrics.IncrementSubmission(metrics.OutcomeInvalid, isBuyer)
		return nil, err
	}
	if !company.IsVerified() {
		s.metrics.IncrementSubmission(metrics.OutcomeUnverified, isBuyer)
		return nil, dErrors.New(dErrors.CodeUnverifiedTarget, "Can only contact verified suppliers")
	}
	span.SetAttributes(attribute.String("contact.company_id", company.ID.String()))

	var buyerID id.UserID
	if isBuyer {
		buyerID = caller.UserID
	}
	contact, err := models.NewContactRequest(
		id.NewContactID(), company.ID, buyerID,
		req.Subject, req.Message, req.CompanyName, req.ContactPerson,
		req.Email, req.Phone, req.Country,
		requestcontext.Now(ctx),
	)
	if err != nil {
		s.metrics.IncrementSubmission(metrics.OutcomeInvalid, isBuyer)
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid contact request")
	}

	var snapshot *rlmodels.QuotaSnapshot
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if isBuyer {
			decision, err := s.quota.CheckAndConsume(ctx, buyerID)
			if err != nil {
				return err
			}
			snapshot = &decision.QuotaSnapshot
		}
		if err := s.contacts.Create(ctx, contact); err != nil {
			return contactError(err, "failed to store contact request")
		}
		return s.recordAudit(ctx, audit.EventContactRequested,
			"user_id", buyerID,
			"subject", contact.ID,
			"decision", "submitted",
			"reason", "contact requested for company "+company.ID.String(),
			"company_id", company.ID,
		)
	})
	if err != nil {
		outcome := metrics.OutcomeError
		if dErrors.Is(err, dErrors.CodeQuotaExceeded) {
			outcome = metrics.OutcomeQuotaExceeded
		}
		s.metrics.IncrementSubmission(outcome, isBuyer)
		return nil, err
	}

	s.metrics.IncrementSubmission(metrics.OutcomeAccepted, isBuyer)
	s.logger.InfoContext(ctx, "contact request submitted",
		"contact_id", contact.ID,
		"company_id", company.ID,
		"anonymous", contact.IsAnonymous(),
		"request_id", requestcontext.RequestID(ctx),
	)

	s.notifySubmitted(ctx, contact, company)
	return &SubmitResult{Contact: contact, Quota: snapshot}, nil
}

// targetCompany resolves the submitted company_id. An unknown company is a
// field error, matching how the rest of the form is reported.
func (s *Service) targetCompany(ctx context.Context, raw string) (*models.Company, error) {
	invalid := dErrors.NewValidation("The given data was invalid.", map[string][]string{
		"company_id": {"The selected company id is invalid."},
	})

	companyID, err := id.ParseCompanyID(raw)
	if err != nil {
		return nil, invalid
	}
	company, err := retry.Once(ctx, func(ctx context.Context) (*models.Company, error) {
		c, err := s.companies.FindByID(ctx, companyID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, companyError(err, "failed to load company")
		}
		return c, err
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	return company, nil
}
