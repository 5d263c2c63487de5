package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"supplierhub/internal/contact/models"
	id "supplierhub/pkg/domain"
	dErrors "supplierhub/pkg/domain-errors"
	"supplierhub/pkg/platform/audit"
	"supplierhub/pkg/platform/retry"
	"supplierhub/pkg/requestcontext"
)

// ToggleVisibility sets whether the caller's company shows its contact
// details unmasked in the public directory.
func (s *Service) ToggleVisibility(ctx context.Context, req *models.ToggleVisibilityRequest) (company *models.Company, err error) {
	ctx, span := s.startSpan(ctx, "contact.ToggleVisibility")
	defer func() { endSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	show := *req.ShowContactInfo
	span.SetAttributes(attribute.Bool("company.show_contact_info", show))

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		user, err := s.currentUser(ctx)
		if err != nil {
			return err
		}
		if user.CompanyID.IsNil() {
			return dErrors.New(dErrors.CodeNotFound, "No company found")
		}

		company, err = s.companies.SetShowContactInfo(ctx, user.CompanyID, show, requestcontext.Now(ctx))
		if err != nil {
			return companyError(err, "failed to update company visibility")
		}

		state := "masked"
		if show {
			state = "visible"
		}
		return s.recordAudit(ctx, audit.EventContactVisibilityChanged,
			"user_id", user.ID,
			"subject", company.ID,
			"decision", state,
			"reason", "Contact visibility changed to: "+state,
		)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementVisibilityChange()
	return company, nil
}

// MaskedView loads a company for the public contact card. The handler
// applies the visibility gate.
func (s *Service) MaskedView(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	return retry.Once(ctx, func(ctx context.Context) (*models.Company, error) {
		company, err := s.companies.FindByID(ctx, companyID)
		if err != nil {
			return nil, companyError(err, "failed to load company")
		}
		return company, nil
	})
}
