package service

import (
	"context"

	"supplierhub/internal/contact/models"
	dErrors "supplierhub/pkg/domain-errors"
	"supplierhub/pkg/platform/retry"
	"supplierhub/pkg/requestcontext"
)

// ContactPage is one page of a listing.
type ContactPage struct {
	Contacts []*models.ContactRequest
	Page     models.Page
	Total    int
}

// ListForSupplier returns the requests addressed to the caller's company.
func (s *Service) ListForSupplier(ctx context.Context, pageNumber int) (*ContactPage, error) {
	user, err := retry.Once(ctx, s.currentUser)
	if err != nil {
		return nil, err
	}
	if user.CompanyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeNotFound, "No company found")
	}
	page := models.NewPage(pageNumber)
	return s.list(ctx, page, func(ctx context.Context) ([]*models.ContactRequest, int, error) {
		return s.contacts.ListByCompany(ctx, user.CompanyID, page)
	})
}

// ListForBuyer returns the caller's own requests.
func (s *Service) ListForBuyer(ctx context.Context, pageNumber int) (*ContactPage, error) {
	caller := requestcontext.CallerFrom(ctx)
	if caller.IsAnonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Unauthenticated.")
	}
	page := models.NewPage(pageNumber)
	return s.list(ctx, page, func(ctx context.Context) ([]*models.ContactRequest, int, error) {
		return s.contacts.ListByBuyer(ctx, caller.UserID, page)
	})
}

// ListPending returns the admin moderation queue.
func (s *Service) ListPending(ctx context.Context, pageNumber int) (*ContactPage, error) {
	page := models.NewPage(pageNumber)
	return s.list(ctx, page, func(ctx context.Context) ([]*models.ContactRequest, int, error) {
		return s.contacts.ListByStatus(ctx, models.StatusPending, page)
	})
}

func (s *Service) list(ctx context.Context, page models.Page, fetch func(context.Context) ([]*models.ContactRequest, int, error)) (*ContactPage, error) {
	return retry.Once(ctx, func(ctx context.Context) (*ContactPage, error) {
		contacts, total, err := fetch(ctx)
		if err != nil {
			return nil, contactError(err, "failed to list contact requests")
		}
		return &ContactPage{Contacts: contacts, Page: page, Total: total}, nil
	})
}
