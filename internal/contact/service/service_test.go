package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"supplierhub/internal/captcha"
	"supplierhub/internal/contact/metrics"
	"supplierhub/internal/contact/models"
	contactStore "supplierhub/internal/contact/store/contact"
	"supplierhub/internal/contact/store/directory"
	"supplierhub/internal/notify"
	quotaService "supplierhub/internal/ratelimit/service/quota"
	quotaStore "supplierhub/internal/ratelimit/store/quota"
	id "supplierhub/pkg/domain"
	dErrors "supplierhub/pkg/domain-errors"
	"supplierhub/pkg/platform/audit"
	auditpublisher "supplierhub/pkg/platform/audit/publisher"
	auditmemory "supplierhub/pkg/platform/audit/store/memory"
	"supplierhub/pkg/platform/fieldcrypt"
	"supplierhub/pkg/platform/tx"
	"supplierhub/pkg/requestcontext"
	"supplierhub/pkg/testutil"
)

// =============================================================================
// Contact Service Test Suite
// =============================================================================
// Justification for unit tests: the workflow spans quota, storage, audit and
// notification collaborators. Wiring the real in-memory implementations lets
// these tests assert cross-cutting outcomes (quota spent only on success,
// audit rows per transition, masked vs raw mail data) that the handler tests
// only see as status codes.

type sentMail struct {
	Template  notify.Template
	Recipient string
	Data      map[string]string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) Send(_ context.Context, template notify.Template, recipient string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{Template: template, Recipient: recipient, Data: data})
	return nil
}

func (n *recordingNotifier) byTemplate(template notify.Template) []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMail
	for _, m := range n.sent {
		if m.Template == template {
			out = append(out, m)
		}
	}
	return out
}

// brokenAuditStore refuses every append, which fails compliance events closed.
type brokenAuditStore struct {
	*auditmemory.InMemoryStore
}

func (brokenAuditStore) Append(context.Context, audit.Event) error {
	return errors.New("audit sink down")
}

type ContactServiceSuite struct {
	suite.Suite
	contacts   *contactStore.InMemoryStore
	directory  *directory.InMemoryStore
	quotas     *quotaStore.InMemoryQuotaStore
	auditStore *auditmemory.InMemoryStore
	notifier   *recordingNotifier
	metrics    *metrics.Metrics
	service    *Service

	now        time.Time
	company    *models.Company
	unverified *models.Company
	supplier   *models.User
	buyer      *models.User
	admin      *models.User
}

func TestContactServiceSuite(t *testing.T) {
	suite.Run(t, new(ContactServiceSuite))
}

func (s *ContactServiceSuite) SetupTest() {
	cipher, err := fieldcrypt.New("test-secret")
	s.Require().NoError(err)

	s.contacts = contactStore.NewInMemoryStore(cipher)
	s.directory = directory.NewInMemoryStore()
	s.quotas = quotaStore.New()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.notifier = &recordingNotifier{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	s.company = &models.Company{
		ID:                 id.CompanyID(uuid.New()),
		Name:               "Acme Steel",
		VerificationStatus: models.VerificationVerified,
		ContactEmail:       "sales@acme.example",
		ContactPhone:       "+4930555123",
	}
	s.unverified = &models.Company{
		ID:                 id.CompanyID(uuid.New()),
		Name:               "Shady Ltd",
		VerificationStatus: models.VerificationPending,
	}
	s.directory.SaveCompany(s.company)
	s.directory.SaveCompany(s.unverified)

	s.supplier = &models.User{ID: id.UserID(uuid.New()), Email: "owner@acme.example", Role: id.RoleSupplier, CompanyID: s.company.ID, CreatedAt: s.now}
	s.buyer = &models.User{ID: id.UserID(uuid.New()), Email: "jane@buyer.example", Role: id.RoleBuyer}
	s.admin = &models.User{ID: id.UserID(uuid.New()), Email: "admin@supplierhub.example", Role: id.RoleAdmin}
	for _, u := range []*models.User{s.supplier, s.buyer, s.admin} {
		s.directory.SaveUser(u)
	}

	s.service = s.newService(s.auditStore)
}

func (s *ContactServiceSuite) newService(auditStore audit.Store) *Service {
	quota, err := quotaService.New(s.quotas, s.quotas)
	s.Require().NoError(err)

	svc, err := New(Deps{
		Contacts:  s.contacts,
		Companies: s.directory,
		Users:     s.directory.Users(),
		Quota:     quota,
		Captcha:   captcha.Static{Allow: true},
		Notifier:  s.notifier,
		TxManager: tx.NewMemoryManager(),
	},
		WithAuditPublisher(auditpublisher.NewPublisher(auditStore)),
		WithMetrics(s.metrics),
		WithFrontendURL("https://app.supplierhub.example/"),
	)
	s.Require().NoError(err)
	return svc
}

func (s *ContactServiceSuite) ctxAs(u *models.User) context.Context {
	if u == nil {
		return testutil.ServiceContext(s.now, requestcontext.Caller{})
	}
	return testutil.ServiceContext(s.now, requestcontext.Caller{UserID: u.ID, Role: u.Role, CompanyID: u.CompanyID})
}

func (s *ContactServiceSuite) submitRequest(companyID id.CompanyID) *models.SubmitRequest {
	return &models.SubmitRequest{
		CompanyID:      companyID.String(),
		Message:        "We need 40t of rebar per month.",
		CompanyName:    "Buyer GmbH",
		ContactPerson:  "Jane Doe",
		Email:          "Jane@Buyer.example",
		Phone:          "+49301234567",
		Country:        "DE",
		RecaptchaToken: "token",
	}
}

func (s *ContactServiceSuite) submitAsBuyer() *models.ContactRequest {
	result, err := s.service.Submit(s.ctxAs(s.buyer), s.submitRequest(s.company.ID))
	s.Require().NoError(err)
	return result.Contact
}

func (s *ContactServiceSuite) submitAnonymous() *models.ContactRequest {
	result, err := s.service.Submit(s.ctxAs(nil), s.submitRequest(s.company.ID))
	s.Require().NoError(err)
	return result.Contact
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *ContactServiceSuite) TestNew() {
	_, err := New(Deps{})
	s.ErrorContains(err, "contact store is required")

	_, err = New(Deps{Contacts: s.contacts, Companies: s.directory, Users: s.directory.Users()})
	s.ErrorContains(err, "quota service is required")
}

// =============================================================================
// Submit Tests
// =============================================================================

func (s *ContactServiceSuite) TestSubmit() {
	s.Run("buyer submission spends quota and reports remaining", func() {
		s.quotas.SetContactLimit(s.buyer.ID, 3)

		result, err := s.service.Submit(s.ctxAs(s.buyer), s.submitRequest(s.company.ID))
		s.Require().NoError(err)

		s.Equal(models.StatusPending, result.Contact.Status)
		s.Equal(s.buyer.ID, result.Contact.BuyerID)
		s.Equal("jane@buyer.example", result.Contact.Email)
		s.Equal("Contact request from Buyer GmbH", result.Contact.Subject)
		s.Require().NotNil(result.RemainingContacts())
		s.Equal(2, *result.RemainingContacts())

		events := s.auditStore.ListByAction(s.T().Context(), audit.EventContactRequested)
		s.Require().Len(events, 1)
		s.Equal(result.Contact.ID.String(), events[0].Subject)
		s.Equal(s.buyer.ID, events[0].UserID)
		s.InDelta(1, promtest.ToFloat64(s.metrics.Submissions.WithLabelValues(metrics.OutcomeAccepted, "buyer")), 0)
	})

	s.Run("supplier and buyer are notified with masked buyer details", func() {
		supplierMail := s.notifier.byTemplate(notify.TemplateContactRequestNotification)
		s.Require().Len(supplierMail, 1)
		s.Equal(s.supplier.Email, supplierMail[0].Recipient)
		s.Equal("ja**@buyer.example", supplierMail[0].Data["email"])
		s.Equal("+4********67", supplierMail[0].Data["phone"])
		s.Equal("https://app.supplierhub.example/supplier/contacts", supplierMail[0].Data["dashboard_url"])

		buyerMail := s.notifier.byTemplate(notify.TemplateContactRequestReceived)
		s.Require().Len(buyerMail, 1)
		s.Equal("jane@buyer.example", buyerMail[0].Recipient)
		s.Equal("Acme Steel", buyerMail[0].Data["supplier_company"])
	})

	s.Run("anonymous submission skips the quota", func() {
		result, err := s.service.Submit(s.ctxAs(nil), s.submitRequest(s.company.ID))
		s.Require().NoError(err)
		s.True(result.Contact.IsAnonymous())
		s.Nil(result.RemainingContacts())
	})

	s.Run("unlimited package reports no remaining count", func() {
		s.quotas.SetContactLimit(s.buyer.ID, 0)
		result, err := s.service.Submit(s.ctxAs(s.buyer), s.submitRequest(s.company.ID))
		s.Require().NoError(err)
		s.Nil(result.RemainingContacts())
	})
}

func (s *ContactServiceSuite) TestSubmitQuotaExceeded() {
	s.submitAsBuyer()

	_, err := s.service.Submit(s.ctxAs(s.buyer), s.submitRequest(s.company.ID))
	s.Require().Error(err)

	de, ok := dErrors.As(err)
	s.Require().True(ok)
	s.Equal(dErrors.CodeQuotaExceeded, de.Code)
	s.Equal(1, de.Limit)
	s.Equal(s.now.Add(quotaService.DefaultPeriod), de.ResetAt)

	page, err := s.service.ListForBuyer(s.ctxAs(s.buyer), 1)
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.InDelta(1, promtest.ToFloat64(s.metrics.Submissions.WithLabelValues(metrics.OutcomeQuotaExceeded, "buyer")), 0)
}

func (s *ContactServiceSuite) TestSubmitRejections() {
	s.Run("validation errors carry field messages", func() {
		req := s.submitRequest(s.company.ID)
		req.Email = "not-an-email"
		req.Message = ""
		_, err := s.service.Submit(s.ctxAs(nil), req)

		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal(dErrors.CodeValidation, de.Code)
		s.Contains(de.Fields, "email")
		s.Contains(de.Fields, "message")
	})

	s.Run("unknown company is a company_id field error", func() {
		_, err := s.service.Submit(s.ctxAs(nil), s.submitRequest(id.CompanyID(uuid.New())))
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal(dErrors.CodeValidation, de.Code)
		s.Contains(de.Fields, "company_id")
	})

	s.Run("unverified company is refused", func() {
		_, err := s.service.Submit(s.ctxAs(s.buyer), s.submitRequest(s.unverified.ID))
		s.True(dErrors.Is(err, dErrors.CodeUnverifiedTarget))

		// no quota spent on a refused submission
		snap, err := s.quotas.Get(s.T().Context(), s.buyer.ID)
		s.Require().NoError(err)
		s.Equal(0, snap.Count)
	})

	s.Run("rejected captcha", func() {
		svc := *s.service
		svc.captcha = captcha.Static{Allow: false}
		_, err := svc.Submit(s.ctxAs(nil), s.submitRequest(s.company.ID))
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Contains(de.Fields, "recaptcha_token")
	})
}

// =============================================================================
// Respond Tests
// =============================================================================

func (s *ContactServiceSuite) TestRespond() {
	share := true
	keep := false

	s.Run("member supplier responds without sharing", func() {
		contact := s.submitAnonymous()
		updated, err := s.service.Respond(s.ctxAs(s.supplier), contact.ID, &models.RespondRequest{
			ResponseMessage: "We can deliver.", ShareFullContact: &keep,
		})
		s.Require().NoError(err)
		s.Equal(models.StatusResponded, updated.Status)
		s.Equal("We can deliver.", updated.ResponseMessage)
		s.Require().NotNil(updated.RespondedAt)

		mail := s.notifier.byTemplate(notify.TemplateContactResponse)
		s.Require().Len(mail, 1)
		s.Equal("sa***@acme.example", mail[0].Data["supplier_email"])
		s.Empty(mail[0].Data["full_contact"])
	})

	s.Run("sharing full contact flips company visibility", func() {
		contact := s.submitAnonymous()
		_, err := s.service.Respond(s.ctxAs(s.supplier), contact.ID, &models.RespondRequest{
			ResponseMessage: "Call us.", ShareFullContact: &share,
		})
		s.Require().NoError(err)

		company, err := s.directory.FindByID(s.T().Context(), s.company.ID)
		s.Require().NoError(err)
		s.True(company.ShowContactInfo)

		mail := s.notifier.byTemplate(notify.TemplateContactResponse)
		s.Require().Len(mail, 2)
		s.Equal("sales@acme.example", mail[1].Data["supplier_email"])
		s.Equal("true", mail[1].Data["full_contact"])
	})

	s.Run("later response without sharing stays masked", func() {
		contact := s.submitAnonymous()
		_, err := s.service.Respond(s.ctxAs(s.supplier), contact.ID, &models.RespondRequest{
			ResponseMessage: "Details in the catalogue.", ShareFullContact: &keep,
		})
		s.Require().NoError(err)

		mail := s.notifier.byTemplate(notify.TemplateContactResponse)
		s.Require().Len(mail, 3)
		s.Equal("sa***@acme.example", mail[2].Data["supplier_email"])
		s.Empty(mail[2].Data["full_contact"])
	})

	s.Run("terminal request conflicts", func() {
		contact := s.submitAnonymous()
		req := &models.RespondRequest{ResponseMessage: "Once", ShareFullContact: &keep}
		_, err := s.service.Respond(s.ctxAs(s.supplier), contact.ID, req)
		s.Require().NoError(err)

		_, err = s.service.Respond(s.ctxAs(s.supplier), contact.ID, req)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})
}

func (s *ContactServiceSuite) TestRespondAuthorization() {
	keep := false
	req := &models.RespondRequest{ResponseMessage: "Hello", ShareFullContact: &keep}

	s.Run("supplier of another company is forbidden", func() {
		contact := s.submitAnonymous()
		other := &models.User{ID: id.UserID(uuid.New()), Role: id.RoleSupplier, CompanyID: s.unverified.ID}
		s.directory.SaveUser(other)

		_, err := s.service.Respond(s.ctxAs(other), contact.ID, req)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))

		stored, err := s.contacts.FindByID(s.T().Context(), contact.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, stored.Status)
	})

	s.Run("missing contact is not found", func() {
		_, err := s.service.Respond(s.ctxAs(s.supplier), id.NewContactID(), req)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("anonymous caller is unauthorized", func() {
		_, err := s.service.Respond(s.ctxAs(nil), id.NewContactID(), req)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})
}

// =============================================================================
// Moderation Tests
// =============================================================================

func (s *ContactServiceSuite) TestReviewApprove() {
	contact := s.submitAnonymous()

	updated, err := s.service.Review(s.ctxAs(s.admin), contact.ID, &models.ReviewRequest{
		Action: models.ReviewApprove, AdminNotes: "Looks legitimate",
	})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, updated.Status)
	s.Equal(s.supplier.ID, updated.ReceiverID)
	s.Require().NotNil(updated.ForwardedAt)
	s.Equal(s.now, *updated.ForwardedAt)

	forwarded := s.notifier.byTemplate(notify.TemplateContactForwarded)
	s.Require().Len(forwarded, 1)
	s.Equal(s.supplier.Email, forwarded[0].Recipient)
	s.Equal("jane@buyer.example", forwarded[0].Data["email"], "forwarding reveals buyer details")
	s.Len(s.notifier.byTemplate(notify.TemplateContactApproved), 1)

	events := s.auditStore.ListByAction(s.T().Context(), audit.EventContactApproved)
	s.Require().Len(events, 1)
	s.Equal(s.admin.ID, events[0].UserID)
}

func (s *ContactServiceSuite) TestReviewApproveWithoutSupplier() {
	orphan := &models.Company{ID: id.CompanyID(uuid.New()), Name: "No Staff", VerificationStatus: models.VerificationVerified}
	s.directory.SaveCompany(orphan)

	result, err := s.service.Submit(s.ctxAs(nil), s.submitRequest(orphan.ID))
	s.Require().NoError(err)

	_, err = s.service.Review(s.ctxAs(s.admin), result.Contact.ID, &models.ReviewRequest{Action: models.ReviewApprove})
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	stored, err := s.contacts.FindByID(s.T().Context(), result.Contact.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
}

func (s *ContactServiceSuite) TestReviewReject() {
	contact := s.submitAnonymous()

	updated, err := s.service.Review(s.ctxAs(s.admin), contact.ID, &models.ReviewRequest{
		Action: "Reject", AdminNotes: "Spam",
	})
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, updated.Status)
	s.Equal("Spam", updated.AdminNotes)

	mail := s.notifier.byTemplate(notify.TemplateContactRejected)
	s.Require().Len(mail, 1)
	s.Equal("Spam", mail[0].Data["admin_notes"])

	_, err = s.service.Review(s.ctxAs(s.admin), contact.ID, &models.ReviewRequest{Action: models.ReviewApprove})
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

func (s *ContactServiceSuite) TestUnlock() {
	contact := s.submitAnonymous()
	fee := decimal.RequireFromString("19.999")

	updated, err := s.service.Unlock(s.ctxAs(s.admin), contact.ID, &models.UnlockRequest{UnlockFee: &fee})
	s.Require().NoError(err)
	s.Equal(models.StatusUnlocked, updated.Status)
	s.True(updated.IsUnlocked)
	s.Equal(s.admin.ID, updated.UnlockedBy)
	s.Equal("20.00", updated.UnlockFee.StringFixed(2))

	mail := s.notifier.byTemplate(notify.TemplateContactUnlocked)
	s.Require().Len(mail, 1)
	s.Equal("jane@buyer.example", mail[0].Data["email"])

	events := s.auditStore.ListByAction(s.T().Context(), audit.EventContactUnlocked)
	s.Require().Len(events, 1)
	s.Equal("unlock fee 20.00", events[0].Reason)

	_, err = s.service.Unlock(s.ctxAs(s.admin), contact.ID, &models.UnlockRequest{})
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

func (s *ContactServiceSuite) TestOverrideStatus() {
	contact := s.submitAnonymous()
	_, err := s.service.Review(s.ctxAs(s.admin), contact.ID, &models.ReviewRequest{Action: models.ReviewReject})
	s.Require().NoError(err)

	s.Run("terminal state can be overridden with a reason", func() {
		updated, err := s.service.OverrideStatus(s.ctxAs(s.admin), contact.ID, &models.OverrideStatusRequest{
			Status: "pending", Reason: "Rejected by mistake",
		})
		s.Require().NoError(err)
		s.Equal(models.StatusPending, updated.Status)
		s.Contains(updated.AdminNotes, "Rejected by mistake")

		events := s.auditStore.ListByAction(s.T().Context(), audit.EventContactStatusOverridden)
		s.Require().Len(events, 1)
		s.Equal("pending", events[0].Decision)
		s.Equal(audit.CategorySecurity, events[0].Category)
		s.InDelta(1, promtest.ToFloat64(s.metrics.Transitions.WithLabelValues("pending", "true")), 0)
	})

	s.Run("reason is required", func() {
		_, err := s.service.OverrideStatus(s.ctxAs(s.admin), contact.ID, &models.OverrideStatusRequest{Status: "rejected"})
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Contains(de.Fields, "reason")
	})

	s.Run("no-op override conflicts", func() {
		_, err := s.service.OverrideStatus(s.ctxAs(s.admin), contact.ID, &models.OverrideStatusRequest{
			Status: "pending", Reason: "again",
		})
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})
}

// =============================================================================
// Visibility and Listing Tests
// =============================================================================

func (s *ContactServiceSuite) TestToggleVisibility() {
	show := true
	company, err := s.service.ToggleVisibility(s.ctxAs(s.supplier), &models.ToggleVisibilityRequest{ShowContactInfo: &show})
	s.Require().NoError(err)
	s.True(company.ShowContactInfo)

	events := s.auditStore.ListByAction(s.T().Context(), audit.EventContactVisibilityChanged)
	s.Require().Len(events, 1)
	s.Equal("Contact visibility changed to: visible", events[0].Reason)

	s.Run("buyer without company has nothing to toggle", func() {
		_, err := s.service.ToggleVisibility(s.ctxAs(s.buyer), &models.ToggleVisibilityRequest{ShowContactInfo: &show})
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("flag is required", func() {
		_, err := s.service.ToggleVisibility(s.ctxAs(s.supplier), &models.ToggleVisibilityRequest{})
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})
}

func (s *ContactServiceSuite) TestMaskedView() {
	company, err := s.service.MaskedView(s.T().Context(), s.company.ID)
	s.Require().NoError(err)
	s.Equal(s.company.ID, company.ID)

	_, err = s.service.MaskedView(s.T().Context(), id.CompanyID(uuid.New()))
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ContactServiceSuite) TestListings() {
	s.quotas.SetContactLimit(s.buyer.ID, 0)
	for range 3 {
		s.submitAsBuyer()
	}
	s.submitAnonymous()

	supplierPage, err := s.service.ListForSupplier(s.ctxAs(s.supplier), 1)
	s.Require().NoError(err)
	s.Equal(4, supplierPage.Total)
	s.Len(supplierPage.Contacts, 4)
	s.Equal(models.DefaultPageSize, supplierPage.Page.Size)

	buyerPage, err := s.service.ListForBuyer(s.ctxAs(s.buyer), 1)
	s.Require().NoError(err)
	s.Equal(3, buyerPage.Total)

	pending, err := s.service.ListPending(s.ctxAs(s.admin), 0)
	s.Require().NoError(err)
	s.Equal(4, pending.Total)
	s.Equal(1, pending.Page.Number)

	_, err = s.service.ListForSupplier(s.ctxAs(s.buyer), 1)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

// Justification: ?page= is caller-controlled, and an unclamped page number
// overflows the offset.
func (s *ContactServiceSuite) TestListingsPastTheEnd() {
	s.submitAsBuyer()

	for _, number := range []int{2, math.MaxInt, math.MaxInt32} {
		supplierPage, err := s.service.ListForSupplier(s.ctxAs(s.supplier), number)
		s.Require().NoError(err)
		s.Empty(supplierPage.Contacts)
		s.Equal(1, supplierPage.Total)
		s.GreaterOrEqual(supplierPage.Page.Offset(), 0)

		pending, err := s.service.ListPending(s.ctxAs(s.admin), number)
		s.Require().NoError(err)
		s.Empty(pending.Contacts)
		s.Equal(1, pending.Total)
	}
}

// =============================================================================
// Rollback Tests
// =============================================================================
// Justification: in-memory stores write immediately, so a unit of work that
// fails after its first write must hand every write back.

func (s *ContactServiceSuite) TestFailedAuditRollsBackMemoryWrites() {
	s.quotas.SetContactLimit(s.buyer.ID, 1)
	broken := s.newService(brokenAuditStore{auditmemory.NewInMemoryStore()})

	s.Run("submit keeps quota and leaves no contact", func() {
		_, err := broken.Submit(s.ctxAs(s.buyer), s.submitRequest(s.company.ID))
		s.Require().Error(err)

		state, err := s.quotas.Get(s.T().Context(), s.buyer.ID)
		s.Require().NoError(err)
		s.Zero(state.Count)

		page, err := s.service.ListForSupplier(s.ctxAs(s.supplier), 1)
		s.Require().NoError(err)
		s.Zero(page.Total)
		s.Empty(s.notifier.sent)
	})

	s.Run("respond keeps status and company visibility", func() {
		contact := s.submitAsBuyer()
		share := true
		_, err := broken.Respond(s.ctxAs(s.supplier), contact.ID, &models.RespondRequest{
			ResponseMessage: "Call us.", ShareFullContact: &share,
		})
		s.Require().Error(err)

		stored, err := s.contacts.FindByID(s.T().Context(), contact.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, stored.Status)
		s.Empty(stored.ResponseMessage)

		company, err := s.directory.FindByID(s.T().Context(), s.company.ID)
		s.Require().NoError(err)
		s.False(company.ShowContactInfo)
	})
}
