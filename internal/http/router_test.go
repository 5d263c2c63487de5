package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"supplierhub/internal/captcha"
	contacthandler "supplierhub/internal/contact/handler"
	contactmetrics "supplierhub/internal/contact/metrics"
	"supplierhub/internal/contact/models"
	"supplierhub/internal/contact/service"
	contactStore "supplierhub/internal/contact/store/contact"
	"supplierhub/internal/contact/store/directory"
	jwttoken "supplierhub/internal/jwt_token"
	"supplierhub/internal/notify"
	"supplierhub/internal/notify/queue"
	"supplierhub/internal/platform/metrics"
	ratelimithandler "supplierhub/internal/ratelimit/handler"
	ratelimitmw "supplierhub/internal/ratelimit/middleware"
	rlmodels "supplierhub/internal/ratelimit/models"
	quotasvc "supplierhub/internal/ratelimit/service/quota"
	"supplierhub/internal/ratelimit/service/requestlimit"
	"supplierhub/internal/ratelimit/store/bucket"
	quotaStore "supplierhub/internal/ratelimit/store/quota"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/fieldcrypt"
	"supplierhub/pkg/platform/tx"
	"supplierhub/pkg/testutil"
)

// =============================================================================
// Router Test Suite
// =============================================================================
// Justification: the router owns authentication, role gates, the submission
// throttle and the operator token. Handler suites bypass all of these, so
// the gates are pinned here against the fully wired in-memory stack.

const adminToken = "ops-secret"

type RouterSuite struct {
	suite.Suite
	router  http.Handler
	jwt     *jwttoken.JWTService
	quotas  *quotaStore.InMemoryQuotaStore
	company *models.Company
	now     time.Time

	buyerID    id.UserID
	supplierID id.UserID
	adminID    id.UserID
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	logger := slog.New(slog.DiscardHandler)
	cipher, err := fieldcrypt.New("test-secret")
	s.Require().NoError(err)

	dir := directory.NewInMemoryStore()
	s.company = &models.Company{
		ID:                 id.CompanyID(uuid.New()),
		Name:               "Acme Steel",
		VerificationStatus: models.VerificationVerified,
		ContactEmail:       "sales@acme.example",
		ContactPhone:       "+4930555123",
	}
	dir.SaveCompany(s.company)
	s.buyerID = id.UserID(uuid.New())
	s.supplierID = id.UserID(uuid.New())
	s.adminID = id.UserID(uuid.New())
	dir.SaveUser(&models.User{ID: s.buyerID, Email: "jane@buyer.example", Role: id.RoleBuyer})
	dir.SaveUser(&models.User{ID: s.supplierID, Email: "owner@acme.example", Role: id.RoleSupplier, CompanyID: s.company.ID})
	dir.SaveUser(&models.User{ID: s.adminID, Email: "admin@supplierhub.example", Role: id.RoleAdmin})

	m := metrics.New()
	s.quotas = quotaStore.New()
	quota, err := quotasvc.New(s.quotas, s.quotas, quotasvc.WithLogger(logger))
	s.Require().NoError(err)
	limiter, err := requestlimit.New(bucket.NewInMemoryBucketStore(), requestlimit.WithLimit(2, time.Hour))
	s.Require().NoError(err)
	dispatcher, err := notify.NewDispatcher(queue.NewMemory(64, logger))
	s.Require().NoError(err)

	svc, err := service.New(service.Deps{
		Contacts:  contactStore.NewInMemoryStore(cipher),
		Companies: dir,
		Users:     dir.Users(),
		Quota:     quota,
		Captcha:   captcha.Static{Allow: true},
		Notifier:  dispatcher,
		TxManager: tx.NewMemoryManager(),
	}, service.WithLogger(logger), service.WithMetrics(contactmetrics.New(m.Registry)))
	s.Require().NoError(err)

	s.jwt = jwttoken.NewJWTService("signing-key", "supplierhub", "supplierhub-api")
	s.router = NewRouter(Deps{
		Logger:          logger,
		Validator:       jwttoken.NewJWTServiceAdapter(s.jwt),
		Contacts:        contacthandler.New(svc, logger),
		Limits:          ratelimithandler.New(quota, logger),
		SubmissionLimit: ratelimitmw.New(limiter, logger),
		AdminToken:      adminToken,
		Metrics:         m,
		Clock:           func() time.Time { return s.now },
		Checks: map[string]HealthCheck{
			"store": func(context.Context) error { return nil },
		},
	})
}

func (s *RouterSuite) token(userID id.UserID, role id.Role, companyID id.CompanyID) string {
	tok, err := s.jwt.GenerateAccessToken(userID, role, companyID, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) get(path, token string) *http.Request {
	req := testutil.NewRequest(s.T(), http.MethodGet, path)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (s *RouterSuite) submitBody(email string) map[string]any {
	return map[string]any{
		"company_id":      s.company.ID.String(),
		"message":         "We need 40t of rebar per month.",
		"company_name":    "Buyer GmbH",
		"contact_person":  "Jane Doe",
		"email":           email,
		"country":         "DE",
		"recaptcha_token": "token",
	}
}

// =============================================================================
// Authentication and role gates
// =============================================================================

func (s *RouterSuite) TestSubmissionAuth() {
	s.Run("anonymous submission is accepted", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/contacts", s.submitBody("anon@buyer.example")))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[models.SubmitResponse](s.T(), rr)
		s.Nil(resp.RemainingContacts)
	})

	s.Run("buyer submission reports remaining contacts", func() {
		s.quotas.SetContactLimit(s.buyerID, 3)
		req := testutil.NewAuthedJSONRequest(s.T(), http.MethodPost, "/contacts", s.token(s.buyerID, id.RoleBuyer, id.CompanyID{}), s.submitBody("jane@buyer.example"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[models.SubmitResponse](s.T(), rr)
		s.Require().NotNil(resp.RemainingContacts)
		s.Equal(2, *resp.RemainingContacts)
	})

	s.Run("an invalid token is rejected rather than treated as anonymous", func() {
		req := testutil.NewAuthedJSONRequest(s.T(), http.MethodPost, "/contacts", "not-a-jwt", s.submitBody("x@buyer.example"))
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusUnauthorized)
	})
}

func (s *RouterSuite) TestRoleGates() {
	buyer := s.token(s.buyerID, id.RoleBuyer, id.CompanyID{})
	supplier := s.token(s.supplierID, id.RoleSupplier, s.company.ID)
	admin := s.token(s.adminID, id.RoleAdmin, id.CompanyID{})

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"supplier list needs a token", "/contacts/supplier", "", http.StatusUnauthorized},
		{"supplier list rejects buyers", "/contacts/supplier", buyer, http.StatusForbidden},
		{"supplier list serves suppliers", "/contacts/supplier", supplier, http.StatusOK},
		{"buyer list rejects suppliers", "/contacts/buyer", supplier, http.StatusForbidden},
		{"buyer list serves buyers", "/contacts/buyer", buyer, http.StatusOK},
		{"limit status serves buyers", "/contacts/limit-status", buyer, http.StatusOK},
		{"limit status rejects admins", "/contacts/limit-status", admin, http.StatusForbidden},
		{"pending queue rejects buyers", "/admin/contacts/pending", buyer, http.StatusForbidden},
		{"pending queue serves admins", "/admin/contacts/pending", admin, http.StatusOK},
		{"masked view is public", "/contacts/masked/" + s.company.ID.String(), "", http.StatusOK},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, s.get(tc.path, tc.token)), tc.status)
		})
	}
}

func (s *RouterSuite) TestLimitStatus() {
	s.quotas.SetContactLimit(s.buyerID, 5)
	rr := testutil.DoRequest(s.router, s.get("/contacts/limit-status", s.token(s.buyerID, id.RoleBuyer, id.CompanyID{})))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[rlmodels.LimitStatusResponse](s.T(), rr)
	s.Equal(5, resp.ContactLimit)
	s.Require().NotNil(resp.Remaining)
	s.Equal(5, *resp.Remaining)
}

// =============================================================================
// Submission throttle
// =============================================================================

func (s *RouterSuite) TestSubmissionThrottle() {
	for range 2 {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/contacts", s.submitBody("spam@buyer.example")))
		testutil.AssertStatusOK(s.T(), rr)
		s.NotEmpty(rr.Header().Get("X-RateLimit-Limit"))
	}

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/contacts", s.submitBody("spam@buyer.example")))
	testutil.AssertStatus(s.T(), rr, http.StatusTooManyRequests)
	s.NotEmpty(rr.Header().Get("Retry-After"))

	s.Run("a different email has its own bucket", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/contacts", s.submitBody("other@buyer.example")))
		testutil.AssertStatusOK(s.T(), rr)
	})
}

// =============================================================================
// Operator endpoints
// =============================================================================

func (s *RouterSuite) TestQuotaResetNeedsAdminToken() {
	path := "/admin/quotas/" + s.buyerID.String() + "/reset"

	s.Run("missing token", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, nil))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("admin JWT is not enough", func() {
		req := testutil.NewAuthedJSONRequest(s.T(), http.MethodPost, path, s.token(s.adminID, id.RoleAdmin, id.CompanyID{}), nil)
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusUnauthorized)
	})

	s.Run("valid token resets", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, nil)
		req.Header.Set("X-Admin-Token", adminToken)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[rlmodels.QuotaResetResponse](s.T(), rr)
		s.Equal(s.buyerID.String(), resp.UserID)
	})
}

func (s *RouterSuite) TestPlatformEndpoints() {
	s.Run("metrics are exposed", func() {
		rr := testutil.DoRequest(s.router, s.get("/metrics", ""))
		testutil.AssertStatusOK(s.T(), rr)
		s.Contains(rr.Body.String(), "supplierhub_http_requests_in_flight")
	})

	s.Run("health reports ok", func() {
		rr := testutil.DoRequest(s.router, s.get("/healthz", ""))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "status", "ok")
	})

	s.Run("unknown routes are json 404s", func() {
		rr := testutil.DoRequest(s.router, s.get("/nope", ""))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("request id is echoed", func() {
		rr := testutil.DoRequest(s.router, s.get("/healthz", ""))
		s.NotEmpty(rr.Header().Get("X-Request-ID"))
	})
}

func TestHealthChecks(t *testing.T) {
	testutil.Given(t, "a health endpoint with a failing dependency", func(t *testing.T) {
		h := healthHandler(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})

		testutil.When(t, "calling GET /healthz", func(t *testing.T) {
			rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/healthz"))
			testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
			resp := testutil.UnmarshalResponse[healthResponse](t, rr)

			testutil.Then(t, "it reports degraded", func(t *testing.T) {
				if resp.Status != "degraded" {
					t.Fatalf("unexpected status: %q", resp.Status)
				}
			})
			testutil.And(t, "it names each check", func(t *testing.T) {
				if resp.Checks["postgres"] != "ok" || resp.Checks["redis"] != "connection refused" {
					t.Fatalf("unexpected checks: %v", resp.Checks)
				}
			})
		})
	})
}
