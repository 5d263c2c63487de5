// Package httpapi composes the HTTP surface: platform middleware, auth
// gates and the module handlers.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	contacthandler "supplierhub/internal/contact/handler"
	"supplierhub/internal/platform/metrics"
	ratelimithandler "supplierhub/internal/ratelimit/handler"
	ratelimitmw "supplierhub/internal/ratelimit/middleware"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/httputil"
	adminmw "supplierhub/pkg/platform/middleware/admin"
	authmw "supplierhub/pkg/platform/middleware/auth"
	"supplierhub/pkg/platform/middleware/metadata"
	"supplierhub/pkg/platform/middleware/request"
	"supplierhub/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps holds everything the router mounts.
type Deps struct {
	Logger          *slog.Logger
	Validator       authmw.JWTValidator
	Contacts        *contacthandler.Handler
	Limits          *ratelimithandler.Handler
	SubmissionLimit *ratelimitmw.Middleware
	AdminToken      string
	RequestTimeout  time.Duration
	// Metrics is optional; nil leaves /metrics unmounted.
	Metrics *metrics.Metrics
	// Clock overrides the request clock in tests.
	Clock  func() time.Time
	Checks map[string]HealthCheck
}

// NewRouter wires all endpoints.
func NewRouter(d Deps) http.Handler {
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(request.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(request.Timeout(timeout))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.MiddlewareWithClock(clock))
	r.Use(request.ContentTypeJSON)

	r.Get("/healthz", healthHandler(d.Checks))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	// Anonymous buyers may submit; a present token must still be valid.
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuth(d.Validator, d.Logger))
		r.With(d.SubmissionLimit.RateLimitContactSubmission()).Post("/contacts", d.Contacts.HandleSubmit)
		d.Contacts.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Validator, d.Logger))

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(d.Logger, id.RoleSupplier))
			d.Contacts.RegisterSupplier(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(d.Logger, id.RoleBuyer))
			d.Contacts.RegisterBuyer(r)
			d.Limits.Register(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(d.Logger, id.RoleAdmin))
			d.Contacts.RegisterAdmin(r)
		})
	})

	// Operator endpoints authenticate with the shared admin token, not a JWT.
	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(d.AdminToken, d.Logger))
		d.Limits.RegisterAdmin(r)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{
			Error:            "not_found",
			ErrorDescription: "route not found",
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
