package testutil

import (
	"context"
	"net/http"
	"time"

	id "supplierhub/pkg/domain"
	"supplierhub/pkg/requestcontext"
)

// WithCaller attaches a caller to the request context. This simulates what
// the auth middleware does for authenticated requests.
func WithCaller(req *http.Request, caller requestcontext.Caller) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithBuyer marks the request as coming from a buyer without a company.
func WithBuyer(req *http.Request, userID id.UserID) *http.Request {
	return WithCaller(req, requestcontext.Caller{UserID: userID, Role: id.RoleBuyer})
}

// WithSupplier marks the request as coming from a supplier of companyID.
func WithSupplier(req *http.Request, userID id.UserID, companyID id.CompanyID) *http.Request {
	return WithCaller(req, requestcontext.Caller{UserID: userID, Role: id.RoleSupplier, CompanyID: companyID})
}

// WithAdmin marks the request as coming from a platform admin.
func WithAdmin(req *http.Request, userID id.UserID) *http.Request {
	return WithCaller(req, requestcontext.Caller{UserID: userID, Role: id.RoleAdmin})
}

// WithClient sets the client IP and User-Agent the metadata middleware would extract.
func WithClient(req *http.Request, ip, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}

// ServiceContext builds a context for service tests with a fixed clock,
// request ID and client metadata.
func ServiceContext(now time.Time, caller requestcontext.Caller) context.Context {
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "test-request")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.10", "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0")
	return requestcontext.WithCaller(ctx, caller)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
