package auth

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/httputil"
	"supplierhub/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID    string
	Role      string
	CompanyID string
	JTI       string
}

func writeUnauthorized(w http.ResponseWriter, desc string) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
		Error:            "unauthorized",
		ErrorDescription: desc,
	})
}

// callerFromClaims converts validated token claims into a request caller.
// Malformed identifiers are rejected rather than silently treated as anonymous.
func callerFromClaims(claims *JWTClaims) (requestcontext.Caller, bool) {
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return requestcontext.Caller{}, false
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return requestcontext.Caller{}, false
	}
	caller := requestcontext.Caller{UserID: userID, Role: role}
	if claims.CompanyID != "" {
		companyID, err := id.ParseCompanyID(claims.CompanyID)
		if err != nil {
			return requestcontext.Caller{}, false
		}
		caller.CompanyID = companyID
	}
	return caller, true
}

// authenticate resolves the bearer token. present is false when no
// Authorization header was sent at all.
func authenticate(r *http.Request, validator JWTValidator, logger *slog.Logger) (caller requestcontext.Caller, present bool, ok bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return requestcontext.Caller{}, false, false
	}
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	token, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || token == "" {
		logger.WarnContext(ctx, "unauthorized access - malformed authorization header",
			"request_id", requestID,
		)
		return requestcontext.Caller{}, true, false
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		logger.WarnContext(ctx, "unauthorized access - invalid token",
			"error", err,
			"request_id", requestID,
		)
		return requestcontext.Caller{}, true, false
	}
	caller, valid := callerFromClaims(claims)
	if !valid {
		logger.WarnContext(ctx, "unauthorized access - invalid token claims",
			"request_id", requestID,
		)
		return requestcontext.Caller{}, true, false
	}
	return caller, true, true
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, present, ok := authenticate(r, validator, logger)
			if !present {
				logger.WarnContext(r.Context(), "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}
			if !ok {
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(r.Context(), caller)))
		})
	}
}

// OptionalAuth lets anonymous requests through but still rejects a token
// that is present and invalid.
func OptionalAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, present, ok := authenticate(r, validator, logger)
			if !present {
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(r.Context(), caller)))
		})
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(logger *slog.Logger, roles ...id.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller := requestcontext.CallerFrom(ctx)
			if caller.IsAnonymous() {
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}
			if !slices.Contains(roles, caller.Role) {
				logger.WarnContext(ctx, "forbidden - role not permitted",
					"role", caller.Role,
					"user_id", caller.UserID.String(),
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteJSON(w, http.StatusForbidden, httputil.ErrorResponse{
					Error:            "forbidden",
					ErrorDescription: "insufficient role",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
