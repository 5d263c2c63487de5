// Package httputil writes JSON responses and translates domain errors into
// HTTP status codes with a stable error body.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	dErrors "supplierhub/pkg/domain-errors"
)

// RequestIDHeader is echoed on every response by the request ID middleware.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes caps decoded request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the wire shape of every error.
type ErrorResponse struct {
	Error            string              `json:"error"`
	ErrorDescription string              `json:"error_description,omitempty"`
	Errors           map[string][]string `json:"errors,omitempty"`
	RequestID        string              `json:"request_id,omitempty"`
	LimitReached     bool                `json:"limit_reached,omitempty"`
	Limit            int                 `json:"limit,omitempty"`
	ResetsAt         *time.Time          `json:"resets_at,omitempty"`
	RetryAfter       int                 `json:"retry_after,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeValidation:         http.StatusUnprocessableEntity,
	dErrors.CodeInvalidInput:       http.StatusUnprocessableEntity,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeUnverifiedTarget:   http.StatusForbidden,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeQuotaExceeded:      http.StatusTooManyRequests,
	dErrors.CodeRateLimited:        http.StatusTooManyRequests,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
	dErrors.CodeUnavailable:        http.StatusServiceUnavailable,
	dErrors.CodeInvariantViolation: http.StatusInternalServerError,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

// StatusFor maps a domain code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsServerError reports whether err would be written with a 5xx status.
func IsServerError(err error) bool {
	de, ok := dErrors.As(err)
	if !ok {
		return true
	}
	return StatusFor(de.Code) >= http.StatusInternalServerError
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err as an ErrorResponse. Errors without a domain code are
// reported as internal errors. Internal errors never expose their description;
// they carry the request ID instead so operators can correlate logs.
func WriteError(w http.ResponseWriter, err error) {
	de, ok := dErrors.As(err)
	if !ok {
		de = dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
	}

	status := StatusFor(de.Code)
	resp := ErrorResponse{Error: string(de.Code)}
	if de.Code == dErrors.CodeInvariantViolation {
		resp.Error = string(dErrors.CodeInternal)
	}

	if status >= http.StatusInternalServerError {
		resp.RequestID = w.Header().Get(RequestIDHeader)
	} else {
		resp.ErrorDescription = de.Message
		resp.Errors = de.Fields
	}

	switch de.Code {
	case dErrors.CodeQuotaExceeded:
		resp.LimitReached = true
		resp.Limit = de.Limit
		if !de.ResetAt.IsZero() {
			resetAt := de.ResetAt.UTC()
			resp.ResetsAt = &resetAt
		}
		if de.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(de.RetryAfter))
		}
	case dErrors.CodeRateLimited:
		resp.RetryAfter = de.RetryAfter
		w.Header().Set("Retry-After", strconv.Itoa(de.RetryAfter))
	}

	WriteJSON(w, status, resp)
}

// DecodeJSON decodes a bounded JSON body into v. Unknown fields are ignored.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
