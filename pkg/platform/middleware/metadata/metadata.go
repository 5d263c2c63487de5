package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"supplierhub/pkg/requestcontext"
)

// ClientMetadata extracts client IP address and User-Agent from the request
// and adds them to the context for use by handlers and services.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Device is a coarse summary of a User-Agent string recorded with audit events.
type Device struct {
	Browser string
	OS      string
	Mobile  bool
	Bot     bool
}

// String renders the summary as "Browser on OS", or "bot" for crawlers.
// A missing half is left out.
func (d Device) String() string {
	switch {
	case d.Bot:
		return "bot"
	case d.Browser == "" && d.OS == "":
		return "unknown"
	case d.OS == "":
		return d.Browser
	case d.Browser == "":
		return "unknown on " + d.OS
	}
	return d.Browser + " on " + d.OS
}

// botMarkers catch crawlers that useragent only flags when they carry a
// bot URL.
var botMarkers = []string{"bot", "crawler", "spider", "slurp"}

func looksLikeBot(ua string) bool {
	lower := strings.ToLower(ua)
	for _, m := range botMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ParseDevice summarises a raw User-Agent header.
func ParseDevice(ua string) Device {
	if strings.TrimSpace(ua) == "" {
		return Device{}
	}
	parsed := useragent.New(ua)
	browser, _ := parsed.Browser()
	return Device{
		Browser: browser,
		OS:      parsed.OS(),
		Mobile:  parsed.Mobile(),
		Bot:     parsed.Bot() || looksLikeBot(ua),
	}
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port", or "[::1]:port" for IPv6
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
