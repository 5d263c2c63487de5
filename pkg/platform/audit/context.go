package audit

import (
	"context"

	"supplierhub/pkg/platform/middleware/metadata"
	"supplierhub/pkg/requestcontext"
)

// NewEvent builds an event pre-filled from request-scoped values: time,
// request ID, client IP, device summary and the acting caller.
func NewEvent(ctx context.Context, action AuditEvent) Event {
	e := Event{
		Action:    string(action),
		Category:  action.Category(),
		Timestamp: requestcontext.Now(ctx),
		RequestID: requestcontext.RequestID(ctx),
		IP:        requestcontext.ClientIP(ctx),
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		e.Device = metadata.ParseDevice(ua).String()
	}
	if caller := requestcontext.CallerFrom(ctx); !caller.IsAnonymous() {
		e.UserID = caller.UserID
		e.ActorID = caller.UserID.String()
	}
	return e
}
