package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"supplierhub/internal/ratelimit/models"
	id "supplierhub/pkg/domain"
	dErrors "supplierhub/pkg/domain-errors"
	"supplierhub/pkg/platform/httputil"
	"supplierhub/pkg/requestcontext"
)

// QuotaService defines the quota operations exposed over HTTP.
type QuotaService interface {
	Status(ctx context.Context, userID id.UserID) (*models.QuotaSnapshot, error)
	Reset(ctx context.Context, userID id.UserID) error
}

// Handler serves the buyer limit status and the admin quota reset.
type Handler struct {
	quota  QuotaService
	logger *slog.Logger
}

func New(quota QuotaService, logger *slog.Logger) *Handler {
	return &Handler{quota: quota, logger: logger}
}

// Register mounts buyer routes. The router must already require a buyer.
func (h *Handler) Register(r chi.Router) {
	r.Get("/contacts/limit-status", h.HandleLimitStatus)
}

// RegisterAdmin mounts admin routes. The router must already be admin-gated.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/quotas/{userId}/reset", h.HandleResetQuota)
}

// HandleLimitStatus handles GET /contacts/limit-status.
func (h *Handler) HandleLimitStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	snap, err := h.quota.Status(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load contact limit status",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.ToLimitStatusResponse(*snap))
}

// HandleResetQuota handles POST /admin/quotas/{userId}/reset.
func (h *Handler) HandleResetQuota(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.quota.Reset(ctx, userID); err != nil {
		h.logger.ErrorContext(ctx, "failed to reset contact quota",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "contact quota reset",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
	)
	httputil.WriteJSON(w, http.StatusOK, models.QuotaResetResponse{
		UserID:       userID.String(),
		UsedContacts: 0,
		Message:      "Weekly contact quota reset",
	})
}
