// Package handler exposes the contact workflow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"supplierhub/internal/contact/models"
	"supplierhub/internal/contact/service"
	id "supplierhub/pkg/domain"
	"supplierhub/pkg/platform/httputil"
	"supplierhub/pkg/requestcontext"
)

// Service defines the contact operations exposed over HTTP.
type Service interface {
	Submit(ctx context.Context, req *models.SubmitRequest) (*service.SubmitResult, error)
	Respond(ctx context.Context, contactID id.ContactID, req *models.RespondRequest) (*models.ContactRequest, error)
	Review(ctx context.Context, contactID id.ContactID, req *models.ReviewRequest) (*models.ContactRequest, error)
	Unlock(ctx context.Context, contactID id.ContactID, req *models.UnlockRequest) (*models.ContactRequest, error)
	OverrideStatus(ctx context.Context, contactID id.ContactID, req *models.OverrideStatusRequest) (*models.ContactRequest, error)
	ToggleVisibility(ctx context.Context, req *models.ToggleVisibilityRequest) (*models.Company, error)
	MaskedView(ctx context.Context, companyID id.CompanyID) (*models.Company, error)
	ListForSupplier(ctx context.Context, page int) (*service.ContactPage, error)
	ListForBuyer(ctx context.Context, page int) (*service.ContactPage, error)
	ListPending(ctx context.Context, page int) (*service.ContactPage, error)
}

type Handler struct {
	contacts Service
	logger   *slog.Logger
}

func New(contacts Service, logger *slog.Logger) *Handler {
	return &Handler{contacts: contacts, logger: logger}
}

// RegisterPublic mounts routes that need no identity.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/contacts/masked/{companyId}", h.HandleMaskedContact)
}

// RegisterSupplier mounts supplier routes. The router must already require
// the supplier role.
func (h *Handler) RegisterSupplier(r chi.Router) {
	r.Get("/contacts/supplier", h.HandleSupplierList)
	r.Post("/contacts/toggle-visibility", h.HandleToggleVisibility)
	r.Post("/contacts/{id}/respond", h.HandleRespond)
}

// RegisterBuyer mounts buyer routes. The router must already require the
// buyer role.
func (h *Handler) RegisterBuyer(r chi.Router) {
	r.Get("/contacts/buyer", h.HandleBuyerList)
}

// RegisterAdmin mounts moderation routes. The router must already require
// the admin role.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/contacts/pending", h.HandlePendingList)
	r.Post("/admin/contacts/{id}/review", h.HandleReview)
	r.Post("/admin/contacts/{id}/unlock", h.HandleUnlock)
	r.Post("/admin/contacts/{id}/status", h.HandleOverrideStatus)
}

// HandleSubmit handles POST /contacts. It is mounted by the router behind
// optional authentication and the submission rate limit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.SubmitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.contacts.Submit(ctx, &req)
	if err != nil {
		h.logFailure(ctx, "contact submission failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.SubmitResponse{
		Message:           "Contact request sent successfully",
		Data:              models.FullView(result.Contact),
		RemainingContacts: result.RemainingContacts(),
	})
}

// HandleRespond handles POST /contacts/{id}/respond.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contactID, err := id.ParseContactID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.RespondRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	contact, err := h.contacts.Respond(ctx, contactID, &req)
	if err != nil {
		h.logFailure(ctx, "contact response failed", err, "contact_id", contactID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.ContactResponse{
		Message: "Response sent successfully",
		Data:    models.ToView(contact, contact.BuyerVisibility()),
	})
}

// HandleMaskedContact handles GET /contacts/masked/{companyId}.
func (h *Handler) HandleMaskedContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	company, err := h.contacts.MaskedView(ctx, companyID)
	if err != nil {
		h.logFailure(ctx, "masked contact lookup failed", err, "company_id", companyID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.ToMaskedContactResponse(company))
}

// HandleToggleVisibility handles POST /contacts/toggle-visibility.
func (h *Handler) HandleToggleVisibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.ToggleVisibilityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	company, err := h.contacts.ToggleVisibility(ctx, &req)
	if err != nil {
		h.logFailure(ctx, "visibility toggle failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.VisibilityResponse{
		Message:         "Contact visibility updated",
		ShowContactInfo: company.ShowContactInfo,
	})
}

// HandleSupplierList handles GET /contacts/supplier. Buyer details stay
// masked until the request is forwarded or unlocked.
func (h *Handler) HandleSupplierList(w http.ResponseWriter, r *http.Request) {
	page, err := h.contacts.ListForSupplier(r.Context(), pageParam(r))
	h.writeList(w, r, page, err, func(c *models.ContactRequest) models.ContactView {
		return models.ToView(c, c.BuyerVisibility())
	})
}

// HandleBuyerList handles GET /contacts/buyer.
func (h *Handler) HandleBuyerList(w http.ResponseWriter, r *http.Request) {
	page, err := h.contacts.ListForBuyer(r.Context(), pageParam(r))
	h.writeList(w, r, page, err, models.FullView)
}

// HandlePendingList handles GET /admin/contacts/pending.
func (h *Handler) HandlePendingList(w http.ResponseWriter, r *http.Request) {
	page, err := h.contacts.ListPending(r.Context(), pageParam(r))
	h.writeList(w, r, page, err, models.FullView)
}

// HandleReview handles POST /admin/contacts/{id}/review.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewRequest
	h.adminAction(w, r, &req, func(ctx context.Context, contactID id.ContactID) (*models.ContactRequest, error) {
		return h.contacts.Review(ctx, contactID, &req)
	}, func(c *models.ContactRequest) string {
		if c.Status == models.StatusApproved {
			return "Contact request approved and forwarded to supplier"
		}
		return "Contact request rejected"
	})
}

// HandleUnlock handles POST /admin/contacts/{id}/unlock.
func (h *Handler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	var req models.UnlockRequest
	h.adminAction(w, r, &req, func(ctx context.Context, contactID id.ContactID) (*models.ContactRequest, error) {
		return h.contacts.Unlock(ctx, contactID, &req)
	}, func(*models.ContactRequest) string {
		return "Contact information unlocked"
	})
}

// HandleOverrideStatus handles POST /admin/contacts/{id}/status.
func (h *Handler) HandleOverrideStatus(w http.ResponseWriter, r *http.Request) {
	var req models.OverrideStatusRequest
	h.adminAction(w, r, &req, func(ctx context.Context, contactID id.ContactID) (*models.ContactRequest, error) {
		return h.contacts.OverrideStatus(ctx, contactID, &req)
	}, func(c *models.ContactRequest) string {
		return "Contact status changed to " + c.Status.String()
	})
}

// adminAction decodes body into req, runs action on the contact named in the
// path and writes the unmasked result.
func (h *Handler) adminAction(
	w http.ResponseWriter, r *http.Request, req any,
	action func(context.Context, id.ContactID) (*models.ContactRequest, error),
	message func(*models.ContactRequest) string,
) {
	ctx := r.Context()
	contactID, err := id.ParseContactID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := httputil.DecodeJSON(r, req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	contact, err := action(ctx, contactID)
	if err != nil {
		h.logFailure(ctx, "admin contact action failed", err, "contact_id", contactID, "path", r.URL.Path)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.ContactResponse{
		Message: message(contact),
		Data:    models.FullView(contact),
	})
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, page *service.ContactPage, err error, view func(*models.ContactRequest) models.ContactView) {
	if err != nil {
		h.logFailure(r.Context(), "contact listing failed", err, "path", r.URL.Path)
		httputil.WriteError(w, err)
		return
	}

	data := make([]models.ContactView, 0, len(page.Contacts))
	for _, c := range page.Contacts {
		data = append(data, view(c))
	}
	httputil.WriteJSON(w, http.StatusOK, models.ListResponse{
		Data:        data,
		CurrentPage: page.Page.Number,
		PerPage:     page.Page.Size,
		Total:       page.Total,
		LastPage:    page.Page.LastPage(page.Total),
	})
}

// logFailure logs at ERROR for server faults and at INFO for client errors.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, kv ...any) {
	args := append([]any{"request_id", requestcontext.RequestID(ctx), "error", err}, kv...)
	if httputil.IsServerError(err) {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.InfoContext(ctx, msg, args...)
}

// pageParam reads ?page=, defaulting to the first page.
func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
