package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"consentd/internal/consent"
	"consentd/internal/consent/service"
	"consentd/pkg/platform/httputil"
	"consentd/pkg/requestcontext"
)

// Service defines the consent operations the handler needs.
type Service interface {
	GrantDirect(ctx context.Context, in service.GrantDirectInput) (*consent.Consent, error)
	Get(ctx context.Context, id string) (*consent.Consent, error)
	List(ctx context.Context, filter consent.Filter) ([]*consent.Consent, error)
	Revoke(ctx context.Context, id, actor string) (*consent.Consent, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the consent endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consents", h.HandleGrant)
	r.Get("/consents", h.HandleList)
	r.Get("/consents/export.csv", h.HandleExportCSV)
	r.Get("/consents/{id}", h.HandleGet)
	r.Patch("/consents/{id}/revoke", h.HandleRevoke)
}

func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[GrantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.GrantDirect(ctx, service.GrantDirectInput{
		SubjectID:         req.SubjectID,
		Purpose:           req.ResolvedPurpose(),
		Source:            req.Source,
		Meta:              req.Meta,
		PreviousConsentID: req.PreviousConsentID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "consent grant failed",
			"request_id", requestID,
			"subject_id", req.SubjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromConsent(c))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConsent(c))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context(), consent.Filter{
		SubjectID: r.URL.Query().Get("subject_id"),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConsents(out))
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	c, err := h.service.Revoke(ctx, id, requestcontext.Actor(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "consent revoked via api",
		"request_id", requestcontext.RequestID(ctx),
		"consent_id", id,
	)
	httputil.WriteJSON(w, http.StatusOK, FromConsent(c))
}
