package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"consentd/internal/template"
	"consentd/pkg/platform/httputil"
	"consentd/pkg/requestcontext"
)

// Service defines the template operations the handler needs.
type Service interface {
	CreateVersion(ctx context.Context, in template.CreateVersionInput) (*template.Template, error)
	Get(ctx context.Context, id string) (*template.Template, error)
	Deactivate(ctx context.Context, id string) error
	List(ctx context.Context, filter template.Filter) ([]*template.Template, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts template management endpoints. The caller is expected to
// have wrapped the router in operator auth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/templates", h.HandleList)
	r.Post("/templates", h.HandleCreateVersion)
	r.Get("/templates/{id}", h.HandleGet)
	r.Post("/templates/{id}/deactivate", h.HandleDeactivate)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := template.Filter{
		TenantID:  q.Get("tenant_id"),
		ProductID: q.Get("product_id"),
		Purpose:   q.Get("purpose"),
	}
	out, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTemplates(out))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTemplate(tmpl))
}

func (h *Handler) HandleCreateVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateVersionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, err := h.service.CreateVersion(ctx, template.CreateVersionInput{
		TenantID:     req.TenantID,
		ProductID:    req.ProductID,
		Purpose:      req.Purpose,
		TemplateType: req.TemplateType,
		Title:        req.Title,
		BodyText:     req.BodyText,
		IsActive:     req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "template version created",
		"request_id", requestID,
		"template_id", created.ID,
		"version", created.Version,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromTemplate(created))
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := h.service.Deactivate(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "template version deactivated",
		"request_id", requestcontext.RequestID(ctx),
		"template_id", id,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
