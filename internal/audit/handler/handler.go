package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"consentd/internal/audit"
	"consentd/pkg/platform/httputil"
)

// Service defines the audit read operations the handler needs.
type Service interface {
	List(ctx context.Context, filter audit.Filter) ([]*audit.Event, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the audit endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.HandleList)
	r.Get("/audit/export.csv", h.HandleExportCSV)
}

func filterFromQuery(r *http.Request) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{
		ConsentID:         q.Get("consent_id"),
		MobileNumber:      q.Get("mobile_number"),
		ApplicationNumber: q.Get("application_number"),
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context(), filterFromQuery(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvents(out))
}

var exportColumns = []string{
	"id", "consent_id", "timestamp", "action", "actor", "product_id",
	"purpose", "source_channel", "actor_type", "application_number",
	"mobile_number", "evidence_ref", "details",
}

// HandleExportCSV streams the audit trail as CSV, honoring the same
// filters as the JSON listing.
func (h *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context(), filterFromQuery(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename=audit_export.csv`)

	writer := csv.NewWriter(w)
	_ = writer.Write(exportColumns)
	for _, ev := range out {
		details := ""
		if ev.Details != nil {
			if raw, err := json.Marshal(ev.Details); err == nil {
				details = string(raw)
			}
		}
		_ = writer.Write([]string{
			ev.ID,
			ev.ConsentID,
			ev.Timestamp.Format(time.RFC3339),
			string(ev.Action),
			ev.Actor,
			ev.ProductID,
			ev.Purpose,
			ev.SourceChannel,
			ev.ActorType,
			ev.ApplicationNumber,
			ev.MobileNumber,
			ev.EvidenceRef,
			details,
		})
	}
	writer.Flush()
}
