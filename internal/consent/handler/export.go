package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"consentd/internal/consent"
	"consentd/pkg/platform/httputil"
)

var exportColumns = []string{
	"id", "subject_id", "purpose", "status", "source", "source_channel",
	"actor_type", "tenant_id", "product_id", "application_number",
	"mobile_number", "template_id", "version", "evidence_ref", "created_at",
	"updated_at",
}

// HandleExportCSV streams the consent list as CSV, honoring the same
// subject_id filter as the JSON listing.
func (h *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context(), consent.Filter{
		SubjectID: r.URL.Query().Get("subject_id"),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename=consent_export.csv`)

	writer := csv.NewWriter(w)
	_ = writer.Write(exportColumns)
	for _, c := range out {
		version := ""
		if c.TemplateVersion != 0 {
			version = fmt.Sprintf("%d", c.TemplateVersion)
		}
		_ = writer.Write([]string{
			c.ID,
			c.SubjectID,
			c.Purpose,
			string(c.Status),
			c.Source,
			c.SourceChannel,
			c.ActorType,
			c.TenantID,
			c.ProductID,
			c.ApplicationNumber,
			c.MobileNumber,
			c.TemplateID,
			version,
			c.EvidenceRef,
			c.CreatedAt.Format(time.RFC3339),
			c.UpdatedAt.Format(time.RFC3339),
		})
	}
	writer.Flush()
}
