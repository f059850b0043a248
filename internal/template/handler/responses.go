package handler

import (
	"time"

	"consentd/internal/template"
)

// TemplateResponse is the HTTP representation of a template version.
type TemplateResponse struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id,omitempty"`
	ProductID    string    `json:"product_id"`
	Purpose      string    `json:"purpose"`
	TemplateType string    `json:"template_type"`
	Version      int       `json:"version"`
	Title        string    `json:"title,omitempty"`
	BodyText     string    `json:"body_text"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// FromTemplate converts a domain template to its HTTP representation.
func FromTemplate(t *template.Template) *TemplateResponse {
	return &TemplateResponse{
		ID:           t.ID,
		TenantID:     t.TenantID,
		ProductID:    t.ProductID,
		Purpose:      t.Purpose,
		TemplateType: t.TemplateType,
		Version:      t.Version,
		Title:        t.Title,
		BodyText:     t.BodyText,
		IsActive:     t.IsActive,
		CreatedAt:    t.CreatedAt,
	}
}

// ListResponse wraps a template collection.
type ListResponse struct {
	Templates []*TemplateResponse `json:"templates"`
	Total     int                 `json:"total"`
}

// FromTemplates converts a template list to its HTTP representation.
func FromTemplates(ts []*template.Template) *ListResponse {
	out := &ListResponse{Templates: make([]*TemplateResponse, 0, len(ts))}
	for _, t := range ts {
		out.Templates = append(out.Templates, FromTemplate(t))
	}
	out.Total = len(out.Templates)
	return out
}
