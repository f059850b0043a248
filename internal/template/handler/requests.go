package handler

import (
	"strings"

	dErrors "consentd/pkg/domain-errors"
)

// CreateVersionRequest is the HTTP request body for POST /templates.
type CreateVersionRequest struct {
	TenantID     string `json:"tenant_id"`
	ProductID    string `json:"product_id"`
	Purpose      string `json:"purpose"`
	TemplateType string `json:"template_type"`
	Title        string `json:"title"`
	BodyText     string `json:"body_text"`
	IsActive     bool   `json:"is_active"`
}

// Validate normalizes and checks the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateVersionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.TenantID = strings.TrimSpace(r.TenantID)
	r.ProductID = strings.TrimSpace(r.ProductID)
	r.Purpose = strings.TrimSpace(r.Purpose)
	r.TemplateType = strings.TrimSpace(r.TemplateType)
	r.Title = strings.TrimSpace(r.Title)

	if r.ProductID == "" {
		return dErrors.New(dErrors.CodeValidation, "product_id is required")
	}
	if r.Purpose == "" {
		return dErrors.New(dErrors.CodeValidation, "purpose is required")
	}
	if r.TemplateType == "" {
		return dErrors.New(dErrors.CodeValidation, "template_type is required")
	}
	if strings.TrimSpace(r.BodyText) == "" {
		return dErrors.New(dErrors.CodeValidation, "body_text is required")
	}
	return nil
}
