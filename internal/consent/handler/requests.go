package handler

import (
	"strings"

	dErrors "consentd/pkg/domain-errors"
)

// GrantRequest is the HTTP request body for POST /consents. "data_use_case"
// is the preferred field name; "purpose" remains as a legacy alias. The
// alias is resolved here at the boundary, so the rest of the system only
// ever sees one purpose field.
type GrantRequest struct {
	SubjectID         string         `json:"subject_id"`
	DataUseCase       string         `json:"data_use_case"`
	Purpose           string         `json:"purpose"`
	Source            string         `json:"source"`
	PreviousConsentID string         `json:"previous_consent_id"`
	Meta              map[string]any `json:"meta"`

	resolvedPurpose string
}

// Validate normalizes the body and resolves the purpose alias.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *GrantRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	if r.SubjectID == "" {
		return dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}

	r.resolvedPurpose = strings.TrimSpace(r.DataUseCase)
	if r.resolvedPurpose == "" {
		r.resolvedPurpose = strings.TrimSpace(r.Purpose)
	}
	if r.resolvedPurpose == "" {
		return dErrors.New(dErrors.CodeValidation, "data_use_case (or purpose) is required")
	}

	if r.Source == "" {
		r.Source = "web_form"
	}
	return nil
}

// ResolvedPurpose returns the alias-resolved purpose (populated by Validate).
func (r *GrantRequest) ResolvedPurpose() string { return r.resolvedPurpose }
