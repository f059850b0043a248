package handler

import (
	"time"

	"consentd/internal/consent"
)

// ConsentResponse is the HTTP representation of a consent record. The
// resolved purpose is mirrored into both "data_use_case" and "purpose" for
// clients still reading the legacy field.
type ConsentResponse struct {
	ID                string         `json:"id"`
	SubjectID         string         `json:"subject_id"`
	DataUseCase       string         `json:"data_use_case"`
	Purpose           string         `json:"purpose"`
	Status            string         `json:"status"`
	Source            string         `json:"source,omitempty"`
	SourceChannel     string         `json:"source_channel,omitempty"`
	ActorType         string         `json:"actor_type,omitempty"`
	TenantID          string         `json:"tenant_id,omitempty"`
	ProductID         string         `json:"product_id,omitempty"`
	ApplicationNumber string         `json:"application_number,omitempty"`
	MobileNumber      string         `json:"mobile_number,omitempty"`
	TemplateID        string         `json:"template_id,omitempty"`
	TemplateVersion   int            `json:"version,omitempty"`
	EvidenceRef       string         `json:"evidence_ref,omitempty"`
	Meta              map[string]any `json:"meta,omitempty"`
	PreviousConsentID string         `json:"previous_consent_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// FromConsent converts a domain consent to its HTTP representation.
func FromConsent(c *consent.Consent) *ConsentResponse {
	return &ConsentResponse{
		ID:                c.ID,
		SubjectID:         c.SubjectID,
		DataUseCase:       c.Purpose,
		Purpose:           c.Purpose,
		Status:            string(c.Status),
		Source:            c.Source,
		SourceChannel:     c.SourceChannel,
		ActorType:         c.ActorType,
		TenantID:          c.TenantID,
		ProductID:         c.ProductID,
		ApplicationNumber: c.ApplicationNumber,
		MobileNumber:      c.MobileNumber,
		TemplateID:        c.TemplateID,
		TemplateVersion:   c.TemplateVersion,
		EvidenceRef:       c.EvidenceRef,
		Meta:              c.Meta,
		PreviousConsentID: c.PreviousConsentID,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

// FromConsents converts a consent list.
func FromConsents(cs []*consent.Consent) []*ConsentResponse {
	out := make([]*ConsentResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, FromConsent(c))
	}
	return out
}
