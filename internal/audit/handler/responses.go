package handler

import (
	"time"

	"consentd/internal/audit"
)

// EventResponse is the HTTP representation of an audit event.
type EventResponse struct {
	ID                string         `json:"id"`
	ConsentID         string         `json:"consent_id"`
	Timestamp         time.Time      `json:"timestamp"`
	Action            string         `json:"action"`
	Actor             string         `json:"actor"`
	ProductID         string         `json:"product_id,omitempty"`
	Purpose           string         `json:"purpose,omitempty"`
	SourceChannel     string         `json:"source_channel,omitempty"`
	ActorType         string         `json:"actor_type,omitempty"`
	ApplicationNumber string         `json:"application_number,omitempty"`
	MobileNumber      string         `json:"mobile_number,omitempty"`
	EvidenceRef       string         `json:"evidence_ref,omitempty"`
	Details           map[string]any `json:"details,omitempty"`
}

// FromEvents converts the audit trail to its HTTP representation.
func FromEvents(events []*audit.Event) []*EventResponse {
	out := make([]*EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, &EventResponse{
			ID:                ev.ID,
			ConsentID:         ev.ConsentID,
			Timestamp:         ev.Timestamp,
			Action:            string(ev.Action),
			Actor:             ev.Actor,
			ProductID:         ev.ProductID,
			Purpose:           ev.Purpose,
			SourceChannel:     ev.SourceChannel,
			ActorType:         ev.ActorType,
			ApplicationNumber: ev.ApplicationNumber,
			MobileNumber:      ev.MobileNumber,
			EvidenceRef:       ev.EvidenceRef,
			Details:           ev.Details,
		})
	}
	return out
}
