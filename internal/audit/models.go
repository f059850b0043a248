package audit

import "time"

// Action names the lifecycle transition an event records.
type Action string

const (
	ActionGranted Action = "granted"
	ActionRevoked Action = "revoked"
)

// Event is one immutable row of the audit trail. The business-context
// fields are frozen copies of the consent's values at the moment of the
// transition; they are never recomputed from the live record.
type Event struct {
	ID                string
	ConsentID         string
	Action            Action
	Actor             string
	ProductID         string
	Purpose           string
	SourceChannel     string
	ActorType         string
	ApplicationNumber string
	MobileNumber      string
	EvidenceRef       string
	Details           map[string]any
	Timestamp         time.Time
}

// Filter narrows List results. Supplied fields combine with AND; results
// are always ordered by timestamp ascending.
type Filter struct {
	ConsentID         string
	MobileNumber      string
	ApplicationNumber string
}
