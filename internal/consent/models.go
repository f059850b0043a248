package consent

import "time"

// Status of a consent record. The only legal transition is granted to
// revoked; revoked is terminal. A re-grant is a new record, optionally
// chained through PreviousConsentID.
type Status string

const (
	StatusGranted Status = "GRANTED"
	StatusRevoked Status = "REVOKED"
)

// Consent is a decision record: a subject permitted a named use of their
// data for a product, within a tenant, through some channel. Template
// linkage is mandatory on the evidence-gated path and optional on direct
// grants.
type Consent struct {
	ID                string
	SubjectID         string
	Purpose           string
	Status            Status
	Source            string
	SourceChannel     string
	ActorType         string
	TenantID          string
	ProductID         string
	ApplicationNumber string
	MobileNumber      string
	TemplateID        string
	TemplateVersion   int
	EvidenceRef       string
	Meta              map[string]any
	PreviousConsentID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Revoked reports whether the record is in its terminal state.
func (c *Consent) Revoked() bool {
	return c.Status == StatusRevoked
}

// Filter narrows List results. Zero values match everything. Results are
// ordered by creation time ascending, id as tiebreak, so repeated calls
// over the same data agree.
type Filter struct {
	SubjectID string
	Status    Status
}
