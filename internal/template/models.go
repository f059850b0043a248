package template

import "time"

// Template is one version of consent wording for a
// (tenant, product, purpose, template type) group. Rows are append-only:
// a new version is a new row, and existing rows are never edited or deleted.
// Deactivation flips is_active only, by explicit operator action.
type Template struct {
	ID           string
	TenantID     string
	ProductID    string
	Purpose      string
	TemplateType string
	Version      int
	Title        string
	BodyText     string
	IsActive     bool
	CreatedAt    time.Time
}

// GroupKey identifies a versioning group. Versions are strictly increasing
// within a group, starting at 1.
type GroupKey struct {
	TenantID     string
	ProductID    string
	Purpose      string
	TemplateType string
}

func (t *Template) Group() GroupKey {
	return GroupKey{
		TenantID:     t.TenantID,
		ProductID:    t.ProductID,
		Purpose:      t.Purpose,
		TemplateType: t.TemplateType,
	}
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	TenantID  string
	ProductID string
	Purpose   string
}

// CreateVersionInput carries the caller-supplied fields of a new template
// version. The version number is never an input.
type CreateVersionInput struct {
	TenantID     string
	ProductID    string
	Purpose      string
	TemplateType string
	Title        string
	BodyText     string
	IsActive     bool
}
