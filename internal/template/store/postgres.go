package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"consentd/internal/template"
	"consentd/pkg/platform/sentinel"
)

// Postgres persists consent templates. Version assignment uses a subselect so
// two concurrent CreateVersion calls in one group serialize on the group's
// unique constraint instead of racing in the application. The constraint is
// declared NULLS NOT DISTINCT so the no-tenant group (NULL tenant_id) is
// covered too; a loser of the race surfaces as a unique violation the caller
// can retry.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) CreateVersion(ctx context.Context, tmpl *template.Template) (*template.Template, error) {
	query := `
		INSERT INTO consent_templates (
			id, tenant_id, product_id, purpose, template_type,
			version, title, body_text, is_active, created_at
		)
		SELECT $1, $2, $3, $4, $5,
			   COALESCE(MAX(version), 0) + 1, $6, $7, $8, $9
		FROM consent_templates
		WHERE COALESCE(tenant_id, '') = COALESCE($2, '')
		  AND product_id = $3 AND purpose = $4 AND template_type = $5
		RETURNING version
	`
	cp := *tmpl
	err := s.db.QueryRowContext(ctx, query,
		tmpl.ID,
		nullString(tmpl.TenantID),
		tmpl.ProductID,
		tmpl.Purpose,
		tmpl.TemplateType,
		nullString(tmpl.Title),
		tmpl.BodyText,
		tmpl.IsActive,
		tmpl.CreatedAt,
	).Scan(&cp.Version)
	if err != nil {
		return nil, fmt.Errorf("insert consent template: %w", err)
	}
	return &cp, nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*template.Template, error) {
	query := selectColumns + ` WHERE id = $1`
	tmpl, err := scanTemplate(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return tmpl, err
}

func (s *Postgres) FindActive(ctx context.Context, tenantID, productID, purpose string) (*template.Template, error) {
	query := selectColumns + `
		WHERE product_id = $1 AND purpose = $2 AND is_active
		  AND ($3 = '' OR tenant_id = $3)
		ORDER BY version DESC
		LIMIT 1
	`
	tmpl, err := scanTemplate(s.db.QueryRowContext(ctx, query, productID, purpose, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return tmpl, err
}

func (s *Postgres) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE consent_templates SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("update consent template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, filter template.Filter) ([]*template.Template, error) {
	query := selectColumns + `
		WHERE ($1 = '' OR tenant_id = $1)
		  AND ($2 = '' OR product_id = $2)
		  AND ($3 = '' OR purpose = $3)
		ORDER BY product_id, purpose, version
	`
	rows, err := s.db.QueryContext(ctx, query, filter.TenantID, filter.ProductID, filter.Purpose)
	if err != nil {
		return nil, fmt.Errorf("query consent templates: %w", err)
	}
	defer rows.Close()

	var out []*template.Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent templates: %w", err)
	}
	return out, nil
}

const selectColumns = `
	SELECT id, tenant_id, product_id, purpose, template_type,
		   version, title, body_text, is_active, created_at
	FROM consent_templates`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*template.Template, error) {
	var (
		tmpl     template.Template
		tenantID sql.NullString
		title    sql.NullString
	)
	err := row.Scan(
		&tmpl.ID,
		&tenantID,
		&tmpl.ProductID,
		&tmpl.Purpose,
		&tmpl.TemplateType,
		&tmpl.Version,
		&title,
		&tmpl.BodyText,
		&tmpl.IsActive,
		&tmpl.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan consent template: %w", err)
	}
	tmpl.TenantID = tenantID.String
	tmpl.Title = title.String
	return &tmpl, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
