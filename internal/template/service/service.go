package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"consentd/internal/template"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/sentinel"
	"consentd/pkg/requestcontext"
)

// Store persists template versions. Versions in a group are append-only:
// CreateVersion assigns the next number itself and ignores any version on
// the passed template.
type Store interface {
	CreateVersion(ctx context.Context, tmpl *template.Template) (*template.Template, error)
	FindByID(ctx context.Context, id string) (*template.Template, error)
	FindActive(ctx context.Context, tenantID, productID, purpose string) (*template.Template, error)
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, filter template.Filter) ([]*template.Template, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateVersion(ctx context.Context, in template.CreateVersionInput) (*template.Template, error) {
	if strings.TrimSpace(in.ProductID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "product_id is required")
	}
	if strings.TrimSpace(in.Purpose) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "purpose is required")
	}
	if strings.TrimSpace(in.TemplateType) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "template_type is required")
	}
	if strings.TrimSpace(in.BodyText) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "body_text is required")
	}

	tmpl := &template.Template{
		ID:           uuid.NewString(),
		TenantID:     in.TenantID,
		ProductID:    in.ProductID,
		Purpose:      in.Purpose,
		TemplateType: in.TemplateType,
		Title:        in.Title,
		BodyText:     in.BodyText,
		IsActive:     in.IsActive,
		CreatedAt:    requestcontext.Now(ctx),
	}
	created, err := s.store.CreateVersion(ctx, tmpl)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create template version")
	}
	s.logger.InfoContext(ctx, "template version created",
		"template_id", created.ID,
		"product_id", created.ProductID,
		"purpose", created.Purpose,
		"version", created.Version,
	)
	return created, nil
}

// ResolveActive returns the highest active version for a product and purpose.
// A missing product is a caller error; a product with no active template is a
// configuration problem on our side and is reported as such.
func (s *Service) ResolveActive(ctx context.Context, tenantID, productID, purpose string) (*template.Template, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "product_id is required")
	}
	if strings.TrimSpace(purpose) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "purpose is required")
	}
	tmpl, err := s.store.FindActive(ctx, tenantID, productID, purpose)
	switch {
	case err == nil:
		return tmpl, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeConfiguration,
			"no active consent template for product "+productID+" and purpose "+purpose)
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolve active template")
	}
}

func (s *Service) Get(ctx context.Context, id string) (*template.Template, error) {
	tmpl, err := s.store.FindByID(ctx, id)
	switch {
	case err == nil:
		return tmpl, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "template not found")
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find template")
	}
}

// Deactivate retires a template version. Resolution simply stops considering
// it; historical consents keep pointing at it.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	err := s.store.SetActive(ctx, id, false)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "template not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "deactivate template")
	}
	s.logger.InfoContext(ctx, "template version deactivated", "template_id", id)
	return nil
}

func (s *Service) List(ctx context.Context, filter template.Filter) ([]*template.Template, error) {
	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list templates")
	}
	return out, nil
}

// Seed loads the demo tenant's templates when the store is empty: a retired
// v1 and the active v2 of the marketing consent text for the loan product.
func (s *Service) Seed(ctx context.Context) error {
	existing, err := s.store.List(ctx, template.Filter{TenantID: "DEMO_BANK"})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "seed templates")
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC()
	seeds := []*template.Template{
		{
			ID:           uuid.NewString(),
			TenantID:     "DEMO_BANK",
			ProductID:    "LOAN",
			Purpose:      "marketing",
			TemplateType: "consent_text",
			Title:        "Marketing communications consent",
			BodyText:     "I agree to receive marketing communications about loan products.",
			IsActive:     false,
			CreatedAt:    now,
		},
		{
			ID:           uuid.NewString(),
			TenantID:     "DEMO_BANK",
			ProductID:    "LOAN",
			Purpose:      "marketing",
			TemplateType: "consent_text",
			Title:        "Marketing communications consent",
			BodyText:     "I agree to receive marketing communications about loan products and related offers from DEMO_BANK and its partners.",
			IsActive:     true,
			CreatedAt:    now,
		},
	}
	for _, tmpl := range seeds {
		if _, err := s.store.CreateVersion(ctx, tmpl); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "seed templates")
		}
	}
	s.logger.InfoContext(ctx, "demo templates seeded", "tenant_id", "DEMO_BANK", "count", len(seeds))
	return nil
}
