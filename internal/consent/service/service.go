package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"consentd/internal/audit"
	"consentd/internal/consent"
	"consentd/internal/evidence"
	"consentd/internal/platform/metrics"
	"consentd/internal/template"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/sentinel"
	"consentd/pkg/requestcontext"
)

// Store persists consent records.
type Store interface {
	Create(ctx context.Context, c *consent.Consent) error
	FindByID(ctx context.Context, id string) (*consent.Consent, error)
	SetRevoked(ctx context.Context, id string, at time.Time) (bool, error)
	List(ctx context.Context, filter consent.Filter) ([]*consent.Consent, error)
}

// EvidenceManager is the slice of the evidence service the engine needs:
// claiming a verified transaction before a grant and linking it afterwards.
type EvidenceManager interface {
	ClaimForConsent(ctx context.Context, transactionID string, expectedChannel evidence.Channel) (*evidence.Transaction, error)
	LinkConsent(ctx context.Context, transactionID, consentID string) error
}

// TemplateResolver resolves the active wording for a classification key.
type TemplateResolver interface {
	ResolveActive(ctx context.Context, tenantID, productID, purpose string) (*template.Template, error)
}

// AuditRecorder appends one immutable event per lifecycle transition.
type AuditRecorder interface {
	Append(ctx context.Context, c *consent.Consent, action audit.Action, actor string, details map[string]any) (*audit.Event, error)
}

// Service is the consent lifecycle engine. Every successful transition
// appends exactly one audit event inside the same transaction boundary as
// the record mutation.
type Service struct {
	store     Store
	evidence  EvidenceManager
	templates TemplateResolver
	auditor   AuditRecorder
	tx        Tx
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, ev EvidenceManager, templates TemplateResolver, auditor AuditRecorder, tx Tx, opts ...Option) *Service {
	s := &Service{
		store:     store,
		evidence:  ev,
		templates: templates,
		auditor:   auditor,
		tx:        tx,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GrantDirectInput carries a grant that needs no evidence transaction and
// no template linkage. Purpose must already be alias-resolved by the caller.
type GrantDirectInput struct {
	SubjectID         string
	Purpose           string
	Source            string
	SourceChannel     string
	ActorType         string
	TenantID          string
	ProductID         string
	ApplicationNumber string
	MobileNumber      string
	Meta              map[string]any
	PreviousConsentID string
}

func (s *Service) GrantDirect(ctx context.Context, in GrantDirectInput) (*consent.Consent, error) {
	subject := strings.TrimSpace(in.SubjectID)
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	purpose := strings.TrimSpace(in.Purpose)
	if purpose == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "purpose is required")
	}

	now := requestcontext.Now(ctx)
	c := &consent.Consent{
		ID:                uuid.NewString(),
		SubjectID:         subject,
		Purpose:           purpose,
		Status:            consent.StatusGranted,
		Source:            in.Source,
		SourceChannel:     in.SourceChannel,
		ActorType:         in.ActorType,
		TenantID:          in.TenantID,
		ProductID:         in.ProductID,
		ApplicationNumber: in.ApplicationNumber,
		MobileNumber:      in.MobileNumber,
		Meta:              in.Meta,
		PreviousConsentID: in.PreviousConsentID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	actor := requestcontext.Actor(ctx)
	err := s.tx.RunInTx(ctx, c.ID, func(ctx context.Context) error {
		if err := s.store.Create(ctx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create consent")
		}
		_, err := s.auditor.Append(ctx, c, audit.ActionGranted, actor, in.Meta)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementConsentGranted("direct")
	s.logger.InfoContext(ctx, "consent granted",
		"consent_id", c.ID,
		"subject_id", c.SubjectID,
		"purpose", c.Purpose,
		"path", "direct",
	)
	return c, nil
}

// GrantFromEvidenceInput carries an evidence-gated grant. Template
// resolution is mandatory on this path, so tenant and product classify the
// lookup and purpose selects the wording.
type GrantFromEvidenceInput struct {
	TransactionID   string
	ExpectedChannel evidence.Channel
	TenantID        string
	ProductID       string
	Purpose         string
	Source          string
	SourceChannel   string
	ActorType       string
	Actor           string
	Meta            map[string]any
}

// GrantFromEvidence claims a verified evidence transaction, resolves the
// active template, creates the consent, and links the transaction, all as
// one atomic unit. A failure at any step leaves no partial state: the
// transaction stays claimable and no orphan consent or audit row survives.
func (s *Service) GrantFromEvidence(ctx context.Context, in GrantFromEvidenceInput) (*consent.Consent, error) {
	if strings.TrimSpace(in.TransactionID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "transaction_id is required")
	}
	if strings.TrimSpace(in.Purpose) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "purpose is required")
	}

	actor := in.Actor
	if actor == "" {
		actor = requestcontext.Actor(ctx)
	}
	var c *consent.Consent
	err := s.tx.RunInTx(ctx, in.TransactionID, func(ctx context.Context) error {
		claimed, err := s.evidence.ClaimForConsent(ctx, in.TransactionID, in.ExpectedChannel)
		if err != nil {
			return err
		}
		subject := claimed.SubjectID()
		if subject == "" {
			return dErrors.New(dErrors.CodeValidation, "evidence transaction carries no subject identity")
		}

		tmpl, err := s.templates.ResolveActive(ctx, in.TenantID, in.ProductID, in.Purpose)
		if err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		c = &consent.Consent{
			ID:                uuid.NewString(),
			SubjectID:         subject,
			Purpose:           in.Purpose,
			Status:            consent.StatusGranted,
			Source:            in.Source,
			SourceChannel:     in.SourceChannel,
			ActorType:         in.ActorType,
			TenantID:          in.TenantID,
			ProductID:         in.ProductID,
			ApplicationNumber: claimed.ApplicationNumber,
			MobileNumber:      claimed.MobileNumber,
			TemplateID:        tmpl.ID,
			TemplateVersion:   tmpl.Version,
			EvidenceRef:       claimed.TransactionID,
			Meta:              in.Meta,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.store.Create(ctx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create consent")
		}
		if _, err := s.auditor.Append(ctx, c, audit.ActionGranted, actor, in.Meta); err != nil {
			return err
		}
		return s.evidence.LinkConsent(ctx, claimed.TransactionID, c.ID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementConsentGranted("evidence")
	s.logger.InfoContext(ctx, "consent granted",
		"consent_id", c.ID,
		"subject_id", c.SubjectID,
		"purpose", c.Purpose,
		"evidence_ref", c.EvidenceRef,
		"template_version", c.TemplateVersion,
		"path", "evidence",
	)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*consent.Consent, error) {
	c, err := s.store.FindByID(ctx, id)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "consent not found")
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find consent")
	}
}

func (s *Service) List(ctx context.Context, filter consent.Filter) ([]*consent.Consent, error) {
	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list consents")
	}
	return out, nil
}

// Revoke transitions a consent to its terminal state. Revoking an already
// revoked consent is an idempotent no-op: the current record comes back and
// no second audit event is written.
func (s *Service) Revoke(ctx context.Context, id, actor string) (*consent.Consent, error) {
	if actor == "" {
		actor = requestcontext.Actor(ctx)
	}

	var c *consent.Consent
	err := s.tx.RunInTx(ctx, id, func(ctx context.Context) error {
		changed, err := s.store.SetRevoked(ctx, id, requestcontext.Now(ctx))
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "consent not found")
		case err != nil:
			return dErrors.Wrap(err, dErrors.CodeInternal, "revoke consent")
		}

		c, err = s.store.FindByID(ctx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "find consent")
		}
		if !changed {
			return nil
		}
		if _, err := s.auditor.Append(ctx, c, audit.ActionRevoked, actor, map[string]any{"reason": "user_action"}); err != nil {
			return err
		}
		s.metrics.IncrementConsentRevoked()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "consent revoked",
		"consent_id", id,
		"actor", actor,
	)
	return c, nil
}
