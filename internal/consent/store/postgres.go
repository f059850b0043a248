package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"consentd/internal/consent"
	"consentd/pkg/platform/sentinel"
	txcontext "consentd/pkg/platform/tx"
)

// Postgres persists consent records. Revocation uses a conditional update
// on status so concurrent revokes of the same record resolve to one
// transition at the database. Writes run on the ambient transaction when
// one is in the context.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, c *consent.Consent) error {
	meta, err := json.Marshal(c.Meta)
	if err != nil {
		return fmt.Errorf("marshal consent meta: %w", err)
	}
	query := `
		INSERT INTO consents (
			id, subject_id, purpose, status,
			source, source_channel, actor_type,
			tenant_id, product_id, application_number, mobile_number,
			template_id, template_version, evidence_ref,
			meta, previous_consent_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
				$12, $13, $14, $15, $16, $17, $18)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		c.ID,
		c.SubjectID,
		c.Purpose,
		string(c.Status),
		nullString(c.Source),
		nullString(c.SourceChannel),
		nullString(c.ActorType),
		nullString(c.TenantID),
		nullString(c.ProductID),
		nullString(c.ApplicationNumber),
		nullString(c.MobileNumber),
		nullString(c.TemplateID),
		nullInt(c.TemplateVersion),
		nullString(c.EvidenceRef),
		meta,
		nullString(c.PreviousConsentID),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*consent.Consent, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectConsent+` WHERE id = $1`, id)
	c, err := scanConsent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return c, err
}

// SetRevoked transitions a granted record to revoked. Returns false when
// the record exists but is already revoked.
func (s *Postgres) SetRevoked(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE consents
		SET status = $3, updated_at = $2
		WHERE id = $1 AND status = $4
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		id, at, string(consent.StatusRevoked), string(consent.StatusGranted))
	if err != nil {
		return false, fmt.Errorf("revoke consent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke consent: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	if _, err := s.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Postgres) List(ctx context.Context, filter consent.Filter) ([]*consent.Consent, error) {
	query := selectConsent + `
		WHERE ($1 = '' OR subject_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, filter.SubjectID, string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("query consents: %w", err)
	}
	defer rows.Close()

	var out []*consent.Consent
	for rows.Next() {
		c, err := scanConsent(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return out, nil
}

const selectConsent = `
	SELECT id, subject_id, purpose, status,
		   source, source_channel, actor_type,
		   tenant_id, product_id, application_number, mobile_number,
		   template_id, template_version, evidence_ref,
		   meta, previous_consent_id, created_at, updated_at
	FROM consents`

func scanConsent(scan func(dest ...any) error) (*consent.Consent, error) {
	var (
		c          consent.Consent
		source     sql.NullString
		channel    sql.NullString
		actorType  sql.NullString
		tenantID   sql.NullString
		productID  sql.NullString
		appNumber  sql.NullString
		mobile     sql.NullString
		templateID sql.NullString
		version    sql.NullInt64
		evidence   sql.NullString
		meta       []byte
		previous   sql.NullString
	)
	err := scan(
		&c.ID, &c.SubjectID, &c.Purpose, &c.Status,
		&source, &channel, &actorType,
		&tenantID, &productID, &appNumber, &mobile,
		&templateID, &version, &evidence,
		&meta, &previous, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan consent: %w", err)
	}
	c.Source = source.String
	c.SourceChannel = channel.String
	c.ActorType = actorType.String
	c.TenantID = tenantID.String
	c.ProductID = productID.String
	c.ApplicationNumber = appNumber.String
	c.MobileNumber = mobile.String
	c.TemplateID = templateID.String
	c.TemplateVersion = int(version.Int64)
	c.EvidenceRef = evidence.String
	c.PreviousConsentID = previous.String
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &c.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal consent meta: %w", err)
		}
	}
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}
