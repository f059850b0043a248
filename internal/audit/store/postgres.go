package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"consentd/internal/audit"
	txcontext "consentd/pkg/platform/tx"
)

// Postgres persists audit events. The table carries no UPDATE or DELETE
// paths; appends run on the ambient transaction when one is in the context
// so an event commits or rolls back with the transition that produced it.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Append(ctx context.Context, ev *audit.Event) error {
	details, err := json.Marshal(ev.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	query := `
		INSERT INTO audit_events (
			id, consent_id, action, actor,
			product_id, purpose, source_channel, actor_type,
			application_number, mobile_number, evidence_ref,
			details, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		ev.ID,
		ev.ConsentID,
		string(ev.Action),
		ev.Actor,
		nullString(ev.ProductID),
		ev.Purpose,
		nullString(ev.SourceChannel),
		nullString(ev.ActorType),
		nullString(ev.ApplicationNumber),
		nullString(ev.MobileNumber),
		nullString(ev.EvidenceRef),
		details,
		ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, filter audit.Filter) ([]*audit.Event, error) {
	query := `
		SELECT id, consent_id, action, actor,
			   product_id, purpose, source_channel, actor_type,
			   application_number, mobile_number, evidence_ref,
			   details, created_at
		FROM audit_events
		WHERE ($1 = '' OR consent_id = $1)
		  AND ($2 = '' OR mobile_number = $2)
		  AND ($3 = '' OR application_number = $3)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query,
		filter.ConsentID, filter.MobileNumber, filter.ApplicationNumber)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []*audit.Event
	for rows.Next() {
		var (
			ev          audit.Event
			productID   sql.NullString
			channel     sql.NullString
			actorType   sql.NullString
			appNumber   sql.NullString
			mobile      sql.NullString
			evidenceRef sql.NullString
			details     []byte
		)
		err := rows.Scan(
			&ev.ID, &ev.ConsentID, &ev.Action, &ev.Actor,
			&productID, &ev.Purpose, &channel, &actorType,
			&appNumber, &mobile, &evidenceRef,
			&details, &ev.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.ProductID = productID.String
		ev.SourceChannel = channel.String
		ev.ActorType = actorType.String
		ev.ApplicationNumber = appNumber.String
		ev.MobileNumber = mobile.String
		ev.EvidenceRef = evidenceRef.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &ev.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
