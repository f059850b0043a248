package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"consentd/internal/evidence"
	"consentd/pkg/platform/sentinel"
	txcontext "consentd/pkg/platform/tx"
)

// Postgres persists evidence transactions. Write-once fields are guarded with
// conditional updates ("... WHERE verified_at IS NULL") so concurrent verifies
// or claims cannot both succeed, regardless of application-level locking.
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

func (s *Postgres) Create(ctx context.Context, txn *evidence.Transaction) error {
	query := `
		INSERT INTO evidence_transactions (
			transaction_id, mobile_number, channel, application_number,
			code_hash, expires_at, verified_at, consent_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, NULL, $7)
		ON CONFLICT (transaction_id) DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		txn.TransactionID,
		txn.MobileNumber,
		string(txn.Channel),
		nullString(txn.ApplicationNumber),
		txn.CodeHash,
		txn.ExpiresAt,
		txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evidence transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, transactionID string) (*evidence.Transaction, error) {
	query := `
		SELECT transaction_id, mobile_number, channel, application_number,
			   code_hash, expires_at, verified_at, consent_id, created_at
		FROM evidence_transactions
		WHERE transaction_id = $1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, transactionID)

	var (
		txn        evidence.Transaction
		channel    string
		appNumber  sql.NullString
		verifiedAt sql.NullTime
		consentID  sql.NullString
	)
	err := row.Scan(
		&txn.TransactionID,
		&txn.MobileNumber,
		&channel,
		&appNumber,
		&txn.CodeHash,
		&txn.ExpiresAt,
		&verifiedAt,
		&consentID,
		&txn.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan evidence transaction: %w", err)
	}

	txn.Channel = evidence.Channel(channel)
	txn.ApplicationNumber = appNumber.String
	txn.ConsentID = consentID.String
	if verifiedAt.Valid {
		t := verifiedAt.Time
		txn.VerifiedAt = &t
	}
	return &txn, nil
}

// MarkVerified sets verified_at only when it is still NULL. A zero row count
// distinguishes "already verified" from "unknown transaction".
func (s *Postgres) MarkVerified(ctx context.Context, transactionID string, at time.Time) error {
	query := `
		UPDATE evidence_transactions
		SET verified_at = $2
		WHERE transaction_id = $1 AND verified_at IS NULL
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, transactionID, at)
	if err != nil {
		return fmt.Errorf("mark evidence transaction verified: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, ferr := s.Find(ctx, transactionID); errors.Is(ferr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

// LinkConsent sets consent_id only when it is still NULL.
func (s *Postgres) LinkConsent(ctx context.Context, transactionID, consentID string) error {
	query := `
		UPDATE evidence_transactions
		SET consent_id = $2
		WHERE transaction_id = $1 AND consent_id IS NULL
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, transactionID, consentID)
	if err != nil {
		return fmt.Errorf("link evidence transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, ferr := s.Find(ctx, transactionID); errors.Is(ferr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
