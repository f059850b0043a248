package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "consentd/pkg/domain-errors"
	txcontext "consentd/pkg/platform/tx"
)

const consentTxTimeout = 5 * time.Second

// consentPostgresTx runs grant and revoke units of work inside a database
// transaction. The stores pick the transaction up from the context, so the
// consent insert, audit append, and evidence link commit or roll back
// together. The key parameter is unused here; row-level locking does the
// serialization the in-memory variant gets from its shard locks.
type consentPostgresTx struct {
	db *sql.DB
}

func newConsentPostgresTx(db *sql.DB) *consentPostgresTx {
	return &consentPostgresTx{db: db}
}

func (t *consentPostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, consentTxTimeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}
