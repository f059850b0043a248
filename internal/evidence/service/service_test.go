package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/internal/evidence"
	"consentd/internal/evidence/ratelimit"
	"consentd/internal/evidence/store"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/requestcontext"
)

const testTTL = 5 * time.Minute

func newService(opts ...Option) *Service {
	return New(store.NewMemory(), testTTL, opts...)
}

func issueVerified(t *testing.T, svc *Service, ctx context.Context) *evidence.Transaction {
	t.Helper()
	txn, code, err := svc.Issue(ctx, "9999999999", evidence.ChannelCustomerLogin, "APP12345")
	require.NoError(t, err)
	verified, err := svc.Verify(ctx, txn.TransactionID, code, evidence.ChannelCustomerLogin)
	require.NoError(t, err)
	return verified
}

func TestIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("issues channel-prefixed transaction with TTL", func(t *testing.T) {
		svc := newService()
		now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(ctx, now)

		txn, code, err := svc.Issue(ctx, "9999999999", evidence.ChannelCustomerLogin, "")
		require.NoError(t, err)
		assert.Contains(t, txn.TransactionID, "customer_login-")
		assert.Equal(t, now.Add(testTTL), txn.ExpiresAt)
		assert.Len(t, code, 6)
		assert.NotEqual(t, code, txn.CodeHash)
		assert.Nil(t, txn.VerifiedAt)
	})

	t.Run("requires mobile number", func(t *testing.T) {
		_, _, err := newService().Issue(ctx, "", evidence.ChannelCustomerLogin, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects unknown channel", func(t *testing.T) {
		_, _, err := newService().Issue(ctx, "9999999999", evidence.Channel("carrier_pigeon"), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("enforces per-mobile issuance limit", func(t *testing.T) {
		svc := newService(WithLimiter(ratelimit.New(1, time.Hour)))
		_, _, err := svc.Issue(ctx, "8888888888", evidence.ChannelCustomerLogin, "")
		require.NoError(t, err)
		_, _, err = svc.Issue(ctx, "8888888888", evidence.ChannelCustomerLogin, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("verifies with correct code exactly once", func(t *testing.T) {
		svc := newService()
		txn, code, err := svc.Issue(ctx, "9999999999", evidence.ChannelCustomerLogin, "")
		require.NoError(t, err)

		verified, err := svc.Verify(ctx, txn.TransactionID, code, evidence.ChannelCustomerLogin)
		require.NoError(t, err)
		require.NotNil(t, verified.VerifiedAt)

		// Second verify fails with conflict regardless of code correctness.
		_, err = svc.Verify(ctx, txn.TransactionID, code, evidence.ChannelCustomerLogin)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := newService().Verify(ctx, "customer_login-000", "123456", evidence.ChannelCustomerLogin)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("channel mismatch", func(t *testing.T) {
		svc := newService()
		txn, code, err := svc.Issue(ctx, "9999999999", evidence.ChannelBranchConsent, "")
		require.NoError(t, err)

		_, err = svc.Verify(ctx, txn.TransactionID, code, evidence.ChannelCustomerLogin)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		// The failed attempt did not mutate the transaction.
		verified, err := svc.Verify(ctx, txn.TransactionID, code, evidence.ChannelBranchConsent)
		require.NoError(t, err)
		assert.NotNil(t, verified.VerifiedAt)
	})

	t.Run("expired transaction fails even with correct code", func(t *testing.T) {
		svc := newService()
		issued := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
		txn, code, err := svc.Issue(requestcontext.WithTime(ctx, issued), "9999999999", evidence.ChannelCustomerLogin, "")
		require.NoError(t, err)

		later := requestcontext.WithTime(ctx, issued.Add(testTTL))
		_, err = svc.Verify(later, txn.TransactionID, code, evidence.ChannelCustomerLogin)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))
	})

	t.Run("incorrect code leaves transaction retryable", func(t *testing.T) {
		svc := newService()
		txn, code, err := svc.Issue(ctx, "9999999999", evidence.ChannelCustomerLogin, "")
		require.NoError(t, err)

		_, err = svc.Verify(ctx, txn.TransactionID, "000000", evidence.ChannelCustomerLogin)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = svc.Verify(ctx, txn.TransactionID, code, evidence.ChannelCustomerLogin)
		require.NoError(t, err)
	})
}

func TestClaimForConsent(t *testing.T) {
	ctx := context.Background()

	t.Run("returns verified unconsumed transaction unmutated", func(t *testing.T) {
		svc := newService()
		verified := issueVerified(t, svc, ctx)

		claimed, err := svc.ClaimForConsent(ctx, verified.TransactionID, evidence.ChannelCustomerLogin)
		require.NoError(t, err)
		assert.Empty(t, claimed.ConsentID)
		assert.Equal(t, "APP12345", claimed.SubjectID())
	})

	t.Run("rejects unverified transaction", func(t *testing.T) {
		svc := newService()
		txn, _, err := svc.Issue(ctx, "9999999999", evidence.ChannelCustomerLogin, "")
		require.NoError(t, err)

		_, err = svc.ClaimForConsent(ctx, txn.TransactionID, evidence.ChannelCustomerLogin)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("rejects consumed transaction", func(t *testing.T) {
		svc := newService()
		verified := issueVerified(t, svc, ctx)
		require.NoError(t, svc.LinkConsent(ctx, verified.TransactionID, "consent-1"))

		_, err := svc.ClaimForConsent(ctx, verified.TransactionID, evidence.ChannelCustomerLogin)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestLinkConsentIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	verified := issueVerified(t, svc, ctx)

	require.NoError(t, svc.LinkConsent(ctx, verified.TransactionID, "consent-1"))
	err := svc.LinkConsent(ctx, verified.TransactionID, "consent-2")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}
