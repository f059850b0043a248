package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/internal/audit"
	"consentd/internal/audit/store"
	"consentd/internal/consent"
	"consentd/pkg/requestcontext"
)

func grantedConsent() *consent.Consent {
	return &consent.Consent{
		ID:                "c-1",
		SubjectID:         "APP12345",
		Purpose:           "marketing",
		Status:            consent.StatusGranted,
		ProductID:         "LOAN",
		SourceChannel:     "customer_login",
		ActorType:         "customer",
		ApplicationNumber: "APP12345",
		MobileNumber:      "9999999999",
		EvidenceRef:       "customer_login-1234",
	}
}

func TestAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("freezes the consent's context into the event", func(t *testing.T) {
		rec := New(store.NewMemory())
		now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

		c := grantedConsent()
		ev, err := rec.Append(requestcontext.WithTime(ctx, now), c, audit.ActionGranted, "web_form", nil)
		require.NoError(t, err)
		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, now, ev.Timestamp)
		assert.Equal(t, "LOAN", ev.ProductID)
		assert.Equal(t, "customer_login-1234", ev.EvidenceRef)

		// Later changes to the record must not reach the stored event.
		c.Purpose = "credit_scoring"
		got, err := rec.List(ctx, audit.Filter{ConsentID: "c-1"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "marketing", got[0].Purpose)
	})

	t.Run("relays a copy without blocking when the buffer is full", func(t *testing.T) {
		relay := make(chan audit.Event, 1)
		rec := New(store.NewMemory(), WithRelay(relay))

		_, err := rec.Append(ctx, grantedConsent(), audit.ActionGranted, "web_form", nil)
		require.NoError(t, err)
		_, err = rec.Append(ctx, grantedConsent(), audit.ActionRevoked, "ops", nil)
		require.NoError(t, err)

		relayed := <-relay
		assert.Equal(t, audit.ActionGranted, relayed.Action)

		got, err := rec.List(ctx, audit.Filter{ConsentID: "c-1"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("filters combine with AND and order is timestamp ascending", func(t *testing.T) {
		rec := New(store.NewMemory())
		base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

		first := grantedConsent()
		_, err := rec.Append(requestcontext.WithTime(ctx, base.Add(time.Minute)), first, audit.ActionRevoked, "ops", nil)
		require.NoError(t, err)
		_, err = rec.Append(requestcontext.WithTime(ctx, base), first, audit.ActionGranted, "web_form", nil)
		require.NoError(t, err)

		other := grantedConsent()
		other.ID = "c-2"
		other.MobileNumber = "8888888888"
		_, err = rec.Append(requestcontext.WithTime(ctx, base), other, audit.ActionGranted, "web_form", nil)
		require.NoError(t, err)

		got, err := rec.List(ctx, audit.Filter{
			MobileNumber:      "9999999999",
			ApplicationNumber: "APP12345",
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, audit.ActionGranted, got[0].Action)
		assert.Equal(t, audit.ActionRevoked, got[1].Action)
	})
}
