package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewInstancesAreIndependent builds two instances in one process, as test
// suites constructing a router per test do. Registration must stay scoped to
// the registry each instance was given.
func TestNewInstancesAreIndependent(t *testing.T) {
	first := New(prometheus.NewRegistry())

	require.NotPanics(t, func() {
		second := New(prometheus.NewRegistry())
		second.IncrementConsentGranted("direct")
	})

	first.IncrementConsentGranted("direct")
	first.IncrementOTPIssued("customer_login")
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncrementConsentGranted("direct")
		m.IncrementConsentRevoked()
		m.IncrementOTPIssued("customer_login")
		m.IncrementOTPVerified("customer_login")
		m.IncrementOTPFailure("expired")
		m.IncrementAuditAppended("granted")
	})
}
