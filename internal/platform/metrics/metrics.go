package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ConsentsGranted     *prometheus.CounterVec
	ConsentsRevoked     prometheus.Counter
	OTPIssued           *prometheus.CounterVec
	OTPVerified         *prometheus.CounterVec
	OTPFailures         *prometheus.CounterVec
	AuditEventsAppended *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// New creates all Prometheus metrics and registers them with reg. Production
// wiring passes prometheus.DefaultRegisterer; tests pass a fresh registry so
// multiple instances can coexist in one process.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConsentsGranted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_consents_granted_total",
			Help: "Total consents created, partitioned by ingestion path.",
		}, []string{"path"}),
		ConsentsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "consentd_consents_revoked_total",
			Help: "Total consents transitioned to revoked.",
		}),
		OTPIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_otp_issued_total",
			Help: "Total evidence transactions issued, partitioned by channel.",
		}, []string{"channel"}),
		OTPVerified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_otp_verified_total",
			Help: "Total successful OTP verifications, partitioned by channel.",
		}, []string{"channel"}),
		OTPFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_otp_failures_total",
			Help: "OTP verification failures, partitioned by reason.",
		}, []string{"reason"}),
		AuditEventsAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_audit_events_appended_total",
			Help: "Audit events appended, partitioned by action.",
		}, []string{"action"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consentd_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// IncrementConsentGranted records a consent creation on the given path
// ("direct", "customer", "branch"). Nil-safe so services can run without
// metrics in tests.
func (m *Metrics) IncrementConsentGranted(path string) {
	if m != nil {
		m.ConsentsGranted.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) IncrementConsentRevoked() {
	if m != nil {
		m.ConsentsRevoked.Inc()
	}
}

func (m *Metrics) IncrementOTPIssued(channel string) {
	if m != nil {
		m.OTPIssued.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) IncrementOTPVerified(channel string) {
	if m != nil {
		m.OTPVerified.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) IncrementOTPFailure(reason string) {
	if m != nil {
		m.OTPFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementAuditAppended(action string) {
	if m != nil {
		m.AuditEventsAppended.WithLabelValues(action).Inc()
	}
}
