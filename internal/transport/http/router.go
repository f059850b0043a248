// Package httptransport assembles the HTTP API: the open ingestion and
// consent endpoints, the operator-only management surface, and the
// operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "consentd/internal/audit/handler"
	authhandler "consentd/internal/auth/handler"
	consenthandler "consentd/internal/consent/handler"
	ingesthandler "consentd/internal/ingest/handler"
	"consentd/internal/platform/metrics"
	"consentd/internal/platform/middleware"
	templatehandler "consentd/internal/template/handler"
)

// Dependencies carries the handlers and platform pieces the router mounts.
type Dependencies struct {
	Consents  *consenthandler.Handler
	Ingest    *ingesthandler.Handler
	Audit     *audithandler.Handler
	Templates *templatehandler.Handler
	Auth      *authhandler.Handler
	Validator middleware.JWTValidator
	Health    func() error
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

const requestTimeout = 30 * time.Second

// NewRouter wires the full API. Ingestion and consent routes are gated by
// OTP evidence rather than operator tokens; template management and the
// operator identity endpoint require a valid token.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Actor)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", handleHealth(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Latency(deps.Metrics, "api_v1"))

		deps.Consents.Register(r)
		deps.Ingest.Register(r)
		deps.Audit.Register(r)
		deps.Auth.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
			deps.Templates.Register(r)
			deps.Auth.RegisterProtected(r)
		})
	})

	return r
}

func handleHealth(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
