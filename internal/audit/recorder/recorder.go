package recorder

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"consentd/internal/audit"
	"consentd/internal/consent"
	"consentd/internal/platform/metrics"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/requestcontext"
)

// Store is the append-only persistence behind the recorder. Append must be
// durable before it returns; there is no update or delete.
type Store interface {
	Append(ctx context.Context, ev *audit.Event) error
	List(ctx context.Context, filter audit.Filter) ([]*audit.Event, error)
}

// Recorder writes the audit trail. Persistence is fail-closed: when the
// store rejects the event the lifecycle transition that produced it must
// not proceed. Relay to the compliance topic is fail-open and happens off
// the request path.
type Recorder struct {
	store   Store
	relay   chan<- audit.Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Recorder)

func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithRelay attaches a buffered channel feeding the relay worker. Events
// that do not fit are dropped with a warning rather than blocking a grant.
func WithRelay(relay chan<- audit.Event) Option {
	return func(r *Recorder) { r.relay = relay }
}

func New(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Append freezes the consent's business context into a new event and
// persists it. The snapshot is taken from the record as passed in; callers
// append after applying a transition so the event reflects the transition's
// outcome.
func (r *Recorder) Append(ctx context.Context, c *consent.Consent, action audit.Action, actor string, details map[string]any) (*audit.Event, error) {
	ev := &audit.Event{
		ID:                uuid.NewString(),
		ConsentID:         c.ID,
		Action:            action,
		Actor:             actor,
		ProductID:         c.ProductID,
		Purpose:           c.Purpose,
		SourceChannel:     c.SourceChannel,
		ActorType:         c.ActorType,
		ApplicationNumber: c.ApplicationNumber,
		MobileNumber:      c.MobileNumber,
		EvidenceRef:       c.EvidenceRef,
		Details:           details,
		Timestamp:         requestcontext.Now(ctx),
	}
	if err := r.store.Append(ctx, ev); err != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"consent_id", c.ID,
			"action", action,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "append audit event")
	}
	r.metrics.IncrementAuditAppended(string(action))

	if r.relay != nil {
		select {
		case r.relay <- *ev:
		default:
			r.logger.WarnContext(ctx, "audit relay buffer full, event not relayed",
				"event_id", ev.ID,
				"consent_id", c.ID,
			)
		}
	}
	return ev, nil
}

func (r *Recorder) List(ctx context.Context, filter audit.Filter) ([]*audit.Event, error) {
	out, err := r.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit events")
	}
	return out, nil
}
