// Package relay forwards persisted audit events to the compliance Kafka
// topic. Delivery is best-effort: the durable copy already lives in the
// audit store, so a failed produce is logged and skipped, never retried
// into the request path.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"consentd/internal/audit"
)

// Publisher sends one serialized event to the topic.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// KafkaPublisher produces to a single topic with synchronous acks.
type KafkaPublisher struct {
	client *kgo.Client
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, value []byte) error {
	record := &kgo.Record{Key: []byte(key), Value: value}
	return p.client.ProduceSync(ctx, record).FirstErr()
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// Worker consumes audit events from the recorder's relay channel and
// publishes them. Keyed by consent id so per-consent ordering survives
// partitioning.
type Worker struct {
	publisher Publisher
	inbox     <-chan audit.Event
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-w.inbox:
			payload, err := json.Marshal(wireEvent(ev))
			if err != nil {
				w.logger.ErrorContext(ctx, "audit relay marshal failed",
					"event_id", ev.ID,
					"error", err,
				)
				continue
			}
			if err := w.publisher.Publish(ctx, ev.ConsentID, payload); err != nil {
				w.logger.ErrorContext(ctx, "audit relay publish failed",
					"event_id", ev.ID,
					"consent_id", ev.ConsentID,
					"error", err,
				)
			}
		}
	}
}

type relayedEvent struct {
	ID                string         `json:"id"`
	ConsentID         string         `json:"consent_id"`
	Action            string         `json:"action"`
	Actor             string         `json:"actor"`
	ProductID         string         `json:"product_id,omitempty"`
	Purpose           string         `json:"purpose"`
	SourceChannel     string         `json:"source_channel,omitempty"`
	ActorType         string         `json:"actor_type,omitempty"`
	ApplicationNumber string         `json:"application_number,omitempty"`
	MobileNumber      string         `json:"mobile_number,omitempty"`
	EvidenceRef       string         `json:"evidence_ref,omitempty"`
	Details           map[string]any `json:"details,omitempty"`
	Timestamp         time.Time      `json:"timestamp"`
}

func wireEvent(ev audit.Event) relayedEvent {
	return relayedEvent{
		ID:                ev.ID,
		ConsentID:         ev.ConsentID,
		Action:            string(ev.Action),
		Actor:             ev.Actor,
		ProductID:         ev.ProductID,
		Purpose:           ev.Purpose,
		SourceChannel:     ev.SourceChannel,
		ActorType:         ev.ActorType,
		ApplicationNumber: ev.ApplicationNumber,
		MobileNumber:      ev.MobileNumber,
		EvidenceRef:       ev.EvidenceRef,
		Details:           ev.Details,
		Timestamp:         ev.Timestamp,
	}
}
