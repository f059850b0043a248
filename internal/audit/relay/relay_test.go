package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/internal/audit"
)

type capturingPublisher struct {
	mu       sync.Mutex
	keys     []string
	payloads [][]byte
	fail     bool
}

func (p *capturingPublisher) Publish(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, value)
	return nil
}

func (p *capturingPublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

func TestWorker(t *testing.T) {
	t.Run("publishes events keyed by consent id", func(t *testing.T) {
		pub := &capturingPublisher{}
		inbox := make(chan audit.Event, 4)
		worker := NewWorker(pub, inbox, slog.Default())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = worker.Run(ctx)
		}()

		inbox <- audit.Event{
			ID:        "ev-1",
			ConsentID: "c-1",
			Action:    audit.ActionGranted,
			Actor:     "web_form",
			Purpose:   "marketing",
			Timestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		}

		require.Eventually(t, func() bool { return pub.published() == 1 }, time.Second, 5*time.Millisecond)
		cancel()
		<-done

		assert.Equal(t, "c-1", pub.keys[0])
		var wire map[string]any
		require.NoError(t, json.Unmarshal(pub.payloads[0], &wire))
		assert.Equal(t, "granted", wire["action"])
		assert.Equal(t, "marketing", wire["purpose"])
		_, hasMobile := wire["mobile_number"]
		assert.False(t, hasMobile)
	})

	t.Run("publish failure does not stop the worker", func(t *testing.T) {
		pub := &capturingPublisher{fail: true}
		inbox := make(chan audit.Event, 4)
		worker := NewWorker(pub, inbox, slog.Default())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = worker.Run(ctx)
		}()

		inbox <- audit.Event{ID: "ev-1", ConsentID: "c-1"}
		inbox <- audit.Event{ID: "ev-2", ConsentID: "c-2"}

		require.Eventually(t, func() bool { return len(inbox) == 0 }, time.Second, 5*time.Millisecond)
		cancel()
		<-done
		assert.Zero(t, pub.published())
	})
}
