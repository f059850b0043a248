package store

import (
	"context"
	"sort"
	"sync"

	"consentd/internal/audit"
)

// Memory keeps events in insertion order. Appends copy the event so later
// caller mutations cannot reach the stored row.
type Memory struct {
	mu     sync.RWMutex
	events []*audit.Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Append(ctx context.Context, ev *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, copyEvent(ev))
	return nil
}

func (s *Memory) List(ctx context.Context, filter audit.Filter) ([]*audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*audit.Event
	for _, ev := range s.events {
		if filter.ConsentID != "" && ev.ConsentID != filter.ConsentID {
			continue
		}
		if filter.MobileNumber != "" && ev.MobileNumber != filter.MobileNumber {
			continue
		}
		if filter.ApplicationNumber != "" && ev.ApplicationNumber != filter.ApplicationNumber {
			continue
		}
		out = append(out, copyEvent(ev))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func copyEvent(ev *audit.Event) *audit.Event {
	cp := *ev
	if ev.Details != nil {
		cp.Details = make(map[string]any, len(ev.Details))
		for k, v := range ev.Details {
			cp.Details[k] = v
		}
	}
	return &cp
}
