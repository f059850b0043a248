package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"consentd/internal/consent"
	"consentd/pkg/platform/sentinel"
)

// Memory keeps consent records in a map and returns copies, so callers can
// never mutate stored state except through store methods.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*consent.Consent
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]*consent.Consent)}
}

func (s *Memory) Create(_ context.Context, c *consent.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[c.ID]; ok {
		return sentinel.ErrConflict
	}
	s.records[c.ID] = copyConsent(c)
	return nil
}

func (s *Memory) FindByID(_ context.Context, id string) (*consent.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyConsent(c), nil
}

// SetRevoked transitions the record to its terminal state. Returns false
// without touching the record when it is already revoked, so two racing
// revokes produce at most one observable transition.
func (s *Memory) SetRevoked(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.records[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if c.Status == consent.StatusRevoked {
		return false, nil
	}
	c.Status = consent.StatusRevoked
	c.UpdatedAt = at
	return true, nil
}

func (s *Memory) List(_ context.Context, filter consent.Filter) ([]*consent.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*consent.Consent
	for _, c := range s.records {
		if filter.SubjectID != "" && c.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, copyConsent(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func copyConsent(c *consent.Consent) *consent.Consent {
	cp := *c
	if c.Meta != nil {
		cp.Meta = make(map[string]any, len(c.Meta))
		for k, v := range c.Meta {
			cp.Meta[k] = v
		}
	}
	return &cp
}
