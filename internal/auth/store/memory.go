package store

import (
	"context"
	"sync"

	"consentd/internal/auth"
	"consentd/pkg/platform/sentinel"
)

// Memory holds the operator accounts. The operator population is tiny and
// seeded at startup, so no database table backs it.
type Memory struct {
	mu        sync.RWMutex
	operators map[string]*auth.Operator
}

func NewMemory() *Memory {
	return &Memory{operators: make(map[string]*auth.Operator)}
}

func (s *Memory) Create(_ context.Context, op *auth.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.operators[op.Username]; ok {
		return sentinel.ErrConflict
	}
	cp := *op
	s.operators[op.Username] = &cp
	return nil
}

func (s *Memory) FindByUsername(_ context.Context, username string) (*auth.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.operators[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *op
	return &cp, nil
}
