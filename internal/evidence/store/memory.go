package store

import (
	"context"
	"sync"
	"time"

	"consentd/internal/evidence"
	"consentd/pkg/platform/sentinel"
)

// Memory keeps transactions in a map. It favors clarity over performance and
// backs unit tests and demo deployments.
type Memory struct {
	mu   sync.RWMutex
	txns map[string]*evidence.Transaction
}

func NewMemory() *Memory {
	return &Memory{txns: make(map[string]*evidence.Transaction)}
}

func (s *Memory) Create(_ context.Context, txn *evidence.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txns[txn.TransactionID]; ok {
		return sentinel.ErrConflict
	}
	cp := *txn
	s.txns[txn.TransactionID] = &cp
	return nil
}

func (s *Memory) Find(_ context.Context, transactionID string) (*evidence.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.txns[transactionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *txn
	return &cp, nil
}

// MarkVerified sets verified_at if and only if it is still unset, so two
// concurrent verifies cannot both succeed.
func (s *Memory) MarkVerified(_ context.Context, transactionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[transactionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if txn.VerifiedAt != nil {
		return sentinel.ErrAlreadyUsed
	}
	ts := at
	txn.VerifiedAt = &ts
	return nil
}

// LinkConsent sets consent_id if and only if it is still unset, guaranteeing
// at-most-once consumption.
func (s *Memory) LinkConsent(_ context.Context, transactionID, consentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[transactionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if txn.ConsentID != "" {
		return sentinel.ErrAlreadyUsed
	}
	txn.ConsentID = consentID
	return nil
}
