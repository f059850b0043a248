// Package ratelimit bounds OTP issuance per mobile number with an in-memory
// sliding window. Issuance is the abuse target in this flow; verification is
// already bounded by the transaction TTL and single-use rule.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks issuance timestamps per key inside a sliding window.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string][]time.Time
}

// New builds a limiter allowing limit issuances per key within window.
// A nil limiter allows everything, so wiring it stays optional.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		entries: make(map[string][]time.Time),
	}
}

// Allow records an issuance attempt for key and reports whether it is within
// the window allowance. Stale timestamps are pruned on access.
func (l *Limiter) Allow(key string, now time.Time) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.entries[key][:0]
	for _, ts := range l.entries[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}
