package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("allows up to limit within window", func(t *testing.T) {
		l := New(3, time.Minute)
		for i := 0; i < 3; i++ {
			assert.True(t, l.Allow("9999999999", base.Add(time.Duration(i)*time.Second)))
		}
		assert.False(t, l.Allow("9999999999", base.Add(4*time.Second)))
	})

	t.Run("window slides", func(t *testing.T) {
		l := New(1, time.Minute)
		assert.True(t, l.Allow("m", base))
		assert.False(t, l.Allow("m", base.Add(30*time.Second)))
		assert.True(t, l.Allow("m", base.Add(61*time.Second)))
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := New(1, time.Minute)
		assert.True(t, l.Allow("a", base))
		assert.True(t, l.Allow("b", base))
	})

	t.Run("nil limiter allows everything", func(t *testing.T) {
		var l *Limiter
		assert.True(t, l.Allow("anything", base))
	})
}
