package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/internal/consent"
	"consentd/pkg/platform/sentinel"
)

func granted(id string, createdAt time.Time) *consent.Consent {
	return &consent.Consent{
		ID:        id,
		SubjectID: "APP12345",
		Purpose:   "marketing",
		Status:    consent.StatusGranted,
		Meta:      map[string]any{"campaign": "summer"},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestMemoryCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("rejects duplicate ids", func(t *testing.T) {
		s := NewMemory()
		require.NoError(t, s.Create(ctx, granted("c-1", now)))
		assert.ErrorIs(t, s.Create(ctx, granted("c-1", now)), sentinel.ErrConflict)
	})

	t.Run("stores and returns copies", func(t *testing.T) {
		s := NewMemory()
		in := granted("c-1", now)
		require.NoError(t, s.Create(ctx, in))
		in.Meta["campaign"] = "winter"

		got, err := s.FindByID(ctx, "c-1")
		require.NoError(t, err)
		assert.Equal(t, "summer", got.Meta["campaign"])

		got.Purpose = "mutated"
		again, err := s.FindByID(ctx, "c-1")
		require.NoError(t, err)
		assert.Equal(t, "marketing", again.Purpose)
	})
}

func TestMemorySetRevoked(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("transitions once", func(t *testing.T) {
		s := NewMemory()
		require.NoError(t, s.Create(ctx, granted("c-1", now)))

		changed, err := s.SetRevoked(ctx, "c-1", now.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = s.SetRevoked(ctx, "c-1", now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.False(t, changed)

		got, err := s.FindByID(ctx, "c-1")
		require.NoError(t, err)
		assert.Equal(t, consent.StatusRevoked, got.Status)
		assert.Equal(t, now.Add(time.Hour), got.UpdatedAt)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := NewMemory().SetRevoked(ctx, "nope", now)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("concurrent revokes observe one transition", func(t *testing.T) {
		s := NewMemory()
		require.NoError(t, s.Create(ctx, granted("c-1", now)))

		var wg sync.WaitGroup
		wins := make(chan bool, 32)
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				changed, err := s.SetRevoked(ctx, "c-1", now.Add(time.Hour))
				assert.NoError(t, err)
				wins <- changed
			}()
		}
		wg.Wait()
		close(wins)

		total := 0
		for changed := range wins {
			if changed {
				total++
			}
		}
		assert.Equal(t, 1, total)
	})
}

func TestMemoryList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	s := NewMemory()
	require.NoError(t, s.Create(ctx, granted("c-2", now.Add(time.Minute))))
	require.NoError(t, s.Create(ctx, granted("c-1", now)))
	other := granted("c-3", now)
	other.SubjectID = "OTHER"
	require.NoError(t, s.Create(ctx, other))

	t.Run("filters by subject with stable order", func(t *testing.T) {
		got, err := s.List(ctx, consent.Filter{SubjectID: "APP12345"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c-1", got[0].ID)
		assert.Equal(t, "c-2", got[1].ID)
	})

	t.Run("filters by status", func(t *testing.T) {
		_, err := s.SetRevoked(ctx, "c-1", now.Add(time.Hour))
		require.NoError(t, err)

		got, err := s.List(ctx, consent.Filter{SubjectID: "APP12345", Status: consent.StatusGranted})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "c-2", got[0].ID)
	})
}
