package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/internal/template"
	"consentd/pkg/platform/sentinel"
)

func tmpl(id string, active bool) *template.Template {
	return &template.Template{
		ID:           id,
		TenantID:     "DEMO_BANK",
		ProductID:    "LOAN",
		Purpose:      "marketing",
		TemplateType: "consent_text",
		BodyText:     "body",
		IsActive:     active,
	}
}

func TestMemoryCreateVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("ignores the passed version", func(t *testing.T) {
		s := NewMemory()
		in := tmpl("a", true)
		in.Version = 99
		created, err := s.CreateVersion(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, 1, created.Version)
	})

	t.Run("concurrent creates never collide", func(t *testing.T) {
		s := NewMemory()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.CreateVersion(ctx, tmpl(string(rune('a'+i)), true))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		all, err := s.List(ctx, template.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 16)
		seen := make(map[int]bool)
		for _, got := range all {
			assert.False(t, seen[got.Version])
			seen[got.Version] = true
		}
	})
}

func TestMemoryFindActive(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_, err := s.CreateVersion(ctx, tmpl("a", true))
	require.NoError(t, err)
	_, err = s.CreateVersion(ctx, tmpl("b", true))
	require.NoError(t, err)

	t.Run("returns a copy of the highest active version", func(t *testing.T) {
		got, err := s.FindActive(ctx, "DEMO_BANK", "LOAN", "marketing")
		require.NoError(t, err)
		assert.Equal(t, "b", got.ID)

		got.BodyText = "mutated"
		again, err := s.FindByID(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "body", again.BodyText)
	})

	t.Run("tenant filter is optional", func(t *testing.T) {
		got, err := s.FindActive(ctx, "", "LOAN", "marketing")
		require.NoError(t, err)
		assert.Equal(t, "b", got.ID)
	})

	t.Run("not found without an active row", func(t *testing.T) {
		require.NoError(t, s.SetActive(ctx, "a", false))
		require.NoError(t, s.SetActive(ctx, "b", false))
		_, err := s.FindActive(ctx, "DEMO_BANK", "LOAN", "marketing")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
