//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"consentd/internal/template"
	"consentd/internal/template/store"
	"consentd/pkg/platform/sentinel"
	"consentd/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "consent_templates")
	s.Require().NoError(err)
}

func newVersion(tenantID, productID, purpose string, active bool) *template.Template {
	return &template.Template{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		ProductID:    productID,
		Purpose:      purpose,
		TemplateType: "consent_text",
		Title:        "Consent",
		BodyText:     "I agree to the processing described above.",
		IsActive:     active,
		CreatedAt:    time.Now().UTC(),
	}
}

func (s *PostgresStoreSuite) TestVersionsAreSequentialPerGroup() {
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		created, err := s.store.CreateVersion(ctx, newVersion("DEMO_BANK", "LOAN", "marketing", true))
		s.Require().NoError(err)
		s.Equal(want, created.Version)
	}

	// A different group starts its own sequence.
	other, err := s.store.CreateVersion(ctx, newVersion("DEMO_BANK", "CARD", "marketing", true))
	s.Require().NoError(err)
	s.Equal(1, other.Version)
}

// TestConcurrentVersionAllocation verifies that racing inserts into the same
// group never produce duplicate version numbers.
func (s *PostgresStoreSuite) TestConcurrentVersionAllocation() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int]int)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := s.store.CreateVersion(ctx, newVersion("DEMO_BANK", "LOAN", "analytics", true))
			if err != nil {
				return
			}
			mu.Lock()
			seen[created.Version]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for version, count := range seen {
		s.Equal(1, count, "version %d allocated more than once", version)
	}

	rows, err := s.store.List(ctx, template.Filter{Purpose: "analytics"})
	s.Require().NoError(err)
	s.Len(rows, len(seen))
}

// TestConcurrentVersionAllocationNoTenant covers the NULL tenant_id group.
// The unique constraint is NULLS NOT DISTINCT, so racing inserts into the
// untenanted group collide on it instead of both committing the same version.
func (s *PostgresStoreSuite) TestConcurrentVersionAllocationNoTenant() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int]int)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := s.store.CreateVersion(ctx, newVersion("", "LOAN", "analytics", true))
			if err != nil {
				return
			}
			mu.Lock()
			seen[created.Version]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for version, count := range seen {
		s.Equal(1, count, "version %d allocated more than once in the no-tenant group", version)
	}

	rows, err := s.store.List(ctx, template.Filter{Purpose: "analytics"})
	s.Require().NoError(err)
	s.Len(rows, len(seen), "every committed row carries a distinct version")
}

func (s *PostgresStoreSuite) TestFindActivePicksHighestActiveVersion() {
	ctx := context.Background()

	v1, err := s.store.CreateVersion(ctx, newVersion("DEMO_BANK", "LOAN", "marketing", true))
	s.Require().NoError(err)
	_, err = s.store.CreateVersion(ctx, newVersion("DEMO_BANK", "LOAN", "marketing", true))
	s.Require().NoError(err)
	v3, err := s.store.CreateVersion(ctx, newVersion("DEMO_BANK", "LOAN", "marketing", false))
	s.Require().NoError(err)
	s.Equal(3, v3.Version)

	found, err := s.store.FindActive(ctx, "DEMO_BANK", "LOAN", "marketing")
	s.Require().NoError(err)
	s.Equal(2, found.Version, "highest active version wins, inactive v3 is skipped")

	// Deactivating v2 falls back to v1.
	s.Require().NoError(s.store.SetActive(ctx, found.ID, false))
	found, err = s.store.FindActive(ctx, "DEMO_BANK", "LOAN", "marketing")
	s.Require().NoError(err)
	s.Equal(v1.ID, found.ID)
}

func (s *PostgresStoreSuite) TestFindActiveTenantFilter() {
	ctx := context.Background()

	global, err := s.store.CreateVersion(ctx, newVersion("", "LOAN", "marketing", true))
	s.Require().NoError(err)
	s.Equal(1, global.Version, "the untenanted group versions independently")
	tenant, err := s.store.CreateVersion(ctx, newVersion("DEMO_BANK", "LOAN", "marketing", true))
	s.Require().NoError(err)

	found, err := s.store.FindActive(ctx, "DEMO_BANK", "LOAN", "marketing")
	s.Require().NoError(err)
	s.Equal(tenant.ID, found.ID)

	// No tenant filter matches any active row.
	found, err = s.store.FindActive(ctx, "", "LOAN", "marketing")
	s.Require().NoError(err)
	s.NotEmpty(found.ID)
}

func (s *PostgresStoreSuite) TestFindActiveNone() {
	ctx := context.Background()

	created, err := s.store.CreateVersion(ctx, newVersion("DEMO_BANK", "LOAN", "marketing", false))
	s.Require().NoError(err)
	s.Equal(1, created.Version)

	_, err = s.store.FindActive(ctx, "DEMO_BANK", "LOAN", "marketing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSetActiveUnknownID() {
	err := s.store.SetActive(context.Background(), uuid.NewString(), false)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
