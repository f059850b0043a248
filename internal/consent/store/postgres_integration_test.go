//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"consentd/internal/consent"
	"consentd/internal/consent/store"
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
	err := s.postgres.TruncateTables(context.Background(), "consents")
	s.Require().NoError(err)
}

func newGrantedConsent(subjectID string) *consent.Consent {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &consent.Consent{
		ID:            uuid.NewString(),
		SubjectID:     subjectID,
		Purpose:       "marketing",
		Status:        consent.StatusGranted,
		Source:        "web_ingestion_customer",
		SourceChannel: "web_app_customer",
		ActorType:     "customer",
		TenantID:      "DEMO_BANK",
		ProductID:     "LOAN",
		MobileNumber:  "9876543210",
		Meta:          map[string]any{"campaign": "spring"},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	c := newGrantedConsent("subject-1")
	c.TemplateID = uuid.NewString()
	c.TemplateVersion = 2
	c.EvidenceRef = "customer_login-12345"
	c.ApplicationNumber = "APP-77"

	s.Require().NoError(s.store.Create(ctx, c))

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.SubjectID, found.SubjectID)
	s.Equal(c.Status, found.Status)
	s.Equal(c.TemplateID, found.TemplateID)
	s.Equal(2, found.TemplateVersion)
	s.Equal(c.EvidenceRef, found.EvidenceRef)
	s.Equal("spring", found.Meta["campaign"])
	s.WithinDuration(c.CreatedAt, found.CreatedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestDuplicateIDConflict() {
	ctx := context.Background()
	c := newGrantedConsent("subject-dup")
	s.Require().NoError(s.store.Create(ctx, c))

	again := newGrantedConsent("subject-dup")
	again.ID = c.ID
	s.ErrorIs(s.store.Create(ctx, again), sentinel.ErrConflict)
}

// TestSetRevokedRace verifies that racing revocations of the same consent
// report exactly one state change.
func (s *PostgresStoreSuite) TestSetRevokedRace() {
	ctx := context.Background()
	c := newGrantedConsent("subject-race")
	s.Require().NoError(s.store.Create(ctx, c))

	const goroutines = 50
	var wg sync.WaitGroup
	var changed atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.SetRevoked(ctx, c.ID, time.Now().UTC())
			if err == nil && ok {
				changed.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), changed.Load(), "exactly one revocation should report a change")

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(consent.StatusRevoked, found.Status)
}

func (s *PostgresStoreSuite) TestSetRevokedUnknownID() {
	_, err := s.store.SetRevoked(context.Background(), uuid.NewString(), time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListFiltersAndOrder() {
	ctx := context.Background()

	first := newGrantedConsent("subject-list")
	first.CreatedAt = time.Now().UTC().Add(-2 * time.Minute)
	first.UpdatedAt = first.CreatedAt
	s.Require().NoError(s.store.Create(ctx, first))

	second := newGrantedConsent("subject-list")
	second.CreatedAt = time.Now().UTC().Add(-1 * time.Minute)
	second.UpdatedAt = second.CreatedAt
	s.Require().NoError(s.store.Create(ctx, second))

	other := newGrantedConsent("subject-other")
	s.Require().NoError(s.store.Create(ctx, other))

	_, err := s.store.SetRevoked(ctx, second.ID, time.Now().UTC())
	s.Require().NoError(err)

	bySubject, err := s.store.List(ctx, consent.Filter{SubjectID: "subject-list"})
	s.Require().NoError(err)
	s.Require().Len(bySubject, 2)
	s.Equal(first.ID, bySubject[0].ID, "oldest first")
	s.Equal(second.ID, bySubject[1].ID)

	revoked, err := s.store.List(ctx, consent.Filter{Status: consent.StatusRevoked})
	s.Require().NoError(err)
	s.Require().Len(revoked, 1)
	s.Equal(second.ID, revoked[0].ID)

	all, err := s.store.List(ctx, consent.Filter{})
	s.Require().NoError(err)
	s.Len(all, 3)
}
