package main

import (
	"database/sql"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	consentstore "consentd/internal/consent/store"
	evidencestore "consentd/internal/evidence/store"
	platformredis "consentd/internal/platform/redis"
)

// openLazyDB returns a handle without connecting; database/sql dials on first
// use, which these tests never reach.
func openLazyDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", "postgres://localhost:1/unused?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func lazyRedisClient() *platformredis.Client {
	return &platformredis.Client{Client: redis.NewClient(&redis.Options{Addr: "localhost:1"})}
}

// TestSelectStoresKeepsEvidenceOnSQL pins the deployment rule: when consents
// live in Postgres, evidence transactions do too, even with Redis configured.
// The consent link is written inside the SQL transaction boundary and must
// roll back with the consent and audit rows if the commit fails; a Redis
// write there would already be durable.
func TestSelectStoresKeepsEvidenceOnSQL(t *testing.T) {
	stores := selectStores(openLazyDB(t), lazyRedisClient())

	_, ok := stores.evidence.(*evidencestore.Postgres)
	assert.True(t, ok, "evidence store must share the SQL transaction boundary, got %T", stores.evidence)
	_, ok = stores.consents.(*consentstore.Postgres)
	assert.True(t, ok)
}

func TestSelectStoresRedisWithoutSQL(t *testing.T) {
	stores := selectStores(nil, lazyRedisClient())

	_, ok := stores.evidence.(*evidencestore.Redis)
	assert.True(t, ok, "redis backs evidence in the memory deployment, got %T", stores.evidence)
	_, ok = stores.consents.(*consentstore.Memory)
	assert.True(t, ok)
}

func TestSelectStoresDefaultsToMemory(t *testing.T) {
	stores := selectStores(nil, nil)

	_, ok := stores.evidence.(*evidencestore.Memory)
	assert.True(t, ok)
	_, ok = stores.consents.(*consentstore.Memory)
	assert.True(t, ok)
}
