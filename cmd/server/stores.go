package main

import (
	"database/sql"

	"consentd/internal/audit/recorder"
	auditstore "consentd/internal/audit/store"
	consentservice "consentd/internal/consent/service"
	consentstore "consentd/internal/consent/store"
	evidenceservice "consentd/internal/evidence/service"
	evidencestore "consentd/internal/evidence/store"
	platformredis "consentd/internal/platform/redis"
	templateservice "consentd/internal/template/service"
	templatestore "consentd/internal/template/store"
)

type storeSet struct {
	consents  consentservice.Store
	audit     recorder.Store
	templates templateservice.Store
	evidence  evidenceservice.Store
	consentTx consentservice.Tx
}

// selectStores picks the persistence backends. With a SQL database every
// store joins the same transaction boundary, so the evidence store stays on
// Postgres even when Redis is configured: a Redis consent link written inside
// the boundary cannot roll back with the consent and audit rows if the commit
// fails. Redis backs the evidence store only in the otherwise in-memory
// deployment, where no cross-store transaction exists to break.
func selectStores(db *sql.DB, redisClient *platformredis.Client) storeSet {
	if db != nil {
		return storeSet{
			consents:  consentstore.NewPostgres(db),
			audit:     auditstore.NewPostgres(db),
			templates: templatestore.NewPostgres(db),
			evidence:  evidencestore.NewPostgres(db),
			consentTx: newConsentPostgresTx(db),
		}
	}

	s := storeSet{
		consents:  consentstore.NewMemory(),
		audit:     auditstore.NewMemory(),
		templates: templatestore.NewMemory(),
		evidence:  evidencestore.NewMemory(),
		consentTx: consentservice.NewMemoryTx(),
	}
	if redisClient != nil {
		s.evidence = evidencestore.NewRedis(redisClient.Client)
	}
	return s
}
