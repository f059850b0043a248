//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance with an open
// database/sql handle and the consent schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

var (
	pgOnce     sync.Once
	pgShared   *PostgresContainer
	pgStartErr error
)

// GetPostgres returns a process-wide shared container. Suites truncate tables
// between tests instead of paying container startup per suite.
func GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	pgOnce.Do(func() {
		pgShared, pgStartErr = startPostgres()
	})
	if pgStartErr != nil {
		t.Fatalf("failed to start postgres container: %v", pgStartErr)
	}
	return pgShared
}

func startPostgres() (*PostgresContainer, error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("consentd_test"),
		tcpostgres.WithUsername("consentd"),
		tcpostgres.WithPassword("consentd"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("run postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("connection string: %w", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := applySchema(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &PostgresContainer{Container: container, DSN: dsn, DB: db}, nil
}

// TruncateTables empties the given tables between tests.
func (c *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := c.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", ")))
	return err
}

func applySchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS consents (
	id TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL,
	purpose TEXT NOT NULL,
	status TEXT NOT NULL,
	source TEXT,
	source_channel TEXT,
	actor_type TEXT,
	tenant_id TEXT,
	product_id TEXT,
	application_number TEXT,
	mobile_number TEXT,
	template_id TEXT,
	template_version INTEGER,
	evidence_ref TEXT,
	previous_consent_id TEXT,
	meta JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_consents_subject ON consents (subject_id);

CREATE TABLE IF NOT EXISTS consent_templates (
	id TEXT PRIMARY KEY,
	tenant_id TEXT,
	product_id TEXT NOT NULL,
	purpose TEXT NOT NULL,
	template_type TEXT NOT NULL,
	version INTEGER NOT NULL,
	title TEXT,
	body_text TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE NULLS NOT DISTINCT (tenant_id, product_id, purpose, template_type, version)
);

CREATE TABLE IF NOT EXISTS evidence_transactions (
	transaction_id TEXT PRIMARY KEY,
	mobile_number TEXT NOT NULL,
	channel TEXT NOT NULL,
	application_number TEXT,
	code_hash TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	verified_at TIMESTAMPTZ,
	consent_id TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	consent_id TEXT NOT NULL,
	action TEXT NOT NULL,
	actor TEXT,
	product_id TEXT,
	purpose TEXT,
	source_channel TEXT,
	actor_type TEXT,
	application_number TEXT,
	mobile_number TEXT,
	evidence_ref TEXT,
	details JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_consent ON audit_events (consent_id);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
