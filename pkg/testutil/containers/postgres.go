//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema is the full inventory schema, applied once per container.
const schema = `
CREATE TABLE IF NOT EXISTS shops (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	owner_name TEXT NOT NULL DEFAULT '',
	owner_phone TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	status TEXT NOT NULL,
	region TEXT NOT NULL,
	added_date TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS simcards (
	id UUID PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL,
	assigned_to UUID,
	assigned_shop_name TEXT NOT NULL DEFAULT '',
	added_date TIMESTAMPTZ NOT NULL,
	sale_date TIMESTAMPTZ,
	last_checked TIMESTAMPTZ,
	last_external_check TIMESTAMPTZ,
	external_status TEXT NOT NULL DEFAULT '',
	check_history JSONB NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS simcards_status_idx ON simcards (status);
CREATE INDEX IF NOT EXISTS simcards_assigned_to_idx ON simcards (assigned_to);

CREATE TABLE IF NOT EXISTS status_transitions (
	id UUID PRIMARY KEY,
	simcard_id UUID NOT NULL,
	simcard_code TEXT NOT NULL,
	old_status TEXT NOT NULL,
	new_status TEXT NOT NULL,
	source TEXT NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	details JSONB
);
CREATE INDEX IF NOT EXISTS status_transitions_ts_idx ON status_transitions (ts DESC);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// inventory schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts PostgreSQL and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("simtrack_test"),
		tcpostgres.WithUsername("simtrack"),
		tcpostgres.WithPassword("simtrack"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// Truncate empties every inventory table. Use between tests for isolation.
func (p *PostgresContainer) Truncate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx,
		`TRUNCATE shops, simcards, status_transitions`)
	return err
}
