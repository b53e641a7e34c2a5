// Package testsupport starts a disposable Postgres for tests that need the real driver.
package testsupport

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"account-ledger/internal/repository"
	"account-ledger/migrations"
)

const (
	DatabaseName = "account_ledger"
	Username     = "postgres"
	Password     = "password"
)

// Postgres is a migrated database running in a container.
type Postgres struct {
	Container *postgres.PostgresContainer
	DB        *sql.DB
	DSN       string
}

// StartPostgres launches postgres:15-alpine, applies the embedded schema and
// registers cleanup on t. Tests calling it are skipped under -short.
func StartPostgres(t *testing.T) *Postgres {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres-backed test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(DatabaseName),
		postgres.WithUsername(Username),
		postgres.WithPassword(Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %s", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate postgres container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to build connection string: %s", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to open database: %s", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := repository.Migrate(ctx, db, migrations.FS, logger); err != nil {
		t.Fatalf("Failed to run migrations: %s", err)
	}

	return &Postgres{Container: container, DB: db, DSN: dsn}
}

// Reset empties every ledger table.
func (p *Postgres) Reset(t *testing.T) {
	t.Helper()
	if _, err := p.DB.Exec("TRUNCATE transactions, accounts, users"); err != nil {
		t.Fatalf("Failed to truncate tables: %s", err)
	}
}
