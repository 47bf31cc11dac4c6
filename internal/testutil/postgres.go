// Package testutil starts a disposable Postgres for integration tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/safar/go-ticket-desk/migrations"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Postgres is a migrated database running in a container.
type Postgres struct {
	DB        *sql.DB
	DSN       string
	container testcontainers.Container
}

var (
	sharedOnce sync.Once
	shared     *Postgres
	sharedErr  error
)

// Shared starts one container per test binary on first use and returns it.
// The calling test is skipped in short mode, when no container provider is
// reachable, or when the container fails to start.
func Shared(t *testing.T) *Postgres {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	sharedOnce.Do(func() {
		shared, sharedErr = StartPostgres(context.Background())
	})
	if sharedErr != nil {
		t.Skipf("postgres container not available: %v", sharedErr)
	}
	return shared
}

// TerminateShared stops the container started by Shared, if any.
func TerminateShared(ctx context.Context) error {
	if shared == nil {
		return nil
	}
	return shared.Terminate(ctx)
}

// StartPostgres starts postgres:16-alpine, connects to it and applies the
// embedded migrations. Provider panics (testcontainers panics when it cannot
// find a Docker host) come back as errors.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	return guardStart(func() (*Postgres, error) {
		return startPostgres(ctx)
	})
}

func guardStart(start func() (*Postgres, error)) (pg *Postgres, err error) {
	defer func() {
		if r := recover(); r != nil {
			pg, err = nil, fmt.Errorf("start postgres container: %v", r)
		}
	}()
	return start()
}

func startPostgres(ctx context.Context) (*Postgres, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	pg := &Postgres{container: container}
	if err := pg.connect(ctx); err != nil {
		_ = pg.Terminate(ctx)
		return nil, err
	}
	return pg, nil
}

func (p *Postgres) connect(ctx context.Context) error {
	host, err := p.container.Host(ctx)
	if err != nil {
		return fmt.Errorf("get container host: %w", err)
	}
	port, err := p.container.MappedPort(ctx, "5432")
	if err != nil {
		return fmt.Errorf("get container port: %w", err)
	}

	p.DSN = fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())
	p.DB, err = sql.Open("postgres", p.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	p.DB.SetMaxOpenConns(50)

	if err := p.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := migrations.Apply(ctx, p.DB); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Reset empties every table and restarts identities.
func (p *Postgres) Reset(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		TRUNCATE admin_messages, orders, generated_links, event_template_addresses,
		         event_template_images, event_templates, events,
		         admin_payment_settings, payment_settings, admins, cities
		RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("reset database: %w", err)
	}
	return nil
}

func (p *Postgres) Terminate(ctx context.Context) error {
	if p.DB != nil {
		_ = p.DB.Close()
	}
	return p.container.Terminate(ctx)
}
