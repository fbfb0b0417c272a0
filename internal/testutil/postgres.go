// Package testutil provides test helpers for container-backed integration tests.
package testutil

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/vmfkit/internal/config"
	"github.com/cory-johannsen/vmfkit/internal/storage/postgres"
)

const pgImage = "postgres:16-alpine"

// StartPostgres runs a throwaway PostgreSQL container for the duration of t
// and returns its connection settings. The test is skipped when no container
// provider is reachable.
//
// Postcondition: The database accepts connections; the container is
// terminated by t.Cleanup.
func StartPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()
	start := time.Now()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "vmf",
				"POSTGRES_PASSWORD": "vmf",
				"POSTGRES_DB":       "catalog",
			},
			// The server logs readiness once for initdb and once for real.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v [%s]", pgImage, err, time.Since(start))
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	t.Logf("postgres ready at %s:%s [%s]", host, port.Port(), time.Since(start))

	return config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "vmf",
		Password:        "vmf",
		Name:            "catalog",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}
}

// MigrationsDir returns the absolute path of the repository's migrations directory.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// Migrate applies every up migration to the database described by cfg.
func Migrate(t *testing.T, cfg config.DatabaseConfig) {
	t.Helper()
	if _, err := postgres.Migrate(cfg, "file://"+MigrationsDir(), postgres.Up, 0); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
}

// NewPool starts a migrated catalog database and returns a pool connected to it.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	cfg := StartPostgres(t)
	Migrate(t, cfg)
	pool, err := postgres.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("opening catalog: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool.DB()
}
