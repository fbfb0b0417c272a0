package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/vmfkit/internal/config"
	"github.com/cory-johannsen/vmfkit/internal/storage/postgres"
	"github.com/cory-johannsen/vmfkit/internal/testutil"
)

func TestOpen_RequiresSchema(t *testing.T) {
	cfg := testutil.StartPostgres(t)
	ctx := context.Background()

	_, err := postgres.Open(ctx, cfg)
	assert.ErrorIs(t, err, postgres.ErrSchemaMissing)

	testutil.Migrate(t, cfg)
	pool, err := postgres.Open(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()
	assert.NoError(t, pool.Ping(ctx, time.Second))

	recs, err := pool.Maps().List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestOpen_BadDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Name: "n", SSLMode: "bogus"}
	_, err := postgres.Open(context.Background(), cfg)
	assert.Error(t, err)
}

func TestMigrate_UpDownIdempotent(t *testing.T) {
	cfg := testutil.StartPostgres(t)
	src := "file://" + testutil.MigrationsDir()

	res, err := postgres.Migrate(cfg, src, postgres.Up, 0)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(1), res.Version)
	assert.False(t, res.Dirty)

	res, err = postgres.Migrate(cfg, src, postgres.Up, 0)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = postgres.Migrate(cfg, src, postgres.Down, 1)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	_, err = postgres.Open(context.Background(), cfg)
	assert.ErrorIs(t, err, postgres.ErrSchemaMissing)
}

func TestMigrate_InvalidDirection(t *testing.T) {
	_, err := postgres.Migrate(config.DatabaseConfig{}, "", postgres.Direction("sideways"), 0)
	assert.ErrorContains(t, err, "invalid direction")
}
