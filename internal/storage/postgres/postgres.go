// Package postgres stores the map catalog in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/vmfkit/internal/config"
)

// ApplicationName tags catalog connections in pg_stat_activity.
const ApplicationName = "vmftool"

// ErrSchemaMissing is returned by Open when the maps table has not been
// created. Run cmd/migrate first.
var ErrSchemaMissing = errors.New("catalog schema missing: run migrations")

// Pool is a connection pool to the catalog database.
type Pool struct {
	db *pgxpool.Pool
}

// Open connects to the catalog described by cfg and verifies that the
// catalog schema is present.
//
// Precondition: cfg must pass config validation with persistence enabled.
// Postcondition: Returns a pinged Pool whose maps table exists, or a non-nil
// error with no connections left open.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing catalog dsn: %w", err)
	}
	pcfg.MaxConns = cfg.MaxConns
	pcfg.MinConns = cfg.MinConns
	pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	pcfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName

	db, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("creating catalog pool: %w", err)
	}
	p := &Pool{db: db}
	if err := p.Ping(ctx, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("reaching catalog %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	if err := p.checkSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pool) checkSchema(ctx context.Context) error {
	var present bool
	err := p.db.QueryRow(ctx, `SELECT to_regclass('public.maps') IS NOT NULL`).Scan(&present)
	if err != nil {
		return fmt.Errorf("inspecting catalog schema: %w", err)
	}
	if !present {
		return ErrSchemaMissing
	}
	return nil
}

// Ping reports whether the database answers within timeout.
func (p *Pool) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.db.Ping(ctx)
}

// Maps returns the map repository backed by this pool.
func (p *Pool) Maps() *MapRepository {
	return NewMapRepository(p.db)
}

// DB exposes the underlying pgx pool.
func (p *Pool) DB() *pgxpool.Pool { return p.db }

// Close releases every connection. The Pool is unusable afterwards.
func (p *Pool) Close() { p.db.Close() }
