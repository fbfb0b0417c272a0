package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/cory-johannsen/vmfkit/internal/config"
)

// DefaultMigrationSource is the migrations directory relative to the repository root.
const DefaultMigrationSource = "file://migrations"

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// MigrationResult reports the schema version after Migrate.
type MigrationResult struct {
	Version uint
	Dirty   bool
	// Changed is false when the schema was already at the requested version.
	Changed bool
}

// Migrate applies steps migrations from source in direction dir. steps <= 0
// applies all of them. An empty source uses DefaultMigrationSource.
//
// Precondition: dir must be Up or Down.
// Postcondition: Returns the resulting version; an already current schema is
// not an error.
func Migrate(cfg config.DatabaseConfig, source string, dir Direction, steps int) (MigrationResult, error) {
	if dir != Up && dir != Down {
		return MigrationResult{}, fmt.Errorf("migrate: invalid direction %q: must be %q or %q", dir, Up, Down)
	}
	if source == "" {
		source = DefaultMigrationSource
	}
	m, err := migrate.New(source, cfg.DSN())
	if err != nil {
		return MigrationResult{}, fmt.Errorf("migrate: opening %s: %w", source, err)
	}
	defer m.Close()

	switch {
	case steps > 0 && dir == Up:
		err = m.Steps(steps)
	case steps > 0:
		err = m.Steps(-steps)
	case dir == Up:
		err = m.Up()
	default:
		err = m.Down()
	}
	res := MigrationResult{Changed: true}
	if errors.Is(err, migrate.ErrNoChange) {
		res.Changed, err = false, nil
	}
	if err != nil {
		return res, fmt.Errorf("migrate %s: %w", dir, err)
	}

	v, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return res, fmt.Errorf("migrate: reading version: %w", verr)
	}
	res.Version, res.Dirty = v, dirty
	return res, nil
}
