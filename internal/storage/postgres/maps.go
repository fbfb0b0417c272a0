package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/vmfkit/internal/vmf/document"
)

// ErrMapNotFound is returned when a catalog lookup yields no results.
var ErrMapNotFound = errors.New("map not found")

// MapRecord is one catalogued map, keyed by the digest of its text.
type MapRecord struct {
	ID         uuid.UUID
	Digest     string
	Path       string
	RunID      uuid.UUID
	MapVersion int
	Stats      document.Stats
	IngestedAt time.Time
}

// MapRepository provides map catalog persistence operations.
type MapRepository struct {
	db *pgxpool.Pool
}

// NewMapRepository creates a MapRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMapRepository(db *pgxpool.Pool) *MapRepository {
	return &MapRepository{db: db}
}

const mapColumns = `id, digest, path, run_id, map_version,
	entities, brush_entities, solids, sides, group_count, visgroups, connections, passthrough,
	ingested_at`

// Upsert inserts rec, or refreshes the existing row with the same digest.
//
// Precondition: rec.Digest must be non-empty.
// Postcondition: Returns the stored record with ID and IngestedAt set. A
// re-ingested digest keeps its original ID.
func (r *MapRepository) Upsert(ctx context.Context, rec MapRecord) (MapRecord, error) {
	if rec.Digest == "" {
		return MapRecord{}, fmt.Errorf("upserting map %q: empty digest", rec.Path)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s := rec.Stats
	row := r.db.QueryRow(ctx,
		`INSERT INTO maps (id, digest, path, run_id, map_version,
			entities, brush_entities, solids, sides, group_count, visgroups, connections, passthrough)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (digest) DO UPDATE SET
			path = EXCLUDED.path,
			run_id = EXCLUDED.run_id,
			ingested_at = NOW()
		 RETURNING `+mapColumns,
		rec.ID, rec.Digest, rec.Path, rec.RunID, rec.MapVersion,
		s.Entities, s.BrushEntities, s.Solids, s.Sides, s.Groups, s.Visgroups, s.Connections, s.Passthrough,
	)
	out, err := scanMap(row)
	if err != nil {
		return MapRecord{}, fmt.Errorf("upserting map %q: %w", rec.Path, err)
	}
	return out, nil
}

// GetByDigest retrieves the map with the given content digest.
//
// Postcondition: Returns the record or ErrMapNotFound.
func (r *MapRepository) GetByDigest(ctx context.Context, digest string) (MapRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+mapColumns+` FROM maps WHERE digest = $1`, digest)
	rec, err := scanMap(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return MapRecord{}, ErrMapNotFound
	}
	if err != nil {
		return MapRecord{}, fmt.Errorf("querying map %s: %w", digest, err)
	}
	return rec, nil
}

// List returns up to limit maps, most recently ingested first.
//
// Precondition: limit > 0.
func (r *MapRepository) List(ctx context.Context, limit int) ([]MapRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("listing maps: limit must be > 0, got %d", limit)
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+mapColumns+` FROM maps ORDER BY ingested_at DESC, path LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing maps: %w", err)
	}
	defer rows.Close()

	var out []MapRecord
	for rows.Next() {
		rec, err := scanMap(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning map: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating maps: %w", err)
	}
	return out, nil
}

func scanMap(row pgx.Row) (MapRecord, error) {
	var rec MapRecord
	s := &rec.Stats
	err := row.Scan(&rec.ID, &rec.Digest, &rec.Path, &rec.RunID, &rec.MapVersion,
		&s.Entities, &s.BrushEntities, &s.Solids, &s.Sides, &s.Groups, &s.Visgroups, &s.Connections, &s.Passthrough,
		&rec.IngestedAt)
	return rec, err
}
