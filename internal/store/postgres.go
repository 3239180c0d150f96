package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/nordatlas/atlas-cli/internal/db"
	"github.com/nordatlas/atlas-cli/internal/model"
)

// PostgresStore implements Store using pgxpool and PostGIS. The geom column
// is derived from latitude/longitude at write time; radius queries run
// entirely server-side via ST_DWithin over geography.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS places (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_id   TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT,
	city        TEXT,
	category    TEXT,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	geom        GEOMETRY(Point, 4326) GENERATED ALWAYS AS (ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)) STORED,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_places_source_id ON places(source_id);
CREATE INDEX IF NOT EXISTS idx_places_category ON places(category);
CREATE INDEX IF NOT EXISTS idx_places_geom ON places USING GIST(geom);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var placeColumns = []string{"id", "source_id", "name", "description", "city", "category", "latitude", "longitude", "created_at"}

// InsertPlaces bulk-loads places via COPY. Missing ids and timestamps are
// assigned here so the rows round-trip without a re-read.
func (s *PostgresStore) InsertPlaces(ctx context.Context, places []Place) (int64, error) {
	rows := make([][]any, 0, len(places))
	now := time.Now().UTC()
	for i := range places {
		p := &places[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		rows = append(rows, []any{
			p.ID, p.SourceID, p.Name, p.Description, p.City, p.Category,
			p.Latitude, p.Longitude, p.CreatedAt,
		})
	}
	n, err := db.CopyFrom(ctx, s.pool, "places", placeColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert places")
	}
	return n, nil
}

const selectPlace = `SELECT id, source_id, name, description, city, category, latitude, longitude, created_at FROM places`

func scanPlace(row pgx.Row) (*Place, error) {
	var (
		p                        Place
		description, city, categ *string
	)
	err := row.Scan(&p.ID, &p.SourceID, &p.Name, &description, &city, &categ, &p.Latitude, &p.Longitude, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if description != nil {
		p.Description = *description
	}
	if city != nil {
		p.City = *city
	}
	if categ != nil {
		p.Category = *categ
	}
	return &p, nil
}

func (s *PostgresStore) GetPlace(ctx context.Context, id string) (*Place, error) {
	p, err := scanPlace(s.pool.QueryRow(ctx, selectPlace+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &model.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get place %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListPlaces(ctx context.Context, limit, offset int) ([]Place, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, selectPlace+` ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list places")
	}
	defer rows.Close()
	return collectPlaces(rows)
}

func (s *PostgresStore) CountPlaces(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM places`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count places")
	}
	return n, nil
}

// WithinRadius runs the proximity filter in PostGIS. ST_DWithin over
// geography is inclusive of the boundary, matching the in-process filter.
func (s *PostgresStore) WithinRadius(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 5000
	}
	rows, err := s.pool.Query(ctx,
		selectPlace+` WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3) ORDER BY geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326) LIMIT $4`,
		lon, lat, radiusKm*1000, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query within radius")
	}
	defer rows.Close()
	return collectPlaces(rows)
}

func collectPlaces(rows pgx.Rows) ([]Place, error) {
	out := []Place{}
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan place")
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate places")
	}
	return out, nil
}
