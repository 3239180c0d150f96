package store

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/nordatlas/atlas-cli/internal/model"
	"github.com/nordatlas/atlas-cli/internal/spatial"
)

// SQLiteStore implements Store using modernc.org/sqlite. SQLite has no
// geography type, so WithinRadius prefilters candidates with a latitude/
// longitude bounding box in SQL and applies the exact great-circle check in
// process.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS places (
	id          TEXT PRIMARY KEY,
	source_id   TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT,
	city        TEXT,
	category    TEXT,
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_places_source_id ON places(source_id);
CREATE INDEX IF NOT EXISTS idx_places_category ON places(category);
CREATE INDEX IF NOT EXISTS idx_places_lat_lng ON places(latitude, longitude);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertPlaces(ctx context.Context, places []Place) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO places (id, source_id, name, description, city, category, latitude, longitude, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var n int64
	for i := range places {
		p := &places[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.SourceID, p.Name, p.Description, p.City, p.Category,
			p.Latitude, p.Longitude, p.CreatedAt,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert place %s", p.Name)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

const sqliteSelectPlace = `SELECT id, source_id, name, description, city, category, latitude, longitude, created_at FROM places`

func scanSQLitePlace(row interface{ Scan(...any) error }) (*Place, error) {
	var (
		p                        Place
		description, city, categ sql.NullString
	)
	err := row.Scan(&p.ID, &p.SourceID, &p.Name, &description, &city, &categ, &p.Latitude, &p.Longitude, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.City = city.String
	p.Category = categ.String
	return &p, nil
}

func (s *SQLiteStore) GetPlace(ctx context.Context, id string) (*Place, error) {
	p, err := scanSQLitePlace(s.db.QueryRowContext(ctx, sqliteSelectPlace+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, &model.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get place %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListPlaces(ctx context.Context, limit, offset int) ([]Place, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, sqliteSelectPlace+` ORDER BY created_at, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list places")
	}
	defer rows.Close()

	out := []Place{}
	for rows.Next() {
		p, err := scanSQLitePlace(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate places")
}

func (s *SQLiteStore) CountPlaces(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM places`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count places")
	}
	return n, nil
}

// WithinRadius loads bounding-box candidates and keeps those whose exact
// great-circle distance is within radiusKm, nearest first. The box is padded
// so the exact filter never loses a boundary point; near the poles the
// longitude band degenerates to the full range.
func (s *SQLiteStore) WithinRadius(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 5000
	}

	latDelta := radiusKm / 111.0
	minLat, maxLat := lat-latDelta, lat+latDelta
	minLon, maxLon := -180.0, 180.0
	if cosLat := math.Cos(lat * math.Pi / 180); cosLat > 1e-6 {
		lonDelta := radiusKm / (111.0 * cosLat)
		if lonDelta < 180 {
			minLon, maxLon = lon-lonDelta, lon+lonDelta
		}
	}

	rows, err := s.db.QueryContext(ctx,
		sqliteSelectPlace+` WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`,
		minLat, maxLat, minLon, maxLon,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query bounding box")
	}
	defer rows.Close()

	type scored struct {
		place Place
		km    float64
	}
	candidates := []scored{}
	for rows.Next() {
		p, err := scanSQLitePlace(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place")
		}
		d := spatial.DistanceKm(lat, lon, p.Latitude, p.Longitude)
		if d <= radiusKm {
			candidates = append(candidates, scored{place: *p, km: d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate places")
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].km < candidates[j].km })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]Place, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.place)
	}
	return out, nil
}
