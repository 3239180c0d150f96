package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordatlas/atlas-cli/internal/model"
	"github.com/nordatlas/atlas-cli/internal/spatial"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

var osloPlaces = []Place{
	{SourceID: "landmarks", Name: "Oslo City Hall", City: "Oslo", Latitude: 59.9139, Longitude: 10.7339},
	{SourceID: "landmarks", Name: "Royal Palace", City: "Oslo", Latitude: 59.9169, Longitude: 10.7276},
	{SourceID: "landmarks", Name: "Akershus Fortress", City: "Oslo", Latitude: 59.9075, Longitude: 10.7364},
	{SourceID: "landmarks", Name: "Bergen Bryggen", City: "Bergen", Latitude: 60.3975, Longitude: 5.3242},
	{SourceID: "landmarks", Name: "Nidaros Cathedral", City: "Trondheim", Latitude: 63.4268, Longitude: 10.3968},
}

func TestSQLiteStore_InsertAndGet(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := s.InsertPlaces(ctx, osloPlaces)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	count, err := s.CountPlaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	all, err := s.ListPlaces(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.NotEmpty(t, all[0].ID, "insert assigns ids")

	got, err := s.GetPlace(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, all[0].Name, got.Name)
}

func TestSQLiteStore_GetPlace_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.GetPlace(context.Background(), "missing")
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)
}

func TestSQLiteStore_WithinRadius(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	_, err := s.InsertPlaces(ctx, osloPlaces)
	require.NoError(t, err)

	// 2 km around Oslo City Hall reaches the palace and the fortress but
	// not the other cities.
	got, err := s.WithinRadius(ctx, 59.9139, 10.7339, 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Oslo City Hall", got[0].Name, "nearest first")

	prev := -1.0
	for _, p := range got {
		d := spatial.DistanceKm(59.9139, 10.7339, p.Latitude, p.Longitude)
		assert.LessOrEqual(t, d, 2.0)
		assert.GreaterOrEqual(t, d, prev, "sorted by distance")
		prev = d
	}
}

func TestSQLiteStore_WithinRadius_Limit(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	_, err := s.InsertPlaces(ctx, osloPlaces)
	require.NoError(t, err)

	got, err := s.WithinRadius(ctx, 59.9139, 10.7339, 1000, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLiteStore_WithinRadius_BoundaryInclusive(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	_, err := s.InsertPlaces(ctx, osloPlaces)
	require.NoError(t, err)

	d := spatial.DistanceKm(59.9139, 10.7339, 59.9169, 10.7276)
	got, err := s.WithinRadius(ctx, 59.9139, 10.7339, d, 0)
	require.NoError(t, err)

	names := make([]string, 0, len(got))
	for _, p := range got {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "Royal Palace", "exact-distance point is included")
}

// The store's bounding-box path and the in-process layer filter must agree
// on every point they both see.
func TestSQLiteStore_WithinRadius_MatchesLayerFilter(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	_, err := s.InsertPlaces(ctx, osloPlaces)
	require.NoError(t, err)

	fc := model.NewFeatureCollection()
	for _, p := range osloPlaces {
		fc.Add(p.Feature())
	}

	for _, radius := range []float64{0.5, 2, 50, 400} {
		fromStore, err := s.WithinRadius(ctx, 59.9139, 10.7339, radius, 0)
		require.NoError(t, err)

		fromLayer := spatial.WithinRadius(fc, model.SearchPoint{Lat: 59.9139, Lon: 10.7339}, radius)
		assert.Equal(t, fromLayer.Len(), len(fromStore), "radius %.1f km", radius)
	}
}

func TestPlaceFeatureRoundTrip(t *testing.T) {
	p := Place{
		SourceID:  "landmarks",
		Name:      "Oslo City Hall",
		City:      "Oslo",
		Category:  "civic",
		Latitude:  59.9139,
		Longitude: 10.7339,
	}

	f := p.Feature()
	require.NoError(t, f.Validate())
	assert.Equal(t, model.GeometryPoint, f.GeometryType)
	assert.InDelta(t, 10.7339, f.Coordinates[0].Lon, 1e-9)

	back, ok := PlaceFromFeature(f)
	require.True(t, ok)
	assert.Equal(t, p.Name, back.Name)
	assert.Equal(t, p.City, back.City)
	assert.Equal(t, p.Category, back.Category)
	assert.InDelta(t, p.Latitude, back.Latitude, 1e-9)
}

func TestPlaceFromFeature_RejectsLineString(t *testing.T) {
	f := model.Feature{
		GeometryType: model.GeometryLineString,
		Coordinates:  []model.Coordinate{{Lon: 10.73, Lat: 59.91}, {Lon: 10.74, Lat: 59.92}},
		Properties:   model.Properties{},
	}
	_, ok := PlaceFromFeature(f)
	assert.False(t, ok)
}
