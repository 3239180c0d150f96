// Package store persists places, the flattened point rows behind the
// aggregated feature layers. Two implementations exist: Postgres with
// PostGIS, where proximity queries run server-side, and SQLite, where a
// bounding-box prefilter narrows candidates and the exact great-circle
// check runs in process. Both must return the same result set for the
// same query.
package store

import (
	"context"
	"time"

	"github.com/nordatlas/atlas-cli/internal/model"
)

// Place is one stored point of interest.
type Place struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	City        string    `json:"city,omitempty"`
	Category    string    `json:"category,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CreatedAt   time.Time `json:"created_at"`
}

// Feature converts the place to a canonical point feature.
func (p Place) Feature() model.Feature {
	props := model.Properties{}
	props.SetString("name", p.Name)
	if p.Description != "" {
		props.SetString("description", p.Description)
	}
	if p.City != "" {
		props.SetString("city", p.City)
	}
	if p.Category != "" {
		props.SetString("category", p.Category)
	}
	return model.Feature{
		GeometryType: model.GeometryPoint,
		Coordinates:  []model.Coordinate{{Lon: p.Longitude, Lat: p.Latitude}},
		Properties:   props,
		SourceID:     p.SourceID,
	}
}

// PlaceFromFeature flattens a point feature into a place row. Non-point
// features have no row representation and return false.
func PlaceFromFeature(f model.Feature) (Place, bool) {
	if f.GeometryType != model.GeometryPoint || len(f.Coordinates) != 1 {
		return Place{}, false
	}
	p := Place{
		SourceID:  f.SourceID,
		Latitude:  f.Coordinates[0].Lat,
		Longitude: f.Coordinates[0].Lon,
	}
	p.Name, _ = f.Properties["name"].(string)
	p.Description, _ = f.Properties["description"].(string)
	p.City, _ = f.Properties["city"].(string)
	p.Category, _ = f.Properties["category"].(string)
	return p, true
}

// Store is the persistence interface for places.
type Store interface {
	InsertPlaces(ctx context.Context, places []Place) (int64, error)
	GetPlace(ctx context.Context, id string) (*Place, error)
	ListPlaces(ctx context.Context, limit, offset int) ([]Place, error)
	CountPlaces(ctx context.Context) (int, error)

	// WithinRadius returns places at most radiusKm from (lat, lon),
	// nearest first, capped at limit. The boundary is inclusive.
	WithinRadius(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]Place, error)

	Migrate(ctx context.Context) error
	Close() error
}
