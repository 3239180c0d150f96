// Package model defines the canonical feature types shared by every source
// adapter, the aggregation registry, and the spatial query engine.
package model

import (
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"
)

// GeometryType identifies the shape of a canonical feature.
type GeometryType string

const (
	GeometryPoint      GeometryType = "Point"
	GeometryLineString GeometryType = "LineString"
)

// Coordinate is a single position stored internally as (longitude, latitude).
// Sources that deliver (lat, lon) pairs are transposed exactly once, at
// ingestion; downstream code never reorders.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Finite reports whether both components are finite numbers.
func (c Coordinate) Finite() bool {
	return !math.IsNaN(c.Lon) && !math.IsInf(c.Lon, 0) &&
		!math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0)
}

// Properties is a property bag restricted to JSON scalars
// (string, float64, bool, nil). Adapters coerce upstream fields into this
// union at the normalization boundary; see SetString and friends.
type Properties map[string]any

// SetString stores a string property.
func (p Properties) SetString(key, v string) { p[key] = v }

// SetNumber stores a numeric property.
func (p Properties) SetNumber(key string, v float64) { p[key] = v }

// SetBool stores a boolean property.
func (p Properties) SetBool(key string, v bool) { p[key] = v }

// SetNull stores an explicit null property.
func (p Properties) SetNull(key string) { p[key] = nil }

// scalar reports whether v is a member of the allowed scalar union.
func scalar(v any) bool {
	switch v.(type) {
	case nil, string, float64, bool:
		return true
	}
	return false
}

// Coerce converts an arbitrary decoded JSON value into the scalar union.
// Integer types collapse to float64; anything non-scalar becomes (nil, false).
func Coerce(v any) (any, bool) {
	switch t := v.(type) {
	case nil, string, float64, bool:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, false
		}
		return f, true
	}
	return nil, false
}

// Feature is the canonical representation of one geographic point or line,
// independent of which source produced it.
type Feature struct {
	GeometryType GeometryType `json:"geometry_type"`
	Coordinates  []Coordinate `json:"coordinates"`
	Properties   Properties   `json:"properties,omitempty"`
	SourceID     string       `json:"source_id,omitempty"`
}

// Validate checks the geometry contract: a recognized geometry type, exactly
// one finite pair for a Point, at least two pairs for a LineString, and
// scalar-only properties.
func (f Feature) Validate() error {
	switch f.GeometryType {
	case GeometryPoint:
		if len(f.Coordinates) != 1 {
			return &ValidationError{Reason: "point must have exactly one coordinate pair"}
		}
		if !f.Coordinates[0].Finite() {
			return &ValidationError{Reason: "point coordinates must be finite"}
		}
	case GeometryLineString:
		if len(f.Coordinates) < 2 {
			return &ValidationError{Reason: "linestring requires at least two coordinate pairs"}
		}
		for _, c := range f.Coordinates {
			if !c.Finite() {
				return &ValidationError{Reason: "linestring coordinates must be finite"}
			}
		}
	default:
		return &ValidationError{Reason: "unrecognized geometry type " + string(f.GeometryType)}
	}
	for k, v := range f.Properties {
		if !scalar(v) {
			return &ValidationError{Reason: "property " + k + " is not a scalar"}
		}
	}
	return nil
}

// Metadata keys carried on fetched collections.
const (
	MetaTotalCount    = "total_count"
	MetaAPIMessage    = "api_message"
	MetaCurrentUserID = "current_user_id"
)

// FeatureCollection is an ordered set of canonical features plus optional
// collection-level metadata. A collection is produced once per fetch and is
// exclusively owned by the registry entry it is stored under until the next
// successful fetch replaces it.
type FeatureCollection struct {
	Features []Feature      `json:"features"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewFeatureCollection returns an empty collection.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Features: []Feature{}}
}

// Add validates f and appends it. Invalid features are dropped and the
// validation error returned so callers can log; the collection stays usable.
func (fc *FeatureCollection) Add(f Feature) error {
	if err := f.Validate(); err != nil {
		return err
	}
	fc.Features = append(fc.Features, f)
	return nil
}

// Len returns the number of features.
func (fc *FeatureCollection) Len() int {
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

// SetMeta records a metadata entry, allocating the map on first use.
func (fc *FeatureCollection) SetMeta(key string, v any) {
	if fc.Metadata == nil {
		fc.Metadata = map[string]any{}
	}
	fc.Metadata[key] = v
}

// geoJSONGeometry and geoJSONFeature mirror the GeoJSON wire shape for output.
type geoJSONGeometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

type geoJSONFeature struct {
	Type       string          `json:"type"`
	Geometry   geoJSONGeometry `json:"geometry"`
	Properties Properties      `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

// GeoJSON renders the collection as a GeoJSON FeatureCollection document.
func (fc *FeatureCollection) GeoJSON() ([]byte, error) {
	out := geoJSONCollection{
		Type:     "FeatureCollection",
		Features: make([]geoJSONFeature, 0, fc.Len()),
		Metadata: fc.Metadata,
	}
	for _, f := range fc.Features {
		var coords any
		if f.GeometryType == GeometryPoint {
			coords = []float64{f.Coordinates[0].Lon, f.Coordinates[0].Lat}
		} else {
			pairs := make([][]float64, len(f.Coordinates))
			for i, c := range f.Coordinates {
				pairs[i] = []float64{c.Lon, c.Lat}
			}
			coords = pairs
		}
		out.Features = append(out.Features, geoJSONFeature{
			Type:       "Feature",
			Geometry:   geoJSONGeometry{Type: string(f.GeometryType), Coordinates: coords},
			Properties: f.Properties,
		})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, eris.Wrap(err, "model: marshal geojson")
	}
	return b, nil
}
