package source

import (
	"encoding/json"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/nordatlas/atlas-cli/internal/model"
)

// decodeGeoJSON parses a GeoJSON FeatureCollection body into canonical
// features. Only Point and LineString geometries survive; other geometry
// kinds and malformed features are dropped with a debug log, never an error.
// A body without a features sequence is rejected as an invalid response.
func decodeGeoJSON(data []byte, sourceID string) (*model.FeatureCollection, error) {
	// GeoJSON coordinate order is already (lon, lat), so no transposition
	// happens on this path.
	var probe struct {
		Features *json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &model.FetchError{SourceID: sourceID, Reason: model.FetchInvalidResponse, Err: err}
	}
	if probe.Features == nil {
		return nil, &model.FetchError{SourceID: sourceID, Reason: model.FetchInvalidResponse}
	}

	var raw geojson.FeatureCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &model.FetchError{SourceID: sourceID, Reason: model.FetchInvalidResponse, Err: err}
	}

	fc := model.NewFeatureCollection()
	dropped := 0
	for _, gf := range raw.Features {
		f, ok := fromGeoJSONFeature(gf, sourceID)
		if !ok {
			dropped++
			continue
		}
		if err := fc.Add(f); err != nil {
			dropped++
		}
	}
	if dropped > 0 {
		zap.L().Debug("dropped malformed features during decode",
			zap.String("source", sourceID),
			zap.Int("dropped", dropped),
		)
	}
	fc.SetMeta(model.MetaTotalCount, fc.Len())
	return fc, nil
}

func fromGeoJSONFeature(gf *geojson.Feature, sourceID string) (model.Feature, bool) {
	if gf == nil || gf.Geometry == nil {
		return model.Feature{}, false
	}

	f := model.Feature{SourceID: sourceID, Properties: coerceProperties(gf.Properties)}

	switch g := gf.Geometry.(type) {
	case *geom.Point:
		c := g.Coords()
		if len(c) < 2 {
			return model.Feature{}, false
		}
		f.GeometryType = model.GeometryPoint
		f.Coordinates = []model.Coordinate{{Lon: c[0], Lat: c[1]}}
	case *geom.LineString:
		f.GeometryType = model.GeometryLineString
		for _, c := range g.Coords() {
			if len(c) < 2 {
				return model.Feature{}, false
			}
			f.Coordinates = append(f.Coordinates, model.Coordinate{Lon: c[0], Lat: c[1]})
		}
	default:
		return model.Feature{}, false
	}
	return f, true
}

// coerceProperties filters an upstream property map down to the scalar union.
// Non-scalar values are dropped, not stringified.
func coerceProperties(in map[string]any) model.Properties {
	if len(in) == 0 {
		return nil
	}
	props := model.Properties{}
	for k, v := range in {
		if c, ok := model.Coerce(v); ok {
			props[k] = c
		}
	}
	return props
}
