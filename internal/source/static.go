package source

import (
	"context"
	_ "embed"
	"os"

	"github.com/rotisserie/eris"

	"github.com/nordatlas/atlas-cli/internal/model"
)

// landmarksGeoJSON is the curated Norwegian landmarks dataset: five Point
// features and one LineString.
//
//go:embed landmarks.geojson
var landmarksGeoJSON []byte

// Static serves a fixed dataset: the embedded landmarks by default, or a
// GeoJSON file on disk when Path is set. Fetch ignores params.
type Static struct {
	sourceID string
	path     string
}

// NewStatic returns an adapter over the embedded landmarks dataset.
func NewStatic(sourceID string) *Static {
	return &Static{sourceID: sourceID}
}

// NewStaticFile returns an adapter that reads a GeoJSON file at each fetch.
func NewStaticFile(sourceID, path string) *Static {
	return &Static{sourceID: sourceID, path: path}
}

// Fetch loads the dataset and runs it through the canonical validator.
// Malformed embedded records are dropped, not fatal.
func (s *Static) Fetch(_ context.Context, _ FetchParams) (*model.FeatureCollection, error) {
	data := landmarksGeoJSON
	if s.path != "" {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return nil, &model.FetchError{
				SourceID: s.sourceID,
				Reason:   model.FetchInvalidResponse,
				Err:      eris.Wrapf(err, "read static dataset %s", s.path),
			}
		}
		data = b
	}
	return decodeGeoJSON(data, s.sourceID)
}
