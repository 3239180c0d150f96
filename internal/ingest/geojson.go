package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/nordatlas/atlas-cli/internal/source"
	"github.com/nordatlas/atlas-cli/internal/store"
)

// PlacesFromGeoJSONFile reads a GeoJSON file through the static adapter and
// flattens its point features into place rows. Line features carry no single
// position and are skipped.
func PlacesFromGeoJSONFile(ctx context.Context, path, sourceID string) ([]store.Place, error) {
	fc, err := source.NewStaticFile(sourceID, path).Fetch(ctx, source.FetchParams{})
	if err != nil {
		return nil, err
	}

	places := make([]store.Place, 0, fc.Len())
	var skipped int
	for _, f := range fc.Features {
		p, ok := store.PlaceFromFeature(f)
		if !ok {
			skipped++
			continue
		}
		places = append(places, p)
	}
	if skipped > 0 {
		zap.L().Debug("ingest: skipped non-point features",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return places, nil
}
