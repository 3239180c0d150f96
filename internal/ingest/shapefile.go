// Package ingest loads external datasets into the place store.
package ingest

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nordatlas/atlas-cli/internal/store"
)

// attribute columns recognized in shapefile DBF records, matched
// case-insensitively.
var placeAttrs = []string{"name", "description", "city", "category"}

// PlacesFromShapefile reads point records from a shapefile. Non-point shapes
// and records without a name attribute are skipped.
func PlacesFromShapefile(path, sourceID string) ([]store.Place, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(name string) string {
		idx, ok := fieldIdx[name]
		if !ok {
			return ""
		}
		val := strings.TrimRight(reader.Attribute(idx), "\x00")
		return strings.TrimSpace(val)
	}

	var places []store.Place
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		point, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		p := store.Place{
			SourceID:  sourceID,
			Longitude: point.X,
			Latitude:  point.Y,
		}
		for _, a := range placeAttrs {
			v := attr(a)
			switch a {
			case "name":
				p.Name = v
			case "description":
				p.Description = v
			case "city":
				p.City = v
			case "category":
				p.Category = v
			}
		}
		if p.Name == "" {
			skipped++
			continue
		}
		places = append(places, p)
	}

	if skipped > 0 {
		zap.L().Debug("ingest: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return places, nil
}
