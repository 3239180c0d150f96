// Package spatial implements the proximity query engine: great-circle
// distance on a spherical Earth and circular-radius membership over canonical
// features.
package spatial

import (
	"math"

	"github.com/nordatlas/atlas-cli/internal/model"
)

// EarthRadiusKm is the fixed spherical Earth radius used by every distance
// computation in the system. Both the in-process filter and the PostGIS
// delegation path must agree to within 0.1% for points more than 1 km apart.
const EarthRadiusKm = 6371.0

// DistanceKm returns the Haversine great-circle distance in kilometers
// between two (latitude, longitude) positions.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// WithinRadius filters features to those whose Point geometry lies within
// radiusKm of center. The boundary is inclusive. Non-Point geometries never
// match a point-radius search; they are excluded entirely. Input order is
// preserved, so identical inputs always produce identical output.
func WithinRadius(fc *model.FeatureCollection, center model.SearchPoint, radiusKm float64) *model.FeatureCollection {
	out := model.NewFeatureCollection()
	if fc == nil {
		return out
	}
	for _, f := range fc.Features {
		if f.GeometryType != model.GeometryPoint || len(f.Coordinates) != 1 {
			continue
		}
		c := f.Coordinates[0]
		// Internal storage is (lon, lat); the distance function takes (lat, lon).
		if DistanceKm(center.Lat, center.Lon, c.Lat, c.Lon) <= radiusKm {
			out.Features = append(out.Features, f)
		}
	}
	out.SetMeta(model.MetaTotalCount, out.Len())
	return out
}
