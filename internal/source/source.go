// Package source implements the adapters that fetch raw geodata from
// heterogeneous upstreams and normalize it into the canonical feature model.
// Three variants exist: Static (embedded or on-disk dataset), HTTPGeneric
// (GeoJSON pass-through over HTTP), and RegistryOAuth (the AED asset
// registry). New source kinds are added as new adapters behind this
// interface, not as branches in callers.
package source

import (
	"context"

	"github.com/nordatlas/atlas-cli/internal/model"
)

// FetchParams carries caller-supplied query narrowing. All fields are
// optional; adapters ignore what they cannot use.
type FetchParams struct {
	// Query is appended to the request URL by the HTTP-generic adapter.
	Query map[string]string

	// Position filter for the asset-registry adapter. Sent upstream only
	// when all three are present.
	Latitude       *float64
	Longitude      *float64
	DistanceMeters *int

	// MaxRows caps the upstream result set; zero means the adapter default.
	MaxRows int
}

// Adapter fetches one source's raw data and returns it normalized. A fetch
// that drops some malformed records is still a success; errors are reserved
// for transport and response-shape failures.
type Adapter interface {
	Fetch(ctx context.Context, params FetchParams) (*model.FeatureCollection, error)
}

// tagSource stamps the source id onto a fetch error bubbling out of a shared
// client that does not know which registry entry it serves.
func tagSource(err error, sourceID string) error {
	if ferr, ok := err.(*model.FetchError); ok && ferr.SourceID == "" {
		ferr.SourceID = sourceID
	}
	return err
}
