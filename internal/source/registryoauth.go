package source

import (
	"context"

	"github.com/nordatlas/atlas-cli/internal/model"
	"github.com/nordatlas/atlas-cli/pkg/aedregistry"
)

// Norway-wide search defaults applied when the caller supplies no position
// filter. The registry caps result sets by max_rows regardless.
const (
	norwayCenterLat      = 60.4518
	norwayCenterLon      = 8.4689
	defaultSearchMeters  = 99999
	defaultSearchMaxRows = 5000
)

// RegistryOAuth adapts the AED asset registry to the common fetch interface.
// The wire client is injected; its lifecycle (credentials, token) is owned by
// whoever constructed it, typically the aggregation registry's setup phase.
type RegistryOAuth struct {
	sourceID string
	client   *aedregistry.Client
	cfg      model.SourceConfig
}

// NewRegistryOAuth wraps the given client for source cfg.
func NewRegistryOAuth(cfg model.SourceConfig, client *aedregistry.Client) *RegistryOAuth {
	return &RegistryOAuth{sourceID: cfg.ID, client: client, cfg: cfg}
}

// Fetch authenticates opportunistically (anonymous mode on failure), searches
// the registry, and normalizes the result. A position filter from params wins
// over the source defaults; when neither specifies one, the Norway-wide
// default search is used.
func (r *RegistryOAuth) Fetch(ctx context.Context, params FetchParams) (*model.FeatureCollection, error) {
	if !r.client.Authenticated() {
		// A false return means anonymous mode, never an error.
		r.client.Authenticate(ctx)
	}

	sp := aedregistry.SearchParams{
		Latitude:       params.Latitude,
		Longitude:      params.Longitude,
		DistanceMeters: params.DistanceMeters,
		MaxRows:        params.MaxRows,
	}
	if sp.Latitude == nil || sp.Longitude == nil || sp.DistanceMeters == nil {
		lat, lon := norwayCenterLat, norwayCenterLon
		dist := r.cfg.DefaultRadiusMeters
		if dist <= 0 {
			dist = defaultSearchMeters
		}
		sp.Latitude, sp.Longitude, sp.DistanceMeters = &lat, &lon, &dist
	}
	if sp.MaxRows <= 0 {
		sp.MaxRows = r.cfg.MaxRows
		if sp.MaxRows <= 0 {
			sp.MaxRows = defaultSearchMaxRows
		}
	}

	resp, err := r.client.SearchAssets(ctx, sp)
	if err != nil {
		return nil, tagSource(err, r.sourceID)
	}
	return aedregistry.Normalize(resp, r.sourceID), nil
}
