package source

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nordatlas/atlas-cli/internal/model"
)

const httpGenericTimeout = 10 * time.Second

// HTTPGeneric fetches a GeoJSON-shaped document from an OGC-style HTTP API.
// It is a pass-through normalizer: no field remapping happens beyond
// validation and scalar coercion of properties.
type HTTPGeneric struct {
	sourceID string
	url      string
	client   *http.Client
}

// NewHTTPGeneric creates an adapter for the given endpoint. A nil client
// gets a default with the standard fetch timeout.
func NewHTTPGeneric(sourceID, endpoint string, client *http.Client) *HTTPGeneric {
	if client == nil {
		client = &http.Client{Timeout: httpGenericTimeout}
	}
	return &HTTPGeneric{sourceID: sourceID, url: endpoint, client: client}
}

// Fetch issues a GET with the caller's query parameters and decodes the body
// as a GeoJSON FeatureCollection.
func (h *HTTPGeneric) Fetch(ctx context.Context, params FetchParams) (*model.FeatureCollection, error) {
	reqURL := h.url
	if len(params.Query) > 0 {
		q := url.Values{}
		for k, v := range params.Query {
			q.Set(k, v)
		}
		sep := "?"
		if u, err := url.Parse(h.url); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		reqURL = h.url + sep + q.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, httpGenericTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &model.FetchError{
			SourceID: h.sourceID,
			Reason:   model.FetchNetwork,
			Err:      eris.Wrap(err, "build request"),
		}
	}

	zap.L().Debug("fetching http source",
		zap.String("source", h.sourceID),
		zap.String("url", reqURL),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &model.FetchError{
			SourceID: h.sourceID,
			Reason:   model.FetchNetwork,
			Err:      eris.Wrap(err, "request"),
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.FetchError{
			SourceID:   h.sourceID,
			Reason:     model.FetchHTTPStatus,
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.FetchError{
			SourceID: h.sourceID,
			Reason:   model.FetchNetwork,
			Err:      eris.Wrap(err, "read body"),
		}
	}

	return decodeGeoJSON(body, h.sourceID)
}
