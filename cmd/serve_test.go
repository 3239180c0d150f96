package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordatlas/atlas-cli/internal/config"
	"github.com/nordatlas/atlas-cli/internal/model"
	"github.com/nordatlas/atlas-cli/internal/registry"
	"github.com/nordatlas/atlas-cli/internal/source"
	"github.com/nordatlas/atlas-cli/internal/store"
)

type stubAdapter struct {
	fc  *model.FeatureCollection
	err error
}

func (s *stubAdapter) Fetch(context.Context, source.FetchParams) (*model.FeatureCollection, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.fc, nil
}

func osloCollection(t *testing.T) *model.FeatureCollection {
	t.Helper()
	fc := model.NewFeatureCollection()
	for _, p := range []struct {
		name     string
		lon, lat float64
	}{
		{"Oslo City Hall", 10.7339, 59.9139},
		{"Royal Palace", 10.7276, 59.9169},
		{"Bergen Bryggen", 5.3242, 60.3975},
	} {
		props := model.Properties{}
		props.SetString("name", p.name)
		require.NoError(t, fc.Add(model.Feature{
			GeometryType: model.GeometryPoint,
			Coordinates:  []model.Coordinate{{Lon: p.lon, Lat: p.lat}},
			Properties:   props,
		}))
	}
	return fc
}

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()

	reg := registry.New()
	require.NoError(t, reg.Register(model.SourceConfig{
		ID:             "landmarks",
		Kind:           model.KindStatic,
		DisplayName:    "Landmarks",
		DefaultVisible: true,
	}, &stubAdapter{fc: osloCollection(t)}))
	require.NoError(t, reg.Register(model.SourceConfig{
		ID:          "broken",
		Kind:        model.KindHTTPGeneric,
		DisplayName: "Broken",
		URL:         "https://example.org/data.geojson",
	}, &stubAdapter{err: &model.FetchError{Reason: model.FetchHTTPStatus, StatusCode: 502}}))

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	_, err = st.InsertPlaces(context.Background(), []store.Place{
		{SourceID: "import", Name: "Akershus Fortress", Latitude: 59.9075, Longitude: 10.7364},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(buildRouter(reg, st, config.SearchConfig{DefaultRadiusKm: 2, MaxResults: 100}))
	t.Cleanup(srv.Close)
	return srv, reg
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestServeHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	code := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestServeListSources(t *testing.T) {
	srv, _ := newTestServer(t)

	var body struct {
		Sources []layerResponse `json:"sources"`
		Total   int             `json:"total"`
	}
	code := getJSON(t, srv.URL+"/api/sources", &body)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 2, body.Total)
	assert.Equal(t, "landmarks", body.Sources[0].ID)
	assert.Equal(t, "unloaded", body.Sources[0].Status)
	assert.Equal(t, model.DefaultLayerColor, body.Sources[0].Color)
}

func TestServeFetchSource(t *testing.T) {
	srv, _ := newTestServer(t)

	var body struct {
		Source   string `json:"source"`
		Features int    `json:"features"`
	}
	code := postJSON(t, srv.URL+"/api/sources/landmarks/fetch", &body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, body.Features)

	var errBody map[string]string
	assert.Equal(t, http.StatusBadGateway, postJSON(t, srv.URL+"/api/sources/broken/fetch", &errBody))
	assert.Equal(t, http.StatusNotFound, postJSON(t, srv.URL+"/api/sources/ghost/fetch", &errBody))
}

func TestServeToggle(t *testing.T) {
	srv, _ := newTestServer(t)

	var body struct {
		Visible bool `json:"visible"`
	}
	code := postJSON(t, srv.URL+"/api/sources/landmarks/toggle", &body)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, body.Visible)

	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, postJSON(t, srv.URL+"/api/sources/ghost/toggle", &errBody))
}

func TestServeSearch(t *testing.T) {
	srv, reg := newTestServer(t)
	_, err := reg.Fetch(context.Background(), "landmarks", source.FetchParams{})
	require.NoError(t, err)

	var fc struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
		Metadata map[string]any `json:"metadata"`
	}
	code := getJSON(t, srv.URL+"/api/search?lat=59.9139&lon=10.7339&radius_km=2", &fc)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, fc.Features, 2, "Bergen is outside a 2 km radius of Oslo")
	assert.EqualValues(t, 2, fc.Metadata["total_count"])

	p, ok := reg.SearchPoint()
	require.True(t, ok, "search records the query center")
	assert.InDelta(t, 59.9139, p.Lat, 1e-9)
}

func TestServeSearch_HiddenLayerExcluded(t *testing.T) {
	srv, reg := newTestServer(t)
	_, err := reg.Fetch(context.Background(), "landmarks", source.FetchParams{})
	require.NoError(t, err)
	_, err = reg.ToggleVisibility("landmarks")
	require.NoError(t, err)

	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	code := getJSON(t, srv.URL+"/api/search?lat=59.9139&lon=10.7339&radius_km=2", &fc)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, fc.Features)
}

func TestServeSearch_MissingCenter(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/search?lon=10.7", &body))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/search?lat=59.9", &body))
}

func TestServePlacesNear(t *testing.T) {
	srv, _ := newTestServer(t)

	var fc struct {
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	code := getJSON(t, srv.URL+"/api/places/near?lat=59.9139&lon=10.7339&radius_km=2", &fc)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Akershus Fortress", fc.Features[0].Properties["name"])
}

func TestServePlacesNear_NoStore(t *testing.T) {
	reg := registry.New()
	srv := httptest.NewServer(buildRouter(reg, nil, config.SearchConfig{DefaultRadiusKm: 2}))
	t.Cleanup(srv.Close)

	var body map[string]string
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/api/places/near?lat=1&lon=1", &body))
}
