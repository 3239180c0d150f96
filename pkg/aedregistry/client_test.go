package aedregistry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordatlas/atlas-cli/internal/model"
)

func TestAuthenticate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	c := New(
		WithTokenURL(srv.URL),
		WithCredentials("client-id", "client-secret"),
	)
	assert.True(t, c.Authenticate(context.Background()))
	assert.True(t, c.Authenticated())
}

func TestAuthenticate_EmptyCredentials(t *testing.T) {
	c := New(WithTokenURL("http://127.0.0.1:1/never-called"))
	assert.False(t, c.Authenticate(context.Background()))
	assert.False(t, c.Authenticated())
}

func TestAuthenticate_TokenEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(WithTokenURL(srv.URL), WithCredentials("id", "bad-secret"))
	assert.False(t, c.Authenticate(context.Background()))
	assert.False(t, c.Authenticated())
}

func TestAuthenticate_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token_type": "Bearer"})
	}))
	defer srv.Close()

	c := New(WithTokenURL(srv.URL), WithCredentials("id", "secret"))
	assert.False(t, c.Authenticate(context.Background()))
}

func TestSearchAssets_AnonymousOmitsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "5000", r.URL.Query().Get("max_rows"))
		assert.Empty(t, r.URL.Query().Get("latitude"))
		json.NewEncoder(w).Encode(map[string]any{"ASSETS": []any{}})
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	resp, err := c.SearchAssets(context.Background(), SearchParams{})
	require.NoError(t, err)
	assert.Empty(t, resp.Assets)
}

func TestSearchAssets_AttachesBearerToken(t *testing.T) {
	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-xyz", "token_type": "Bearer"})
	}))
	defer token.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-xyz", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"ASSETS": []any{}})
	}))
	defer srv.Close()

	c := New(
		WithBaseURL(srv.URL),
		WithTokenURL(token.URL),
		WithCredentials("id", "secret"),
	)
	require.True(t, c.Authenticate(context.Background()))

	_, err := c.SearchAssets(context.Background(), SearchParams{MaxRows: 10})
	require.NoError(t, err)
}

func TestSearchAssets_PositionParams(t *testing.T) {
	lat, lon, dist := 60.4518, 8.4689, 99999

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "60.4518", q.Get("latitude"))
		assert.Equal(t, "8.4689", q.Get("longitude"))
		assert.Equal(t, "99999", q.Get("distance"))
		assert.Equal(t, "100", q.Get("max_rows"))
		json.NewEncoder(w).Encode(map[string]any{"ASSETS": []any{}})
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	_, err := c.SearchAssets(context.Background(), SearchParams{
		Latitude:       &lat,
		Longitude:      &lon,
		DistanceMeters: &dist,
		MaxRows:        100,
	})
	require.NoError(t, err)
}

func TestSearchAssets_PartialPositionIsUnfiltered(t *testing.T) {
	lat := 60.0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("latitude"))
		assert.Empty(t, r.URL.Query().Get("distance"))
		json.NewEncoder(w).Encode(map[string]any{"ASSETS": []any{}})
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	_, err := c.SearchAssets(context.Background(), SearchParams{Latitude: &lat})
	require.NoError(t, err)
}

func TestSearchAssets_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	_, err := c.SearchAssets(context.Background(), SearchParams{})
	require.Error(t, err)

	var ferr *model.FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, model.FetchHTTPStatus, ferr.Reason)
	assert.Equal(t, http.StatusServiceUnavailable, ferr.StatusCode)
}

func TestSearchAssets_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	_, err := c.SearchAssets(context.Background(), SearchParams{})
	require.Error(t, err)

	var ferr *model.FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, model.FetchInvalidResponse, ferr.Reason)
}

func TestSearchAssets_NetworkError(t *testing.T) {
	c := New(WithBaseURL("http://127.0.0.1:1"))
	_, err := c.SearchAssets(context.Background(), SearchParams{})
	require.Error(t, err)

	var ferr *model.FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, model.FetchNetwork, ferr.Reason)
}
