// Package aedregistry is a REST client for the Hjertestarterregister asset
// registry (AED locations). The API supports an OAuth client-credentials
// grant; unauthenticated search works too, with reduced row limits, so a
// failed or skipped token exchange degrades to anonymous mode instead of
// failing.
package aedregistry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nordatlas/atlas-cli/internal/model"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://hjertestarterregister.113.no/ords/api/v1"
	// DefaultTokenURL is the production OAuth token endpoint.
	DefaultTokenURL = "https://hjertestarterregister.113.no/ords/api/oauth/token"

	tokenTimeout  = 10 * time.Second
	searchTimeout = 15 * time.Second
)

// Client talks to the asset registry. The zero value is not usable; construct
// with New. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokenURL   string
	limiter    *rate.Limiter

	clientID     string
	clientSecret string

	mu          sync.RWMutex
	accessToken string
	tokenType   string
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API root (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTokenURL overrides the OAuth token endpoint (used by tests).
func WithTokenURL(u string) Option {
	return func(c *Client) { c.tokenURL = u }
}

// WithCredentials sets the OAuth client id/secret. Empty values leave the
// client anonymous.
func WithCredentials(id, secret string) Option {
	return func(c *Client) {
		c.clientID = id
		c.clientSecret = secret
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRateLimit sets a per-second request rate limit toward the registry.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// New creates a registry client with production endpoints unless overridden.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		tokenURL:   DefaultTokenURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tokenResponse is the OAuth token endpoint reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate performs the client-credentials token exchange and stores the
// resulting bearer token. It returns false — never an error — when credentials
// are missing or the exchange fails; the client then stays anonymous and
// subsequent searches omit the Authorization header.
func (c *Client) Authenticate(ctx context.Context) bool {
	if c.clientID == "" || c.clientSecret == "" {
		zap.L().Info("aedregistry: no credentials configured, using public search only")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, tokenTimeout)
	defer cancel()

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		c.logAuthFailure(&model.AuthError{Err: err})
		return false
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logAuthFailure(&model.AuthError{Err: err})
		return false
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logAuthFailure(&model.AuthError{Err: eris.Errorf("token endpoint returned status %d", resp.StatusCode)})
		return false
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		c.logAuthFailure(&model.AuthError{Err: eris.Wrap(err, "decode token response")})
		return false
	}
	if tok.AccessToken == "" {
		c.logAuthFailure(&model.AuthError{Err: eris.New("token response missing access_token")})
		return false
	}
	if tok.TokenType == "" {
		tok.TokenType = "bearer"
	}

	c.mu.Lock()
	c.accessToken = tok.AccessToken
	c.tokenType = tok.TokenType
	c.mu.Unlock()

	zap.L().Info("aedregistry: authenticated",
		zap.Int("expires_in_secs", tok.ExpiresIn),
	)
	return true
}

func (c *Client) logAuthFailure(err error) {
	zap.L().Warn("aedregistry: authentication failed, continuing anonymously", zap.Error(err))
}

// Authenticated reports whether a bearer token is held.
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken != ""
}

// SearchParams narrows an asset search. Latitude, Longitude and
// DistanceMeters are sent only when all three are set; otherwise the search
// is unfiltered apart from the row cap.
type SearchParams struct {
	Latitude       *float64
	Longitude      *float64
	DistanceMeters *int
	MaxRows        int
}

// Asset is one raw registry record. Coordinates are pointers so that records
// missing a position can be told apart from a position at zero.
type Asset struct {
	AssetID         any      `json:"ASSET_ID"`
	AssetGUID       string   `json:"ASSET_GUID"`
	SiteLatitude    *float64 `json:"SITE_LATITUDE"`
	SiteLongitude   *float64 `json:"SITE_LONGITUDE"`
	SiteName        string   `json:"SITE_NAME"`
	SiteAddress     string   `json:"SITE_ADDRESS"`
	SitePostCode    string   `json:"SITE_POST_CODE"`
	SitePostArea    string   `json:"SITE_POST_AREA"`
	SiteFloorNumber any      `json:"SITE_FLOOR_NUMBER"`
	SiteDescription string   `json:"SITE_DESCRIPTION"`
	SiteAccessInfo  string   `json:"SITE_ACCESS_INFO"`
	AssetTypeName   string   `json:"ASSET_TYPE_NAME"`
	SerialNumber    string   `json:"SERIAL_NUMBER"`
	Active          string   `json:"ACTIVE"`
	IsOpen          string   `json:"IS_OPEN"`
	AssetStatus     string   `json:"ASSET_STATUS"`
	CreatedDate     string   `json:"CREATED_DATE"`
	ModifiedDate    string   `json:"MODIFIED_DATE"`
}

// SearchResponse is the search endpoint reply.
type SearchResponse struct {
	Assets           []Asset `json:"ASSETS"`
	APIMessage       string  `json:"API_MESSAGE"`
	APICurrentUserID any     `json:"API_CURRENT_USER_ID"`
}

// SearchAssets queries the registry for assets. The Authorization header is
// attached only when a token is held. Failures map onto the fetch error
// taxonomy: connection problems and timeouts are network errors, non-2xx
// responses carry the status code, unparseable bodies are invalid responses.
func (c *Client) SearchAssets(ctx context.Context, p SearchParams) (*SearchResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &model.FetchError{Reason: model.FetchNetwork, Err: eris.Wrap(err, "rate limit")}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	q := url.Values{}
	maxRows := p.MaxRows
	if maxRows <= 0 {
		maxRows = 5000
	}
	q.Set("max_rows", strconv.Itoa(maxRows))
	if p.Latitude != nil && p.Longitude != nil && p.DistanceMeters != nil {
		q.Set("latitude", strconv.FormatFloat(*p.Latitude, 'f', -1, 64))
		q.Set("longitude", strconv.FormatFloat(*p.Longitude, 'f', -1, 64))
		q.Set("distance", strconv.Itoa(*p.DistanceMeters))
	}

	reqURL := c.baseURL + "/assets/search/?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &model.FetchError{Reason: model.FetchNetwork, Err: eris.Wrap(err, "build search request")}
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	if c.accessToken != "" {
		req.Header.Set("Authorization", c.tokenType+" "+c.accessToken)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.FetchError{Reason: model.FetchNetwork, Err: eris.Wrap(err, "search request")}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.FetchError{Reason: model.FetchHTTPStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.FetchError{Reason: model.FetchNetwork, Err: eris.Wrap(err, "read search body")}
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &model.FetchError{Reason: model.FetchInvalidResponse, Err: eris.Wrap(err, "decode search response")}
	}
	return &out, nil
}
