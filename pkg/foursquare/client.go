// Package foursquare is a thin client for the Foursquare Places search API.
package foursquare

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://places-api.foursquare.com/places"

// DefaultAPIVersion is sent as X-Places-Api-Version.
const DefaultAPIVersion = "2025-06-17"

// DefaultLimit is the page size requested per search.
const DefaultLimit = 50

// Client performs Foursquare Places searches.
type Client interface {
	// Configured reports whether searches can be sent: an API key is set or
	// the client talks to a credential-injecting proxy.
	Configured() bool
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest holds the search parameters. Query takes precedence over
// Categories when both are set.
type SearchRequest struct {
	Lat        float64
	Lng        float64
	Radius     int
	Query      string
	Categories []string
	Limit      int
}

// SearchResponse is the response from /places/search.
type SearchResponse struct {
	Results []Place `json:"results"`
}

// Place represents a place returned by search.
type Place struct {
	FsqPlaceID string     `json:"fsq_place_id"`
	Name       string     `json:"name"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	Categories []Category `json:"categories"`
	Location   Location   `json:"location"`
	Website    string     `json:"website,omitempty"`
	Tel        string     `json:"tel,omitempty"`
	Distance   int        `json:"distance,omitempty"`
}

// Category is a Foursquare place category.
type Category struct {
	FsqCategoryID string `json:"fsq_category_id"`
	Name          string `json:"name"`
}

// Location is the address block of a place.
type Location struct {
	Address          string `json:"address,omitempty"`
	Locality         string `json:"locality,omitempty"`
	Region           string `json:"region,omitempty"`
	Postcode         string `json:"postcode,omitempty"`
	FormattedAddress string `json:"formatted_address,omitempty"`
}

// DisplayAddress is the formatted address, or "locality, region" when absent.
func (l Location) DisplayAddress() string {
	if a := strings.TrimSpace(l.FormattedAddress); a != "" {
		return a
	}
	var parts []string
	for _, p := range []string{l.Locality, l.Region} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// APIError is a non-success HTTP answer.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("foursquare: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithAPIVersion overrides the X-Places-Api-Version header.
func WithAPIVersion(v string) Option {
	return func(c *httpClient) {
		if v != "" {
			c.apiVersion = v
		}
	}
}

// WithProxy sends requests to a same-origin proxy that injects credentials
// itself. No authorization headers are sent in this mode.
func WithProxy(baseURL string) Option {
	return func(c *httpClient) {
		c.proxy = true
		WithBaseURL(baseURL)(c)
	}
}

type httpClient struct {
	apiKey     string
	apiVersion string
	baseURL    string
	proxy      bool
	http       *http.Client
}

// NewClient creates a Foursquare Places client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:     strings.TrimSpace(apiKey),
		apiVersion: DefaultAPIVersion,
		baseURL:    defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Configured() bool {
	return c.apiKey != "" || c.proxy
}

func (c *httpClient) Search(ctx context.Context, sr SearchRequest) (*SearchResponse, error) {
	limit := sr.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	params := url.Values{
		"ll":     {strconv.FormatFloat(sr.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(sr.Lng, 'f', -1, 64)},
		"radius": {strconv.Itoa(sr.Radius)},
		"limit":  {strconv.Itoa(limit)},
	}
	if q := strings.TrimSpace(sr.Query); q != "" {
		params.Set("query", q)
	} else if len(sr.Categories) > 0 {
		params.Set("categories", strings.Join(sr.Categories, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: create request")
	}
	req.Header.Set("Accept", "application/json")
	if !c.proxy {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("X-Places-Api-Version", c.apiVersion)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "foursquare: unmarshal response")
	}
	return &result, nil
}
