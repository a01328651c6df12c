// Package geocode provides forward and reverse geocoding against the OpenCage API.
package geocode

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vibepick/internal/resilience"
)

// ProviderName is the id the client paces itself under.
const ProviderName = "opencage"

// DefaultBaseURL is the OpenCage geocoding endpoint.
const DefaultBaseURL = "https://api.opencagedata.com/geocode/v1/json"

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = eris.New("geocode: api key not configured")

// Client geocodes free-text queries and coordinates.
type Client interface {
	// Configured reports whether the client has credentials.
	Configured() bool

	// Forward geocodes a query such as a postal code, optionally restricted to
	// an ISO 3166 country code.
	Forward(ctx context.Context, query, countryCode string) (*Result, error)

	// Reverse geocodes a coordinate pair.
	Reverse(ctx context.Context, lat, lng float64) (*Result, error)
}

// Pacer delays a call until the named provider may be called again.
type Pacer interface {
	Wait(ctx context.Context, provider string) error
}

// Result holds the first match of a geocoding request. A request that
// returns no results yields Matched == false and no error.
type Result struct {
	Latitude   float64
	Longitude  float64
	Components Components
	Formatted  string
	Confidence int
	Matched    bool
}

// Components holds the string-valued address components of a match, keyed
// by OpenCage component name (city, town, state_code, postcode, ...).
type Components map[string]string

// First returns the first non-blank component among keys.
func (c Components) First(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c[k]); v != "" {
			return v
		}
	}
	return ""
}

type response struct {
	Results []struct {
		Components map[string]any `json:"components"`
		Formatted  string         `json:"formatted"`
		Confidence int            `json:"confidence"`
		Geometry   struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
	} `json:"results"`
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

// Option configures the client.
type Option func(*client)

// WithAPIKey sets the OpenCage API key. An empty key leaves the client unconfigured.
func WithAPIKey(key string) Option {
	return func(c *client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithBaseURL overrides the geocoding endpoint.
func WithBaseURL(u string) Option {
	return func(c *client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithPacer sets the shared pacing gate.
func WithPacer(p Pacer) Option {
	return func(c *client) {
		c.pacer = p
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

type client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	pacer      Pacer
	retry      resilience.RetryConfig
}

// NewClient creates an OpenCage client.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger(ProviderName, "geocode")
	}
	return c
}

func (c *client) Configured() bool {
	return c.apiKey != ""
}

func (c *client) Forward(ctx context.Context, query, countryCode string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, eris.New("geocode: empty query")
	}
	params := url.Values{"q": {query}}
	if countryCode != "" {
		params.Set("countrycode", strings.ToLower(countryCode))
	}
	res, err := c.lookup(ctx, params)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: forward %q", query)
	}
	return res, nil
}

// Reverse sends the pair space-separated, which encodes as q=lat+lng.
func (c *client) Reverse(ctx context.Context, lat, lng float64) (*Result, error) {
	q := strconv.FormatFloat(lat, 'f', -1, 64) + " " + strconv.FormatFloat(lng, 'f', -1, 64)
	res, err := c.lookup(ctx, url.Values{"q": {q}})
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: reverse %s", q)
	}
	return res, nil
}

func (c *client) lookup(ctx context.Context, params url.Values) (*Result, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	params.Set("key", c.apiKey)
	params.Set("limit", "1")
	params.Set("no_annotations", "1")
	reqURL := c.baseURL + "?" + params.Encode()

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Result, error) {
		return c.do(ctx, reqURL)
	})
}

func (c *client) do(ctx context.Context, reqURL string) (*Result, error) {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx, ProviderName); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.ClassifyStatus(
			eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)),
			resp.StatusCode,
		)
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "parse response")
	}

	if len(parsed.Results) == 0 {
		return &Result{Matched: false}, nil
	}

	first := parsed.Results[0]
	components := make(Components, len(first.Components))
	for k, v := range first.Components {
		if s, ok := v.(string); ok {
			components[k] = s
		}
	}
	return &Result{
		Latitude:   first.Geometry.Lat,
		Longitude:  first.Geometry.Lng,
		Components: components,
		Formatted:  first.Formatted,
		Confidence: first.Confidence,
		Matched:    true,
	}, nil
}
