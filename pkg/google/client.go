// Package google is a thin client for the Google Places Nearby Search and
// Place Details web services.
package google

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

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// DetailsFields is the field mask requested from the details endpoint.
const DetailsFields = "name,formatted_address,geometry,rating,price_level,opening_hours,website,formatted_phone_number,photos"

// Client performs Google Places API operations.
type Client interface {
	// Configured reports whether an API key was supplied.
	Configured() bool
	NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error)
	Details(ctx context.Context, placeID string) (*Place, error)
	// Photo downloads the image behind a photo reference.
	Photo(ctx context.Context, ref string, maxWidth int) (*PhotoData, error)
}

// PhotoData is a downloaded place photo.
type PhotoData struct {
	ContentType string
	Body        []byte
}

// maxPhotoBytes bounds a photo download.
const maxPhotoBytes = 8 << 20

// NearbySearchRequest holds the Nearby Search parameters. Zero values are omitted.
type NearbySearchRequest struct {
	Lat      float64
	Lng      float64
	Radius   int
	Type     string
	Keyword  string
	OpenNow  bool
	MaxPrice int
}

// NearbySearchResponse is the response from Nearby Search.
type NearbySearchResponse struct {
	Results      []Place `json:"results"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// Place represents a place returned by either endpoint.
type Place struct {
	PlaceID              string        `json:"place_id"`
	Name                 string        `json:"name"`
	Vicinity             string        `json:"vicinity"`
	FormattedAddress     string        `json:"formatted_address"`
	Geometry             Geometry      `json:"geometry"`
	Types                []string      `json:"types"`
	Rating               *float64      `json:"rating,omitempty"`
	PriceLevel           *int          `json:"price_level,omitempty"`
	OpeningHours         *OpeningHours `json:"opening_hours,omitempty"`
	Photos               []Photo       `json:"photos,omitempty"`
	Website              string        `json:"website,omitempty"`
	FormattedPhoneNumber string        `json:"formatted_phone_number,omitempty"`
}

// Geometry holds a place's location.
type Geometry struct {
	Location LatLng `json:"location"`
}

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// OpeningHours holds the open-now flag.
type OpeningHours struct {
	OpenNow *bool `json:"open_now,omitempty"`
}

// Photo is a photo reference.
type Photo struct {
	PhotoReference string `json:"photo_reference"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
}

type detailsResponse struct {
	Result       Place  `json:"result"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// APIError is a non-success answer, either an HTTP status or an API-level
// status on a 200 response. API statuses are mapped onto the HTTP code with
// the same meaning so callers can classify both alike.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google: unexpected status %d: %s", e.StatusCode, e.Body)
}

// statusCodes maps API statuses to the HTTP code with the same meaning.
var statusCodes = map[string]int{
	"INVALID_REQUEST":  http.StatusBadRequest,
	"REQUEST_DENIED":   http.StatusForbidden,
	"NOT_FOUND":        http.StatusNotFound,
	"OVER_QUERY_LIMIT": http.StatusTooManyRequests,
	"UNKNOWN_ERROR":    http.StatusInternalServerError,
}

func statusError(status, message string) *APIError {
	code, ok := statusCodes[status]
	if !ok {
		code = http.StatusBadGateway
	}
	body := status
	if message != "" {
		body += ": " + message
	}
	return &APIError{StatusCode: code, Body: body}
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

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: defaultBaseURL,
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
	return c.apiKey != ""
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error) {
	params := url.Values{
		"location": {strconv.FormatFloat(req.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(req.Lng, 'f', -1, 64)},
		"radius":   {strconv.Itoa(req.Radius)},
		"key":      {c.apiKey},
	}
	if req.Type != "" {
		params.Set("type", req.Type)
	}
	if req.Keyword != "" {
		params.Set("keyword", req.Keyword)
	}
	if req.OpenNow {
		params.Set("opennow", "true")
	}
	if req.MaxPrice > 0 {
		params.Set("maxprice", strconv.Itoa(req.MaxPrice))
	}

	var result NearbySearchResponse
	if err := c.get(ctx, "/nearbysearch/json", params, &result); err != nil {
		return nil, err
	}

	switch result.Status {
	case "OK":
		return &result, nil
	case "ZERO_RESULTS":
		result.Results = nil
		return &result, nil
	default:
		return nil, statusError(result.Status, result.ErrorMessage)
	}
}

func (c *httpClient) Details(ctx context.Context, placeID string) (*Place, error) {
	if strings.TrimSpace(placeID) == "" {
		return nil, eris.New("google: empty place id")
	}
	params := url.Values{
		"place_id": {placeID},
		"fields":   {DetailsFields},
		"key":      {c.apiKey},
	}

	var result detailsResponse
	if err := c.get(ctx, "/details/json", params, &result); err != nil {
		return nil, err
	}
	if result.Status != "OK" {
		return nil, statusError(result.Status, result.ErrorMessage)
	}
	if result.Result.PlaceID == "" {
		result.Result.PlaceID = placeID
	}
	return &result.Result, nil
}

func (c *httpClient) Photo(ctx context.Context, ref string, maxWidth int) (*PhotoData, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, eris.New("google: empty photo reference")
	}
	if maxWidth <= 0 {
		maxWidth = 400
	}
	params := url.Values{
		"maxwidth":       {strconv.Itoa(maxWidth)},
		"photoreference": {ref},
		"key":            {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/photo?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create photo request")
	}
	req.Header.Set("Accept", "image/*")

	// The endpoint redirects to the image; the client follows it.
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: send photo request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "google: read photo")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if len(body) > maxPhotoBytes {
		return nil, eris.Errorf("google: photo exceeds %d bytes", maxPhotoBytes)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return &PhotoData{ContentType: ct, Body: body}, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "google: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "google: unmarshal response")
	}
	return nil
}
