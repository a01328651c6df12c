// Package places adapts place-search providers to a common Place record.
package places

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vibepick/internal/geo"
	"github.com/sells-group/vibepick/internal/location"
	"github.com/sells-group/vibepick/internal/resilience"
)

// ErrProviderUnconfigured is returned by Search when a provider has no credentials.
var ErrProviderUnconfigured = eris.New("places: provider not configured")

// ProviderError is a non-success answer from a provider.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

const maxErrorBody = 512

func (e *ProviderError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("places: %s returned status %d: %s", e.Provider, e.Status, body)
}

// newProviderError builds a ProviderError, marked transient for statuses a
// provider is expected to recover from.
func newProviderError(provider string, status int, body string) error {
	return resilience.ClassifyStatus(&ProviderError{Provider: provider, Status: status, Body: body}, status)
}

// SearchQuery is one provider call. Providers ignore the fields their
// Capabilities do not list.
type SearchQuery struct {
	Origin         location.UserLocation
	RadiusMeters   int
	CategoryCode   string
	Keyword        string
	RequireOpenNow bool
}

// Capabilities lists the SearchQuery fields a provider honors.
type Capabilities struct {
	CategoryCode   bool `json:"category_code"`
	Keyword        bool `json:"keyword"`
	RequireOpenNow bool `json:"require_open_now"`
}

// Place is a provider result in common form. DistanceMiles is always
// computed locally from the query origin and is 0 when the provider gave
// no coordinates.
type Place struct {
	ProviderID     string   `json:"provider_id"`
	ExternalID     string   `json:"external_id"`
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	HasCoordinates bool     `json:"has_coordinates"`
	Category       string   `json:"category"`
	Rating         *float64 `json:"rating,omitempty"`
	PriceLevel     string   `json:"price_level,omitempty"`
	OpenNow        *bool    `json:"open_now,omitempty"`
	PhotoRefs      []string `json:"photo_refs,omitempty"`
	Website        string   `json:"website,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	DistanceMiles  float64  `json:"distance_miles"`
}

// DedupKey identifies the same physical place across providers and queries.
type DedupKey struct {
	Name string
	Lat  float64
	Lng  float64
}

// Key returns the place's dedup key: its name and coordinates rounded to
// four decimals.
func (p Place) Key() DedupKey {
	return DedupKey{
		Name: strings.TrimSpace(p.Name),
		Lat:  round4(p.Latitude),
		Lng:  round4(p.Longitude),
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// locate sets the coordinates and local distance of p.
func (p *Place) locate(origin location.UserLocation, lat, lng float64, ok bool) {
	if !ok || !(geo.Point{Lat: lat, Lng: lng}).Valid() {
		p.Latitude, p.Longitude = 0, 0
		p.HasCoordinates = false
		p.DistanceMiles = 0
		return
	}
	p.Latitude, p.Longitude = lat, lng
	p.HasCoordinates = true
	p.DistanceMiles = geo.DistanceMiles(origin.Point(), geo.Point{Lat: lat, Lng: lng})
}

// PriceSymbols renders a 1-4 price level as dollar signs.
func PriceSymbols(level int) string {
	if level <= 0 {
		return ""
	}
	return strings.Repeat("$", level)
}
