package places

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vibepick/internal/location"
	"github.com/sells-group/vibepick/internal/metrics"
	"github.com/sells-group/vibepick/internal/ratelimit"
	"github.com/sells-group/vibepick/pkg/foursquare"
)

// FoursquareName is the Foursquare provider id.
const FoursquareName = "foursquare"

// Foursquare adapts the Foursquare Places search API. It honors a keyword
// or, without one, a category code; it has no open-now filter.
type Foursquare struct {
	client foursquare.Client
	call   caller
}

// NewFoursquare creates the adapter. The gate is shared process-wide.
func NewFoursquare(client foursquare.Client, gate *ratelimit.Gate, opts ...Option) *Foursquare {
	return &Foursquare{
		client: client,
		call:   newCaller(FoursquareName, gate, opts),
	}
}

// Name returns the provider id.
func (f *Foursquare) Name() string { return FoursquareName }

// Configured reports whether a key or proxy is set.
func (f *Foursquare) Configured() bool {
	return f.client != nil && f.client.Configured()
}

// Capabilities advertises keyword and category search.
func (f *Foursquare) Capabilities() Capabilities {
	return Capabilities{CategoryCode: true, Keyword: true}
}

// Search runs one Foursquare search.
func (f *Foursquare) Search(ctx context.Context, q SearchQuery) ([]Place, error) {
	if !f.Configured() {
		return nil, f.call.unconfigured()
	}

	req := foursquare.SearchRequest{
		Lat:    q.Origin.Latitude,
		Lng:    q.Origin.Longitude,
		Radius: q.RadiusMeters,
		Query:  q.Keyword,
		Limit:  foursquare.DefaultLimit,
	}
	if q.Keyword == "" && q.CategoryCode != "" {
		req.Categories = []string{q.CategoryCode}
	}

	resp, err := do(ctx, f.call, func(ctx context.Context) (*foursquare.SearchResponse, error) {
		resp, err := f.client.Search(ctx, req)
		var apiErr *foursquare.APIError
		if errors.As(err, &apiErr) {
			return nil, newProviderError(FoursquareName, apiErr.StatusCode, apiErr.Body)
		}
		return resp, err
	})
	if err != nil {
		return nil, eris.Wrap(err, "places: foursquare search")
	}

	out := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, f.toPlace(q.Origin, r))
	}
	metrics.RecordProviderPlaces(FoursquareName, len(out))
	zap.L().Debug("places: foursquare search",
		zap.String("keyword", q.Keyword),
		zap.Strings("categories", req.Categories),
		zap.Int("results", len(out)),
	)
	return out, nil
}

func (f *Foursquare) toPlace(origin location.UserLocation, r foursquare.Place) Place {
	p := Place{
		ProviderID: FoursquareName,
		ExternalID: r.FsqPlaceID,
		Name:       r.Name,
		Address:    r.Location.DisplayAddress(),
		Category:   "establishment",
		Website:    r.Website,
		Phone:      r.Tel,
	}
	if len(r.Categories) > 0 && r.Categories[0].Name != "" {
		p.Category = r.Categories[0].Name
	}
	var lat, lng float64
	ok := r.Latitude != nil && r.Longitude != nil
	if ok {
		lat, lng = *r.Latitude, *r.Longitude
	}
	p.locate(origin, lat, lng, ok)
	return p
}
