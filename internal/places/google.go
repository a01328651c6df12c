package places

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vibepick/internal/location"
	"github.com/sells-group/vibepick/internal/metrics"
	"github.com/sells-group/vibepick/internal/ratelimit"
	"github.com/sells-group/vibepick/pkg/google"
)

// GoogleName is the Google Places provider id.
const GoogleName = "google"

const photoMaxWidth = 400

// Google adapts Google Places Nearby Search. It honors a place type, a
// keyword and the open-now filter.
type Google struct {
	client google.Client
	call   caller
}

// NewGoogle creates the adapter. The gate is shared process-wide.
func NewGoogle(client google.Client, gate *ratelimit.Gate, opts ...Option) *Google {
	return &Google{
		client: client,
		call:   newCaller(GoogleName, gate, opts),
	}
}

// Name returns the provider id.
func (g *Google) Name() string { return GoogleName }

// Configured reports whether an API key is set.
func (g *Google) Configured() bool {
	return g.client != nil && g.client.Configured()
}

// Capabilities advertises type, keyword and open-now search.
func (g *Google) Capabilities() Capabilities {
	return Capabilities{CategoryCode: true, Keyword: true, RequireOpenNow: true}
}

// Search runs one Nearby Search.
func (g *Google) Search(ctx context.Context, q SearchQuery) ([]Place, error) {
	if !g.Configured() {
		return nil, g.call.unconfigured()
	}

	req := google.NearbySearchRequest{
		Lat:     q.Origin.Latitude,
		Lng:     q.Origin.Longitude,
		Radius:  q.RadiusMeters,
		Type:    q.CategoryCode,
		Keyword: q.Keyword,
		OpenNow: q.RequireOpenNow,
	}

	resp, err := do(ctx, g.call, func(ctx context.Context) (*google.NearbySearchResponse, error) {
		resp, err := g.client.NearbySearch(ctx, req)
		return resp, g.convert(err)
	})
	if err != nil {
		return nil, eris.Wrap(err, "places: google nearby search")
	}

	out := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, g.toPlace(q.Origin, r))
	}
	metrics.RecordProviderPlaces(GoogleName, len(out))
	zap.L().Debug("places: google nearby search",
		zap.String("keyword", q.Keyword),
		zap.Bool("open_now", q.RequireOpenNow),
		zap.Int("results", len(out)),
	)
	return out, nil
}

// Details fetches one place by id. Without an origin the distance is 0.
func (g *Google) Details(ctx context.Context, placeID string) (*Place, error) {
	if !g.Configured() {
		return nil, g.call.unconfigured()
	}

	res, err := do(ctx, g.call, func(ctx context.Context) (*google.Place, error) {
		res, err := g.client.Details(ctx, placeID)
		return res, g.convert(err)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "places: google details %s", placeID)
	}

	p := g.toPlace(location.UserLocation{}, *res)
	if res.FormattedAddress != "" {
		p.Address = res.FormattedAddress
	}
	p.DistanceMiles = 0
	return &p, nil
}

// Photo downloads the image for a photo reference. The API key stays on
// the server; callers expose the bytes, never a keyed URL.
func (g *Google) Photo(ctx context.Context, ref string) (*google.PhotoData, error) {
	if !g.Configured() {
		return nil, g.call.unconfigured()
	}

	photo, err := do(ctx, g.call, func(ctx context.Context) (*google.PhotoData, error) {
		photo, err := g.client.Photo(ctx, ref, photoMaxWidth)
		return photo, g.convert(err)
	})
	if err != nil {
		return nil, eris.Wrap(err, "places: google photo")
	}
	return photo, nil
}

func (g *Google) convert(err error) error {
	var apiErr *google.APIError
	if errors.As(err, &apiErr) {
		return newProviderError(GoogleName, apiErr.StatusCode, apiErr.Body)
	}
	return err
}

func (g *Google) toPlace(origin location.UserLocation, r google.Place) Place {
	p := Place{
		ProviderID: GoogleName,
		ExternalID: r.PlaceID,
		Name:       r.Name,
		Address:    r.Vicinity,
		Category:   "establishment",
		Rating:     r.Rating,
		Website:    r.Website,
		Phone:      r.FormattedPhoneNumber,
	}
	if p.Address == "" {
		p.Address = r.FormattedAddress
	}
	if len(r.Types) > 0 && r.Types[0] != "" {
		p.Category = r.Types[0]
	}
	if r.PriceLevel != nil {
		p.PriceLevel = PriceSymbols(*r.PriceLevel)
	}
	if r.OpeningHours != nil {
		p.OpenNow = r.OpeningHours.OpenNow
	}
	for _, ph := range r.Photos {
		if ph.PhotoReference != "" {
			p.PhotoRefs = append(p.PhotoRefs, ph.PhotoReference)
		}
	}
	loc := r.Geometry.Location
	p.locate(origin, loc.Lat, loc.Lng, loc.Lat != 0 || loc.Lng != 0)
	return p
}
