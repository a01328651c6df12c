package location

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vibepick/internal/geo"
	"github.com/sells-group/vibepick/internal/metrics"
	"github.com/sells-group/vibepick/pkg/geocode"
)

var postalPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// City and state component keys, most specific first.
var (
	reverseCityKeys  = []string{"city", "town", "village", "county", "suburb", "neighbourhood"}
	reverseStateKeys = []string{"state_code", "state", "province", "region"}
	forwardCityKeys  = []string{"city", "town", "village", "county"}
	forwardStateKeys = []string{"state_code", "state"}
)

// Resolver turns device positions and postal codes into UserLocations.
// It holds no per-request state and is safe for concurrent use.
type Resolver struct {
	geocoder      geocode.Client
	deviceTimeout time.Duration
	cities        []geo.Metro
	fallback      UserLocation
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGeocoder sets the forward and reverse geocoder. An unconfigured
// client is treated like none.
func WithGeocoder(c geocode.Client) Option {
	return func(r *Resolver) {
		r.geocoder = c
	}
}

// WithDeviceTimeout bounds device position requests.
func WithDeviceTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.deviceTimeout = d
		}
	}
}

// WithReferenceCities replaces the reference city table.
func WithReferenceCities(cities []geo.Metro) Option {
	return func(r *Resolver) {
		r.cities = cities
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		deviceTimeout: DefaultDeviceTimeout,
		cities:        ReferenceCities,
		fallback:      DefaultLocation,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) geocoderReady() bool {
	return r.geocoder != nil && r.geocoder.Configured()
}

// FromDevice reads the device position and labels it. It fails only with
// an *UnavailableError when the position cannot be read.
func (r *Resolver) FromDevice(ctx context.Context, loc DeviceLocator) (UserLocation, error) {
	pos, err := readDevice(ctx, loc, r.deviceTimeout)
	if err != nil {
		return UserLocation{}, err
	}
	return r.label(ctx, pos.Latitude, pos.Longitude)
}

// FromCoordinates labels coordinates that were already obtained. Invalid
// coordinates are reported as an unavailable position.
func (r *Resolver) FromCoordinates(ctx context.Context, lat, lng float64) (UserLocation, error) {
	return r.FromDevice(ctx, Fix{Latitude: lat, Longitude: lng})
}

func (r *Resolver) label(ctx context.Context, lat, lng float64) (UserLocation, error) {
	base := UserLocation{Latitude: lat, Longitude: lng}
	var reverse *geocode.Result

	steps := []step{
		{name: SourceReverseGeocode, run: func(ctx context.Context) (UserLocation, error) {
			if !r.geocoderReady() {
				return UserLocation{}, errSkipped
			}
			res, err := r.geocoder.Reverse(ctx, lat, lng)
			if err != nil {
				return UserLocation{}, err
			}
			if !res.Matched {
				return UserLocation{}, eris.New("location: no reverse geocoding result")
			}
			reverse = res
			city := res.Components.First(reverseCityKeys...)
			state := res.Components.First(reverseStateKeys...)
			if city == "" || state == "" {
				return UserLocation{}, eris.Errorf("location: incomplete components city=%q state=%q", city, state)
			}
			out := base
			out.City, out.State = city, state
			return out, nil
		}},
		{name: SourceFormattedAddress, run: func(context.Context) (UserLocation, error) {
			if reverse == nil || reverse.Formatted == "" {
				return UserLocation{}, errSkipped
			}
			city, state, ok := SplitFormatted(reverse.Formatted)
			if !ok {
				return UserLocation{}, eris.Errorf("location: formatted address %q not usable", reverse.Formatted)
			}
			out := base
			out.City, out.State = city, state
			return out, nil
		}},
		{name: SourceReferenceCity, run: func(context.Context) (UserLocation, error) {
			a, ok := geo.Associate(base.Point(), r.cities, ReferenceRadiusMiles)
			if !ok {
				return UserLocation{}, eris.New("location: no reference city within range")
			}
			out := base
			out.City, out.State = a.Metro.City, a.Metro.State
			return out, nil
		}},
		{name: SourcePlaceholder, run: func(context.Context) (UserLocation, error) {
			out := base
			out.City, out.State = PlaceholderCity, PlaceholderState
			return out, nil
		}},
	}

	out, err := runChain(ctx, "device", steps)
	if err != nil {
		return UserLocation{}, err
	}
	r.record(out)
	return out, nil
}

// SplitFormatted extracts city and state from a formatted address: the
// first comma segment is the city and the last the state. The split is
// accepted only for a short state token and a longer city token.
func SplitFormatted(formatted string) (city, state string, ok bool) {
	var parts []string
	for _, p := range strings.Split(formatted, ",") {
		parts = append(parts, strings.TrimSpace(p))
	}
	if len(parts) < 2 {
		return "", "", false
	}
	city, state = parts[0], parts[len(parts)-1]
	if len(state) > 3 || len(city) <= 3 || state == "" {
		return "", "", false
	}
	return city, state, true
}

// FromPostalCode resolves a US postal code. Only ErrInvalidPostalCode is
// ever returned; every well-formed code yields a location tagged with it.
func (r *Resolver) FromPostalCode(ctx context.Context, code string) (UserLocation, error) {
	clean := CleanPostalCode(code)
	if !postalPattern.MatchString(clean) {
		return UserLocation{}, eris.Wrapf(ErrInvalidPostalCode, "location: %q", code)
	}

	// Set when the geocoder found the code but not its city and state. Its
	// coordinates are labeled the way a device position is.
	var partial *partialMatch

	steps := []step{
		{name: SourceForwardGeocode, run: func(ctx context.Context) (UserLocation, error) {
			if !r.geocoderReady() {
				return UserLocation{}, errSkipped
			}
			res, err := r.geocoder.Forward(ctx, clean, "us")
			if err != nil {
				return UserLocation{}, err
			}
			if !res.Matched {
				return UserLocation{}, eris.Errorf("location: postal code %s not found", clean)
			}
			out := UserLocation{
				Latitude:   res.Latitude,
				Longitude:  res.Longitude,
				City:       res.Components.First(forwardCityKeys...),
				State:      res.Components.First(forwardStateKeys...),
				PostalCode: clean,
			}
			if out.City == "" || out.State == "" {
				partial = &partialMatch{out}
				return UserLocation{}, eris.Errorf("location: incomplete components city=%q state=%q", out.City, out.State)
			}
			return out, nil
		}},
		{name: SourceReferenceCity, run: func(context.Context) (UserLocation, error) {
			if !partial.usable() {
				return UserLocation{}, errSkipped
			}
			a, ok := geo.Associate(partial.Point(), r.cities, ReferenceRadiusMiles)
			if !ok {
				return UserLocation{}, eris.New("location: no reference city within range")
			}
			return partial.fill(a.Metro.City, a.Metro.State), nil
		}},
		{name: SourcePlaceholder, run: func(context.Context) (UserLocation, error) {
			if !partial.usable() {
				return UserLocation{}, errSkipped
			}
			return partial.fill(PlaceholderCity, PlaceholderState), nil
		}},
		{name: SourcePostalTable, run: func(context.Context) (UserLocation, error) {
			e, ok := lookupPostal(clean)
			if !ok {
				return UserLocation{}, eris.Errorf("location: postal code %s not in table", clean)
			}
			return UserLocation{
				Latitude:   e.lat,
				Longitude:  e.lng,
				City:       e.city,
				State:      e.state,
				PostalCode: clean,
			}, nil
		}},
		{name: SourceDefault, run: func(context.Context) (UserLocation, error) {
			out := r.fallback
			out.PostalCode = clean
			return out, nil
		}},
	}

	out, err := runChain(ctx, "postal", steps)
	if err != nil {
		return UserLocation{}, err
	}
	r.record(out)
	return out, nil
}

// partialMatch is a forward geocoding answer missing its city or state.
type partialMatch struct {
	UserLocation
}

func (p *partialMatch) usable() bool {
	return p != nil && p.Point().Valid()
}

// fill supplies the labels the geocoder left out.
func (p *partialMatch) fill(city, state string) UserLocation {
	out := p.UserLocation
	if out.City == "" {
		out.City = city
	}
	if out.State == "" {
		out.State = state
	}
	return out
}

func (r *Resolver) record(loc UserLocation) {
	metrics.RecordLocation(loc.Source)
	zap.L().Info("location: resolved",
		zap.String("source", loc.Source),
		zap.String("label", loc.Label()),
		zap.String("postal_code", loc.PostalCode),
	)
}
