package location

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sells-group/vibepick/internal/geo"
)

// DefaultDeviceTimeout bounds a device position request.
const DefaultDeviceTimeout = 10 * time.Second

// DefaultPositionMaxAge is how long a cached position is reused.
const DefaultPositionMaxAge = 5 * time.Minute

// Position is a raw device fix.
type Position struct {
	Latitude  float64
	Longitude float64
	// Accuracy is the radius of uncertainty in meters, 0 when unknown.
	Accuracy  float64
	Timestamp time.Time
}

// DeviceLocator reads the device position. Implementations report
// failures as *UnavailableError where they know the reason; other errors
// are treated as an unavailable position.
type DeviceLocator interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// Fix is a DeviceLocator that always reports the same coordinates, such as
// a position forwarded by a browser or given on the command line.
type Fix struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// CurrentPosition returns the fixed coordinates.
func (f Fix) CurrentPosition(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	return Position{
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Accuracy:  f.Accuracy,
		Timestamp: time.Now(),
	}, nil
}

const positionKey = "position"

// CachedLocator serves the last successful position while it is younger
// than maxAge, and asks the wrapped locator otherwise. A nil inner locator
// makes it a pure store of remembered positions.
type CachedLocator struct {
	inner DeviceLocator
	cache *cache.Cache
}

// NewCachedLocator wraps inner. A non-positive maxAge uses DefaultPositionMaxAge.
func NewCachedLocator(inner DeviceLocator, maxAge time.Duration) *CachedLocator {
	if maxAge <= 0 {
		maxAge = DefaultPositionMaxAge
	}
	return &CachedLocator{
		inner: inner,
		cache: cache.New(maxAge, 2*maxAge),
	}
}

// CurrentPosition returns a cached or fresh position.
func (c *CachedLocator) CurrentPosition(ctx context.Context) (Position, error) {
	if v, ok := c.cache.Get(positionKey); ok {
		return v.(Position), nil
	}
	if c.inner == nil {
		return Position{}, NewUnavailableError(ReasonUnsupported, nil)
	}
	pos, err := c.inner.CurrentPosition(ctx)
	if err != nil {
		return Position{}, err
	}
	c.cache.SetDefault(positionKey, pos)
	return pos, nil
}

// Remember stores pos as the current position, restarting its age.
func (c *CachedLocator) Remember(pos Position) {
	if pos.Timestamp.IsZero() {
		pos.Timestamp = time.Now()
	}
	c.cache.SetDefault(positionKey, pos)
}

// Cached returns the stored position if it is still fresh.
func (c *CachedLocator) Cached() (Position, bool) {
	v, ok := c.cache.Get(positionKey)
	if !ok {
		return Position{}, false
	}
	return v.(Position), true
}

// Forget drops the cached position.
func (c *CachedLocator) Forget() {
	c.cache.Delete(positionKey)
}

// readDevice obtains a position within timeout and maps every failure to
// an *UnavailableError.
func readDevice(ctx context.Context, loc DeviceLocator, timeout time.Duration) (Position, error) {
	if loc == nil {
		return Position{}, NewUnavailableError(ReasonUnsupported, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pos, err := loc.CurrentPosition(ctx)
	if err != nil {
		var ue *UnavailableError
		switch {
		case errors.As(err, &ue):
			return Position{}, ue
		case errors.Is(err, context.DeadlineExceeded):
			return Position{}, NewUnavailableError(ReasonTimeout, err)
		default:
			return Position{}, NewUnavailableError(ReasonPositionUnavailable, err)
		}
	}

	if !(geo.Point{Lat: pos.Latitude, Lng: pos.Longitude}).Valid() {
		return Position{}, NewUnavailableError(ReasonPositionUnavailable, nil)
	}
	return pos, nil
}
