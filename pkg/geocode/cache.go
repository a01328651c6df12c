package geocode

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a geocoding answer is reused.
const DefaultCacheTTL = 24 * time.Hour

// CachedClient memoizes successful lookups of an underlying Client and
// collapses concurrent identical lookups into one upstream call. Errors are
// never cached.
type CachedClient struct {
	inner Client
	cache *cache.Cache
	group singleflight.Group
}

// NewCachedClient wraps inner with a TTL cache. A non-positive ttl uses DefaultCacheTTL.
func NewCachedClient(inner Client, ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedClient{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Configured delegates to the wrapped client.
func (c *CachedClient) Configured() bool {
	return c.inner.Configured()
}

// Forward returns a cached forward result or asks the wrapped client.
func (c *CachedClient) Forward(ctx context.Context, query, countryCode string) (*Result, error) {
	key := "fwd:" + strings.ToLower(countryCode) + ":" + strings.ToLower(strings.TrimSpace(query))
	return c.load(key, func() (*Result, error) {
		return c.inner.Forward(ctx, query, countryCode)
	})
}

// Reverse returns a cached reverse result or asks the wrapped client.
// Coordinates are keyed at four decimals, roughly 11 meters.
func (c *CachedClient) Reverse(ctx context.Context, lat, lng float64) (*Result, error) {
	key := fmt.Sprintf("rev:%.4f,%.4f", lat, lng)
	return c.load(key, func() (*Result, error) {
		return c.inner.Reverse(ctx, lat, lng)
	})
}

// Len returns the number of cached entries.
func (c *CachedClient) Len() int {
	return c.cache.ItemCount()
}

func (c *CachedClient) load(key string, fetch func() (*Result, error)) (*Result, error) {
	if v, ok := c.cache.Get(key); ok {
		return copyResult(v.(*Result)), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		res, err := fetch()
		if err != nil {
			return nil, err
		}
		c.cache.SetDefault(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return copyResult(v.(*Result)), nil
}

func copyResult(r *Result) *Result {
	out := *r
	if r.Components != nil {
		out.Components = make(Components, len(r.Components))
		for k, v := range r.Components {
			out.Components[k] = v
		}
	}
	return &out
}
