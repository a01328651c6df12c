// Package ratelimit paces calls to external providers so each one sees at most
// one request per configured interval across the whole process.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultInterval applies to providers without an explicit interval.
const DefaultInterval = time.Second

// DefaultIntervals returns the built-in minimum spacing per provider id.
// Free tiers get the slower pacing.
func DefaultIntervals() map[string]time.Duration {
	return map[string]time.Duration{
		"foursquare": 2 * time.Second,
		"google":     time.Second,
		"opencage":   time.Second,
	}
}

// Gate holds one limiter per provider id. A Gate is safe for concurrent use and
// is meant to be created once per process and shared.
type Gate struct {
	mu        sync.RWMutex
	limiters  map[string]*rate.Limiter
	intervals map[string]time.Duration
	fallback  time.Duration
}

// Option configures a Gate.
type Option func(*Gate)

// WithInterval sets the minimum spacing for a single provider.
func WithInterval(provider string, d time.Duration) Option {
	return func(g *Gate) {
		g.intervals[provider] = d
	}
}

// WithDefaultInterval sets the spacing for providers not configured explicitly.
func WithDefaultInterval(d time.Duration) Option {
	return func(g *Gate) {
		g.fallback = d
	}
}

// NewGate creates a Gate seeded with the given per-provider intervals.
func NewGate(intervals map[string]time.Duration, opts ...Option) *Gate {
	g := &Gate{
		limiters:  make(map[string]*rate.Limiter),
		intervals: make(map[string]time.Duration, len(intervals)),
		fallback:  DefaultInterval,
	}
	for k, v := range intervals {
		g.intervals[k] = v
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Unlimited returns a Gate that never delays. Intended for tests.
func Unlimited() *Gate {
	return NewGate(nil, WithDefaultInterval(0))
}

// Wait blocks until provider may issue its next call. It never rejects; the
// only error is cancellation of ctx.
func (g *Gate) Wait(ctx context.Context, provider string) error {
	lim := g.limiter(provider)
	start := time.Now()
	if err := lim.Wait(ctx); err != nil {
		return eris.Wrapf(err, "ratelimit: wait for %s", provider)
	}
	if waited := time.Since(start); waited > 10*time.Millisecond {
		zap.L().Debug("ratelimit: delayed provider call",
			zap.String("provider", provider),
			zap.Duration("waited", waited),
		)
	}
	return nil
}

// Interval returns the minimum spacing applied to provider.
func (g *Gate) Interval(provider string) time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if d, ok := g.intervals[provider]; ok {
		return d
	}
	return g.fallback
}

func (g *Gate) limiter(provider string) *rate.Limiter {
	g.mu.RLock()
	lim, ok := g.limiters[provider]
	g.mu.RUnlock()
	if ok {
		return lim
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if lim, ok = g.limiters[provider]; ok {
		return lim
	}
	d, ok := g.intervals[provider]
	if !ok {
		d = g.fallback
	}
	limit := rate.Inf
	if d > 0 {
		limit = rate.Every(d)
	}
	lim = rate.NewLimiter(limit, 1)
	g.limiters[provider] = lim
	return lim
}
