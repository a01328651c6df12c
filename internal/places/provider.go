package places

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/vibepick/internal/metrics"
	"github.com/sells-group/vibepick/internal/ratelimit"
	"github.com/sells-group/vibepick/internal/resilience"
)

// Provider searches one place provider.
type Provider interface {
	// Name is the provider id, also used as the pacing key.
	Name() string
	// Configured reports whether Search can reach the provider.
	Configured() bool
	Capabilities() Capabilities
	// Search runs one query. It returns ErrProviderUnconfigured without
	// credentials and a *ProviderError for non-success answers.
	Search(ctx context.Context, q SearchQuery) ([]Place, error)
}

// Option configures a provider adapter.
type Option func(*caller)

// WithRetry sets the retry policy for transient provider failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *caller) {
		c.retry = cfg
	}
}

// WithBreakers routes calls through per-provider circuit breakers.
func WithBreakers(b *resilience.Breakers) Option {
	return func(c *caller) {
		c.breakers = b
	}
}

// caller runs provider requests through breaker, retry and pacing gate.
type caller struct {
	name     string
	gate     *ratelimit.Gate
	retry    resilience.RetryConfig
	breakers *resilience.Breakers
}

func newCaller(name string, gate *ratelimit.Gate, opts []Option) caller {
	if gate == nil {
		gate = ratelimit.NewGate(ratelimit.DefaultIntervals())
	}
	c := caller{
		name:  name,
		gate:  gate,
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger(name, "search")
	}
	return c
}

// do waits on the gate before every attempt, so retries are paced too.
func do[T any](ctx context.Context, c caller, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	out, err := resilience.Call(ctx, c.breakers, c.name, func(ctx context.Context) (T, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (T, error) {
			if err := c.gate.Wait(ctx, c.name); err != nil {
				var zero T
				return zero, err
			}
			return fn(ctx)
		})
	})

	outcome := metrics.OutcomeOK
	switch {
	case resilience.IsOpen(err):
		outcome = metrics.OutcomeCircuitOpen
	case err != nil:
		outcome = metrics.OutcomeError
	}
	metrics.RecordProviderCall(c.name, outcome, time.Since(start))
	return out, err
}

func (c caller) unconfigured() error {
	metrics.RecordProviderCall(c.name, metrics.OutcomeUnconfigured, 0)
	zap.L().Debug("places: provider not configured", zap.String("provider", c.name))
	return ErrProviderUnconfigured
}

// IsProviderError reports whether err carries a *ProviderError and returns it.
func IsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
