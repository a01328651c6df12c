// Package resilience provides circuit breaking, retry and transient error
// classification for calls to external place and geocoding providers.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig controls per-provider circuit breakers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive transient failures
	// that opens a provider's circuit. Default: 5.
	FailureThreshold uint32

	// ResetTimeout is how long an open circuit rejects calls before a
	// half-open probe is allowed. Default: 30s.
	ResetTimeout time.Duration

	// OnStateChange is called on every transition, after it is logged.
	OnStateChange func(provider string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns the breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}

// Breakers is a registry of circuit breakers keyed by provider id. Only
// transient failures count against a provider: a 401 or an empty result
// says nothing about its availability.
type Breakers struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
	cfg      BreakerConfig
}

// NewBreakers creates an empty registry.
func NewBreakers(cfg BreakerConfig) *Breakers {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	return &Breakers{
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
		cfg:      cfg,
	}
}

// Get returns the breaker for provider, creating it on first use.
func (b *Breakers) Get(provider string) *gobreaker.CircuitBreaker[any] {
	b.mu.RLock()
	cb, ok := b.breakers[provider]
	b.mu.RUnlock()
	if ok {
		return cb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok = b.breakers[provider]; ok {
		return cb
	}
	cb = gobreaker.NewCircuitBreaker[any](b.settings(provider))
	b.breakers[provider] = cb
	return cb
}

func (b *Breakers) settings(provider string) gobreaker.Settings {
	threshold := b.cfg.FailureThreshold
	hook := b.cfg.OnStateChange
	return gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Timeout:     b.cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Info("resilience: circuit state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if hook != nil {
				hook(name, from, to)
			}
		},
	}
}

// States returns a snapshot of every known breaker's state.
func (b *Breakers) States() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	states := make(map[string]string, len(b.breakers))
	for name, cb := range b.breakers {
		states[name] = cb.State().String()
	}
	return states
}

// Call runs fn through the provider's breaker. A nil registry runs fn
// directly.
func Call[T any](ctx context.Context, b *Breakers, provider string, fn func(ctx context.Context) (T, error)) (T, error) {
	if b == nil {
		return fn(ctx)
	}
	var zero T
	out, err := b.Get(provider).Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		if v, ok := out.(T); ok {
			return v, err
		}
		return zero, err
	}
	v, ok := out.(T)
	if !ok {
		return zero, nil
	}
	return v, nil
}

// IsOpen reports whether err is a rejection by an open or probing circuit.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
