// Package metrics exposes Prometheus instruments for provider calls,
// location resolution and recommendations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider call outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeError        = "error"
	OutcomeUnconfigured = "unconfigured"
	OutcomeCircuitOpen  = "circuit_open"
)

// Recommendation outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNoPlaces = "no_places"
)

var (
	// ProviderRequestsTotal counts place and geocoding provider calls by outcome.
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibepick_provider_requests_total",
			Help: "Total number of provider calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderRequestDuration tracks provider call latency including pacing waits.
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vibepick_provider_request_duration_seconds",
			Help:    "Duration of provider calls in seconds, pacing included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"provider"},
	)

	// ProviderPlacesTotal counts places returned per provider before dedup.
	ProviderPlacesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibepick_provider_places_total",
			Help: "Total number of places returned by each provider before dedup",
		},
		[]string{"provider"},
	)

	// LocationResolutionsTotal counts resolved locations by the tier that produced them.
	LocationResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibepick_location_resolutions_total",
			Help: "Total number of resolved user locations by source tier",
		},
		[]string{"source"},
	)

	// RecommendationsTotal counts Recommend calls by mood and outcome.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibepick_recommendations_total",
			Help: "Total number of recommendation requests by mood and outcome",
		},
		[]string{"mood", "outcome"},
	)

	// RerollsTotal counts rerolls served.
	RerollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vibepick_rerolls_total",
			Help: "Total number of rerolled recommendations",
		},
	)

	// CircuitState reports each provider breaker: 0 closed, 1 half-open, 2 open.
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vibepick_circuit_state",
			Help: "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		},
		[]string{"provider"},
	)
)

// RecordProviderCall records one provider call.
func RecordProviderCall(provider, outcome string, d time.Duration) {
	ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
	if outcome == OutcomeOK || outcome == OutcomeError {
		ProviderRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
	}
}

// RecordProviderPlaces adds n raw places for provider.
func RecordProviderPlaces(provider string, n int) {
	if n > 0 {
		ProviderPlacesTotal.WithLabelValues(provider).Add(float64(n))
	}
}

// RecordLocation records a resolved location's source tier.
func RecordLocation(source string) {
	LocationResolutionsTotal.WithLabelValues(source).Inc()
}

// RecordRecommendation records the outcome of a Recommend call.
func RecordRecommendation(mood, outcome string, reroll bool) {
	RecommendationsTotal.WithLabelValues(mood, outcome).Inc()
	if reroll && outcome == OutcomeFound {
		RerollsTotal.Inc()
	}
}

// SetCircuitState records a breaker transition. state follows gobreaker's
// ordering: 0 closed, 1 half-open, 2 open.
func SetCircuitState(provider string, state int) {
	CircuitState.WithLabelValues(provider).Set(float64(state))
}
