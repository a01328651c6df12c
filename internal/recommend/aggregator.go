// Package recommend turns a mood and a location into ranked place
// recommendations by driving place providers through fallback tiers.
package recommend

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vibepick/internal/location"
	"github.com/sells-group/vibepick/internal/metrics"
	"github.com/sells-group/vibepick/internal/mood"
	"github.com/sells-group/vibepick/internal/places"
)

// ErrNoPlacesFound is returned when no tier produced a single place.
var ErrNoPlacesFound = eris.New("recommend: no places found")

// Defaults.
const (
	DefaultRadiusMeters = 10000
	MaxRanked           = 10
)

// Result is a ranked recommendation list with the selected entry.
type Result struct {
	Mood     mood.Mood        `json:"mood"`
	Ranked   []Recommendation `json:"ranked"`
	Places   []places.Place   `json:"places"`
	Selected int              `json:"selected"`
	Reroll   bool             `json:"reroll"`
}

// Pick returns the selected recommendation.
func (r *Result) Pick() Recommendation {
	return r.Ranked[r.Selected]
}

// Aggregator is stateless per call and safe for concurrent use. Provider
// pacing state lives in the providers' shared gate.
type Aggregator struct {
	taxonomy  *mood.Taxonomy
	primary   places.Provider
	secondary places.Provider
	radius    int
	max       int
	photoURL  PhotoURLFunc
}

// PhotoURLFunc maps a provider photo reference to a URL clients can fetch,
// or "" to keep the mood image.
type PhotoURLFunc func(provider, ref string) string

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSecondary sets the fallback provider used when the primary provider
// under-delivers.
func WithSecondary(p places.Provider) Option {
	return func(a *Aggregator) {
		a.secondary = p
	}
}

// WithDefaultRadius sets the radius used when a request passes none.
func WithDefaultRadius(meters int) Option {
	return func(a *Aggregator) {
		if meters > 0 {
			a.radius = meters
		}
	}
}

// WithTaxonomy replaces the built-in mood taxonomy.
func WithTaxonomy(t *mood.Taxonomy) Option {
	return func(a *Aggregator) {
		if t != nil {
			a.taxonomy = t
		}
	}
}

// WithPhotoURL sets how photo references become image URLs.
func WithPhotoURL(fn PhotoURLFunc) Option {
	return func(a *Aggregator) {
		a.photoURL = fn
	}
}

// New creates an Aggregator over a primary provider, which may be nil or
// unconfigured.
func New(primary places.Provider, opts ...Option) *Aggregator {
	a := &Aggregator{
		taxonomy: mood.Default(),
		primary:  primary,
		radius:   DefaultRadiusMeters,
		max:      MaxRanked,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Taxonomy returns the mood taxonomy in use.
func (a *Aggregator) Taxonomy() *mood.Taxonomy { return a.taxonomy }

// Recommend gathers, deduplicates and ranks places for m around loc and
// selects one. A reroll selects the second-best place, or the best when
// only one exists. radiusMeters <= 0 uses the default radius.
func (a *Aggregator) Recommend(ctx context.Context, m mood.Mood, loc location.UserLocation, radiusMeters int, reroll bool) (*Result, error) {
	profile := a.taxonomy.ProfileFor(m)
	if radiusMeters <= 0 {
		radiusMeters = a.radius
	}

	tiers := a.plan(profile, loc, radiusMeters)
	if len(tiers) == 0 {
		zap.L().Warn("recommend: no configured providers", zap.String("mood", string(profile.Mood)))
	}

	raw, err := gather(ctx, tiers)
	if err != nil {
		return nil, eris.Wrap(err, "recommend: gather")
	}
	if len(raw) == 0 {
		metrics.RecordRecommendation(string(profile.Mood), metrics.OutcomeNoPlaces, reroll)
		return nil, eris.Wrapf(ErrNoPlacesFound, "recommend: mood %s near %s", profile.Mood, loc.Label())
	}

	ranked := Dedup(raw)
	Rank(ranked)
	ranked = Top(ranked, a.max)

	selected, reasonIdx := 0, 0
	if reroll {
		selected = min(1, len(ranked)-1)
		reasonIdx = min(1, len(profile.Reasons)-1)
	}

	res := &Result{
		Mood:     profile.Mood,
		Ranked:   make([]Recommendation, len(ranked)),
		Places:   ranked,
		Selected: selected,
		Reroll:   reroll,
	}
	for i, p := range ranked {
		idx := 0
		if i == selected {
			idx = reasonIdx
		}
		r := Project(p, profile, idx, loc)
		if a.photoURL != nil && r.PhotoRef != "" {
			if u := a.photoURL(p.ProviderID, r.PhotoRef); u != "" {
				r.ImageURL = u
			}
		}
		res.Ranked[i] = r
	}

	metrics.RecordRecommendation(string(profile.Mood), metrics.OutcomeFound, reroll)
	zap.L().Info("recommend: picked place",
		zap.String("mood", string(profile.Mood)),
		zap.Int("raw", len(raw)),
		zap.Int("ranked", len(ranked)),
		zap.Int("selected", selected),
		zap.String("name", ranked[selected].Name),
		zap.String("provider", ranked[selected].ProviderID),
		zap.Bool("reroll", reroll),
	)
	return res, nil
}
