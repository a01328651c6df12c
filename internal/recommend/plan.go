package recommend

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/vibepick/internal/location"
	"github.com/sells-group/vibepick/internal/mood"
	"github.com/sells-group/vibepick/internal/places"
)

// Count gates for the search tiers.
const (
	sufficientCount = 5
	plentifulCount  = 10
	tierWidth       = 2
)

// tier is one fallback attempt: a set of searches on a single provider that
// runs only while fewer than below places have been gathered. below <= 0
// runs unconditionally.
type tier struct {
	name     string
	provider places.Provider
	below    int
	queries  []places.SearchQuery
}

// Tier names, also used in logs.
const (
	TierBroad      = "broad"
	TierCategories = "categories"
	TierKeywords   = "keywords"
	TierSecondary  = "secondary"
)

// plan builds the ordered tier list for one recommendation. Tiers whose
// provider is absent or unconfigured are left out.
func (a *Aggregator) plan(profile mood.Profile, origin location.UserLocation, radius int) []tier {
	base := places.SearchQuery{Origin: origin, RadiusMeters: radius}
	var tiers []tier

	if configured(a.primary) {
		caps := a.primary.Capabilities()

		if kw := profile.Keyword(0); kw != "" && caps.Keyword {
			q := base
			q.Keyword = kw
			tiers = append(tiers, tier{name: TierBroad, provider: a.primary, queries: []places.SearchQuery{q}})
		}

		if caps.CategoryCode {
			var qs []places.SearchQuery
			for _, code := range head(profile.CategoryCodes, tierWidth) {
				q := base
				q.CategoryCode = code
				qs = append(qs, q)
			}
			if len(qs) > 0 {
				tiers = append(tiers, tier{name: TierCategories, provider: a.primary, below: sufficientCount, queries: qs})
			}
		}

		if caps.Keyword {
			var qs []places.SearchQuery
			for _, kw := range head(profile.Keywords, tierWidth) {
				q := base
				q.Keyword = kw
				qs = append(qs, q)
			}
			if len(qs) > 0 {
				tiers = append(tiers, tier{name: TierKeywords, provider: a.primary, below: plentifulCount, queries: qs})
			}
		}
	}

	if kw := profile.Keyword(0); kw != "" && configured(a.secondary) {
		q := base
		q.Keyword = kw
		q.RequireOpenNow = a.secondary.Capabilities().RequireOpenNow
		tiers = append(tiers, tier{name: TierSecondary, provider: a.secondary, below: sufficientCount, queries: []places.SearchQuery{q}})
	}

	return tiers
}

// gather runs the tiers in order and accumulates raw results. A failed
// search counts as zero results. It stops early only when ctx is done.
func gather(ctx context.Context, tiers []tier) ([]places.Place, error) {
	var all []places.Place
	for _, t := range tiers {
		if t.below > 0 && len(all) >= t.below {
			zap.L().Debug("recommend: tier skipped",
				zap.String("tier", t.name),
				zap.Int("count", len(all)),
				zap.Int("below", t.below),
			)
			continue
		}

		for _, q := range t.queries {
			if err := ctx.Err(); err != nil {
				return all, err
			}

			found, err := t.provider.Search(ctx, q)
			if err != nil {
				zap.L().Warn("recommend: search step failed",
					zap.String("tier", t.name),
					zap.String("provider", t.provider.Name()),
					zap.String("keyword", q.Keyword),
					zap.String("category", q.CategoryCode),
					zap.Error(err),
				)
				continue
			}
			all = append(all, found...)
		}
	}
	return all, nil
}

func configured(p places.Provider) bool {
	return p != nil && p.Configured()
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
