package main

import (
	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/sells-group/vibepick/internal/config"
	"github.com/sells-group/vibepick/internal/location"
	"github.com/sells-group/vibepick/internal/metrics"
	"github.com/sells-group/vibepick/internal/mood"
	"github.com/sells-group/vibepick/internal/places"
	"github.com/sells-group/vibepick/internal/ratelimit"
	"github.com/sells-group/vibepick/internal/recommend"
	"github.com/sells-group/vibepick/internal/resilience"
	"github.com/sells-group/vibepick/pkg/foursquare"
	"github.com/sells-group/vibepick/pkg/geocode"
	"github.com/sells-group/vibepick/pkg/google"
)

// appEnv holds the process-wide collaborators shared by every command.
// The gate and breakers model external quotas and are built once.
type appEnv struct {
	Gate        *ratelimit.Gate
	Breakers    *resilience.Breakers
	Taxonomy    *mood.Taxonomy
	Geocoder    geocode.Client
	Resolver    *location.Resolver
	Foursquare  *places.Foursquare
	Google      *places.Google
	Recommender recommend.Recommender
}

// initApp builds clients, adapters and the aggregator from configuration.
// Missing provider keys leave that provider unconfigured; they never fail.
func initApp(c *config.Config) (*appEnv, error) {
	tax := mood.Default()
	if c.Mood.File != "" {
		t, err := mood.Load(c.Mood.File)
		if err != nil {
			return nil, eris.Wrap(err, "load mood taxonomy")
		}
		tax = t
	}

	gate := ratelimit.NewGate(ratelimit.DefaultIntervals(),
		ratelimit.WithInterval(places.FoursquareName, c.Foursquare.MinInterval()),
		ratelimit.WithInterval(places.GoogleName, c.Google.MinInterval()),
		ratelimit.WithInterval(geocode.ProviderName, c.OpenCage.MinInterval()),
	)

	bcfg := resilience.FromBreakerConfig(c.Resilience.FailureThreshold, c.Resilience.ResetTimeoutSecs)
	bcfg.OnStateChange = func(provider string, _, to gobreaker.State) {
		metrics.SetCircuitState(provider, int(to))
	}
	breakers := resilience.NewBreakers(bcfg)
	retry := resilience.FromRetryConfig(c.Resilience.RetryAttempts, c.Resilience.RetryBackoffMs)

	var geocoder geocode.Client = geocode.NewClient(
		geocode.WithAPIKey(c.OpenCage.Key),
		geocode.WithBaseURL(c.OpenCage.BaseURL),
		geocode.WithPacer(gate),
		geocode.WithRetry(retry),
	)
	if c.OpenCage.CacheTTL() > 0 {
		geocoder = geocode.NewCachedClient(geocoder, c.OpenCage.CacheTTL())
	}
	if !geocoder.Configured() {
		zap.L().Debug("VIBEPICK_OPENCAGE_KEY not set, geocoding falls back to reference tables")
	}

	resolver := location.NewResolver(
		location.WithGeocoder(geocoder),
		location.WithDeviceTimeout(c.Device.Timeout()),
	)

	fsqOpts := []foursquare.Option{
		foursquare.WithBaseURL(c.Foursquare.BaseURL),
		foursquare.WithAPIVersion(c.Foursquare.APIVersion),
	}
	if c.Foursquare.Proxy != "" {
		fsqOpts = append(fsqOpts, foursquare.WithProxy(c.Foursquare.Proxy))
	}
	fsq := places.NewFoursquare(foursquare.NewClient(c.Foursquare.Key, fsqOpts...), gate,
		places.WithRetry(retry), places.WithBreakers(breakers))

	g := places.NewGoogle(google.NewClient(c.Google.Key, google.WithBaseURL(c.Google.BaseURL)), gate,
		places.WithRetry(retry), places.WithBreakers(breakers))

	zap.L().Info("providers configured",
		zap.Bool("foursquare", fsq.Configured()),
		zap.Bool("google", g.Configured()),
		zap.Bool("opencage", geocoder.Configured()),
	)

	agg := recommend.New(fsq,
		recommend.WithSecondary(g),
		recommend.WithDefaultRadius(c.Search.RadiusMeters),
		recommend.WithTaxonomy(tax),
		recommend.WithPhotoURL(googlePhotoURL),
	)

	return &appEnv{
		Gate:        gate,
		Breakers:    breakers,
		Taxonomy:    tax,
		Geocoder:    geocoder,
		Resolver:    resolver,
		Foursquare:  fsq,
		Google:      g,
		Recommender: agg,
	}, nil
}
