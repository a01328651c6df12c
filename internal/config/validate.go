package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// maxRadiusMeters is the largest radius every place provider accepts.
const maxRadiusMeters = 50000

// Validate checks the settings a command mode depends on. Modes are
// "serve", "pick", "locate" and "moods". Provider keys are never required.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		errs = append(errs, c.validateSearch()...)
		errs = append(errs, c.validateResilience()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.SessionTTLMins <= 0 {
			errs = append(errs, "server.session_ttl_mins must be > 0")
		}
	case "pick":
		errs = append(errs, c.validateSearch()...)
		errs = append(errs, c.validateResilience()...)
	case "locate":
		if c.Device.TimeoutSecs < 0 {
			errs = append(errs, "device.timeout_secs must be >= 0")
		}
	case "moods":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	for _, iv := range []struct {
		key string
		ms  int
	}{
		{"foursquare.min_interval_ms", c.Foursquare.MinIntervalMs},
		{"google.min_interval_ms", c.Google.MinIntervalMs},
		{"opencage.min_interval_ms", c.OpenCage.MinIntervalMs},
	} {
		if iv.ms < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", iv.key))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateSearch() []string {
	var errs []string
	if c.Search.RadiusMeters <= 0 || c.Search.RadiusMeters > maxRadiusMeters {
		errs = append(errs, fmt.Sprintf("search.radius_meters must be between 1 and %d", maxRadiusMeters))
	}
	return errs
}

func (c *Config) validateResilience() []string {
	var errs []string
	if c.Resilience.FailureThreshold < 1 {
		errs = append(errs, "resilience.failure_threshold must be >= 1")
	}
	if c.Resilience.ResetTimeoutSecs < 1 {
		errs = append(errs, "resilience.reset_timeout_secs must be >= 1")
	}
	if c.Resilience.RetryAttempts < 1 || c.Resilience.RetryAttempts > 10 {
		errs = append(errs, "resilience.retry_attempts must be between 1 and 10")
	}
	if c.Resilience.RetryBackoffMs < 0 {
		errs = append(errs, "resilience.retry_backoff_ms must be >= 0")
	}
	return errs
}

// MinInterval returns the configured pacing interval.
func (c FoursquareConfig) MinInterval() time.Duration { return ms(c.MinIntervalMs) }

// MinInterval returns the configured pacing interval.
func (c GoogleConfig) MinInterval() time.Duration { return ms(c.MinIntervalMs) }

// MinInterval returns the configured pacing interval.
func (c OpenCageConfig) MinInterval() time.Duration { return ms(c.MinIntervalMs) }

// CacheTTL returns how long geocode answers are cached.
func (c OpenCageConfig) CacheTTL() time.Duration { return time.Duration(c.CacheTTLMins) * time.Minute }

// Timeout returns the device read timeout.
func (c DeviceConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// MaxAge returns how long a device position may be reused.
func (c DeviceConfig) MaxAge() time.Duration { return time.Duration(c.MaxAgeSecs) * time.Second }

// SessionTTL returns how long idle HTTP sessions are kept.
func (c ServerConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMins) * time.Minute
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
