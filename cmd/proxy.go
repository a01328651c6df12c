package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vibepick/internal/places"
	"github.com/sells-group/vibepick/internal/ratelimit"
)

// newFoursquareProxy forwards browser searches to Foursquare with the
// server-side credential attached. Calls share the process-wide gate with
// the server's own Foursquare searches.
func newFoursquareProxy(baseURL, apiKey, apiVersion string, gate *ratelimit.Gate) (http.Handler, error) {
	target, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, eris.Errorf("foursquare proxy: invalid base url %q", baseURL)
	}

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Scheme = target.Scheme
			pr.Out.URL.Host = target.Host
			pr.Out.URL.Path = target.Path + "/search"
			pr.Out.URL.RawPath = ""
			pr.Out.URL.RawQuery = pr.In.URL.RawQuery
			pr.Out.Host = target.Host

			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del(sessionHeader)
			pr.Out.Header.Set("Accept", "application/json")
			pr.Out.Header.Set("Authorization", "Bearer "+apiKey)
			pr.Out.Header.Set("X-Places-Api-Version", apiVersion)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			zap.L().Warn("foursquare proxy: upstream failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "upstream_error", "place search is unavailable")
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := gate.Wait(r.Context(), places.FoursquareName); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cancelled", "request cancelled")
			return
		}
		rp.ServeHTTP(w, r)
	}), nil
}
