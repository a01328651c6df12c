package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sells-group/vibepick/internal/ratelimit"
	"github.com/sells-group/vibepick/internal/resilience"
)

// recordingPacer never delays and remembers which providers waited.
type recordingPacer struct {
	mu    sync.Mutex
	gate  *ratelimit.Gate
	calls []string
}

func newRecordingPacer() *recordingPacer {
	return &recordingPacer{gate: ratelimit.Unlimited()}
}

func (p *recordingPacer) Wait(ctx context.Context, provider string) error {
	p.mu.Lock()
	p.calls = append(p.calls, provider)
	p.mu.Unlock()
	return p.gate.Wait(ctx, provider)
}

func (p *recordingPacer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// noRetry keeps error-path tests to a single attempt.
func noRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1}
}

// fastRetry retries twice with a negligible backoff.
func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

// newTestClient points a keyed client at an httptest server through the
// rewrite transport, so the default endpoint constant is exercised.
func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (Client, *recordingPacer) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	pacer := newRecordingPacer()
	base := []Option{
		WithAPIKey("test-key"),
		WithHTTPClient(newRewriteClient(srv.URL, DefaultBaseURL)),
		WithPacer(pacer),
		WithRetry(noRetry()),
	}
	return NewClient(append(base, opts...)...), pacer
}

// newRewriteClient creates an HTTP client that rewrites requests to a test server URL.
// All requests matching the target prefix are redirected to the test server.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if !strings.HasPrefix(origURL, t.targetPrefix) {
		return t.base.RoundTrip(req)
	}
	parsed, err := req.URL.Parse(t.testServer + origURL[len(t.targetPrefix):])
	if err != nil {
		return nil, err
	}
	newReq := req.Clone(req.Context())
	newReq.URL = parsed
	newReq.Host = parsed.Host
	return t.base.RoundTrip(newReq)
}
