package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vibepick/internal/location"
	"github.com/sells-group/vibepick/internal/mood"
	"github.com/sells-group/vibepick/internal/places"
	"github.com/sells-group/vibepick/internal/ratelimit"
	"github.com/sells-group/vibepick/internal/recommend"
	"github.com/sells-group/vibepick/pkg/google"
)

// stubProvider answers every search with the same places.
type stubProvider struct {
	results []places.Place
}

func (s *stubProvider) Name() string     { return places.FoursquareName }
func (s *stubProvider) Configured() bool { return true }
func (s *stubProvider) Capabilities() places.Capabilities {
	return places.Capabilities{CategoryCode: true, Keyword: true}
}
func (s *stubProvider) Search(context.Context, places.SearchQuery) ([]places.Place, error) {
	return s.results, nil
}

type mockDetailer struct {
	mock.Mock
	configured bool
}

func (m *mockDetailer) Configured() bool { return m.configured }

func (m *mockDetailer) Details(ctx context.Context, placeID string) (*places.Place, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*places.Place), args.Error(1)
}

func (m *mockDetailer) Photo(ctx context.Context, ref string) (*google.PhotoData, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*google.PhotoData), args.Error(1)
}

func ratedPlace(id, name string, rating float64) places.Place {
	return places.Place{
		ProviderID:     places.FoursquareName,
		ExternalID:     id,
		Name:           name,
		Address:        "1 Main St",
		Latitude:       40.75,
		Longitude:      -73.99,
		HasCoordinates: true,
		Rating:         &rating,
		DistanceMiles:  1.2,
	}
}

func newTestServer(t *testing.T, results []places.Place) *server {
	t.Helper()
	rec := recommend.New(&stubProvider{results: results})
	return &server{
		resolver:    location.NewResolver(),
		recommender: rec,
		taxonomy:    mood.Default(),
		sessions:    newSessionStore(rec, time.Minute, time.Minute),
		circuits:    func() map[string]string { return map[string]string{"google": "closed"} },
	}
}

func do(t *testing.T, h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]any{"google": "closed"}, body["circuits"])
}

func TestMoodsEndpoint(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	rec := do(t, h, http.MethodGet, "/api/moods", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]moodResponse](t, rec)
	require.Len(t, got, len(mood.Default().Moods()))
	labels := make(map[mood.Mood]string)
	for _, m := range got {
		labels[m.ID] = m.Label
	}
	assert.Equal(t, "Romantic", labels[mood.Mood("romantic")])
	assert.Equal(t, "Surprise Me", labels[mood.Surprise])
}

func TestLocateEndpoint(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{name: "postal code", body: `{"postal_code":"10001"}`, wantCode: http.StatusOK},
		{name: "coordinates", body: `{"lat":40.75,"lng":-73.99}`, wantCode: http.StatusOK},
		{name: "invalid postal code", body: `{"postal_code":"1234"}`, wantCode: http.StatusBadRequest, wantErr: "invalid_postal_code"},
		{name: "missing location", body: `{}`, wantCode: http.StatusBadRequest, wantErr: "missing_location"},
		{name: "out of range coordinates", body: `{"lat":200,"lng":0}`, wantCode: http.StatusUnprocessableEntity, wantErr: "location_unavailable"},
		{name: "malformed body", body: `{"postal_code":`, wantCode: http.StatusBadRequest, wantErr: "invalid_body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/location", tt.body, nil)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decode[errorResponse](t, rec).Code)
			}
		})
	}
}

func TestLocateEndpoint_PostalCodeLabels(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	rec := do(t, h, http.MethodPost, "/api/location", `{"postal_code":"10001"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	loc := decode[location.UserLocation](t, rec)
	assert.Equal(t, "New York", loc.City)
	assert.Equal(t, "NY", loc.State)
}

func TestRecommendAndReroll(t *testing.T) {
	s := newTestServer(t, []places.Place{
		ratedPlace("a", "Good Spot", 4.1),
		ratedPlace("b", "Best Spot", 4.8),
	})
	h := buildRouter(s, []string{"*"})

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"mood":"romantic","location":{"postal_code":"10001"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	id := rec.Header().Get(sessionHeader)
	require.NotEmpty(t, id)

	first := decode[recommendResponse](t, rec)
	assert.Equal(t, id, first.SessionID)
	assert.Equal(t, "recommended", first.State)
	assert.True(t, first.CanReroll)
	assert.Equal(t, "Best Spot", first.Pick.Name)
	assert.Equal(t, "Romantic", first.Pick.Mood)
	assert.Len(t, first.Ranked, 2)
	require.NotNil(t, first.Location)
	assert.Equal(t, "New York", first.Location.City)

	hdr := http.Header{sessionHeader: []string{id}}
	rec = do(t, h, http.MethodPost, "/api/reroll", "", hdr)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	second := decode[recommendResponse](t, rec)
	assert.Equal(t, "Good Spot", second.Pick.Name)
	assert.False(t, second.CanReroll)

	rec = do(t, h, http.MethodPost, "/api/reroll", "", hdr)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "reroll_exhausted", decode[errorResponse](t, rec).Code)
}

func TestRecommend_ReusesSession(t *testing.T) {
	s := newTestServer(t, []places.Place{ratedPlace("a", "Only Spot", 4.5)})
	h := buildRouter(s, []string{"*"})

	body := `{"mood":"bored","location":{"postal_code":"10001"}}`
	rec := do(t, h, http.MethodPost, "/api/recommend", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(sessionHeader)

	rec = do(t, h, http.MethodPost, "/api/recommend", body, http.Header{sessionHeader: []string{id}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, rec.Header().Get(sessionHeader))
	assert.Equal(t, 1, s.sessions.len())
}

func TestRecommend_ReusesSessionPosition(t *testing.T) {
	s := newTestServer(t, []places.Place{ratedPlace("a", "Only Spot", 4.5)})
	h := buildRouter(s, []string{"*"})

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"mood":"bored","location":{"lat":40.7505,"lng":-73.9965}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	hdr := http.Header{sessionHeader: []string{rec.Header().Get(sessionHeader)}}

	rec = do(t, h, http.MethodPost, "/api/recommend", `{"mood":"romantic"}`, hdr)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[recommendResponse](t, rec)
	require.NotNil(t, got.Location)
	assert.InDelta(t, 40.7505, got.Location.Latitude, 1e-9)
	assert.Equal(t, "New York", got.Location.City)

	rec = do(t, h, http.MethodPost, "/api/location", `{}`, hdr)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, -73.9965, decode[location.UserLocation](t, rec).Longitude, 1e-9)
}

func TestRecommend_SessionPositionExpires(t *testing.T) {
	s := newTestServer(t, []places.Place{ratedPlace("a", "Only Spot", 4.5)})
	s.sessions = newSessionStore(s.recommender, time.Minute, 20*time.Millisecond)
	h := buildRouter(s, []string{"*"})

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"mood":"bored","location":{"lat":40.7505,"lng":-73.9965}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hdr := http.Header{sessionHeader: []string{rec.Header().Get(sessionHeader)}}

	time.Sleep(50 * time.Millisecond)
	rec = do(t, h, http.MethodPost, "/api/recommend", `{"mood":"bored"}`, hdr)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_location", decode[errorResponse](t, rec).Code)
}

func TestRecommend_NoPlacesFound(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"mood":"sad","location":{"postal_code":"10001"}}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_places_found", decode[errorResponse](t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get(sessionHeader))
}

func TestRecommend_Validation(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"location":{"postal_code":"10001"}}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_mood", decode[errorResponse](t, rec).Code)

	rec = do(t, h, http.MethodPost, "/api/recommend", `{"mood":"sad"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_location", decode[errorResponse](t, rec).Code)
}

func TestReroll_WithoutSession(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	rec := do(t, h, http.MethodPost, "/api/reroll", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "no_session", decode[errorResponse](t, rec).Code)

	rec = do(t, h, http.MethodPost, "/api/reroll", "", http.Header{sessionHeader: []string{"0b7f3c1e-5a4d-4f7e-9c43-2d1e6f0a9b11"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReroll_AfterFailedSearch(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"mood":"sad","location":{"postal_code":"10001"}}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/reroll", "", http.Header{sessionHeader: []string{rec.Header().Get(sessionHeader)}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "nothing_to_reroll", decode[errorResponse](t, rec).Code)
}

func TestGoogleDetails(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		h := buildRouter(newTestServer(t, nil), []string{"*"})
		rec := do(t, h, http.MethodGet, "/api/places/google/abc", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "provider_unconfigured", decode[errorResponse](t, rec).Code)
	})

	t.Run("found", func(t *testing.T) {
		d := &mockDetailer{configured: true}
		p := ratedPlace("abc", "Detail Spot", 4.2)
		d.On("Details", mock.Anything, "abc").Return(&p, nil)

		s := newTestServer(t, nil)
		s.details = d
		rec := do(t, buildRouter(s, []string{"*"}), http.MethodGet, "/api/places/google/abc", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Detail Spot", decode[places.Place](t, rec).Name)
		d.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		d := &mockDetailer{configured: true}
		d.On("Details", mock.Anything, "missing").Return(nil, &places.ProviderError{Provider: places.GoogleName, Status: http.StatusNotFound})

		s := newTestServer(t, nil)
		s.details = d
		rec := do(t, buildRouter(s, []string{"*"}), http.MethodGet, "/api/places/google/missing", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("provider failure", func(t *testing.T) {
		d := &mockDetailer{configured: true}
		d.On("Details", mock.Anything, "abc").Return(nil, &places.ProviderError{Provider: places.GoogleName, Status: http.StatusForbidden})

		s := newTestServer(t, nil)
		s.details = d
		rec := do(t, buildRouter(s, []string{"*"}), http.MethodGet, "/api/places/google/abc", "", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "provider_error", decode[errorResponse](t, rec).Code)
	})
}

func TestGooglePhoto(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		h := buildRouter(newTestServer(t, nil), []string{"*"})
		rec := do(t, h, http.MethodGet, "/api/places/google/photo/ref-1", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("found", func(t *testing.T) {
		d := &mockDetailer{configured: true}
		d.On("Photo", mock.Anything, "ref/1").Return(&google.PhotoData{ContentType: "image/jpeg", Body: []byte("jpeg-bytes")}, nil)

		s := newTestServer(t, nil)
		s.details = d
		rec := do(t, buildRouter(s, []string{"*"}), http.MethodGet, googlePhotoURL(places.GoogleName, "ref/1"), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
		assert.Equal(t, "jpeg-bytes", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age")
		d.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		d := &mockDetailer{configured: true}
		d.On("Photo", mock.Anything, "gone").Return(nil, &places.ProviderError{Provider: places.GoogleName, Status: http.StatusNotFound})

		s := newTestServer(t, nil)
		s.details = d
		rec := do(t, buildRouter(s, []string{"*"}), http.MethodGet, "/api/places/google/photo/gone", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decode[errorResponse](t, rec).Code)
	})
}

func TestGooglePhotoURL(t *testing.T) {
	assert.Equal(t, "/api/places/google/photo/abc", googlePhotoURL(places.GoogleName, "abc"))
	assert.Equal(t, "/api/places/google/photo/a%2Fb", googlePhotoURL(places.GoogleName, "a/b"))
	assert.Empty(t, googlePhotoURL(places.FoursquareName, "abc"))
}

// TestGoogleKeyStaysServerSide drives every endpoint that carries Google
// data against a fake upstream and checks the key never reaches a client.
func TestGoogleKeyStaysServerSide(t *testing.T) {
	const key = "SERVER-SECRET-KEY"
	var (
		mu           sync.Mutex
		upstreamKeys []string
	)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		upstreamKeys = append(upstreamKeys, r.URL.Query().Get("key"))
		mu.Unlock()
		switch r.URL.Path {
		case "/nearbysearch/json":
			w.Write([]byte(`{"status":"OK","results":[{"place_id":"g-1","name":"Keyed Cafe","vicinity":"2 Elm St","rating":4.6,"geometry":{"location":{"lat":40.751,"lng":-73.991}},"photos":[{"photo_reference":"PHOTO-REF"}]}]}`)) //nolint:errcheck
		case "/details/json":
			w.Write([]byte(`{"status":"OK","result":{"place_id":"g-1","name":"Keyed Cafe","formatted_address":"2 Elm St","geometry":{"location":{"lat":40.751,"lng":-73.991}},"photos":[{"photo_reference":"PHOTO-REF"}]}}`)) //nolint:errcheck
		case "/photo":
			assert.Equal(t, "PHOTO-REF", r.URL.Query().Get("photoreference"))
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("png-bytes")) //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	g := places.NewGoogle(google.NewClient(key, google.WithBaseURL(upstream.URL)), ratelimit.Unlimited())
	rec := recommend.New(nil, recommend.WithSecondary(g), recommend.WithPhotoURL(googlePhotoURL))
	s := &server{
		resolver:    location.NewResolver(),
		recommender: rec,
		taxonomy:    mood.Default(),
		details:     g,
		sessions:    newSessionStore(rec, time.Minute, time.Minute),
		circuits:    func() map[string]string { return nil },
	}
	h := buildRouter(s, []string{"*"})

	first := do(t, h, http.MethodPost, "/api/recommend", `{"mood":"bored","location":{"postal_code":"10001"}}`, nil)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	pick := decode[recommendResponse](t, first).Pick
	assert.Equal(t, "Keyed Cafe", pick.Name)
	assert.Equal(t, "/api/places/google/photo/PHOTO-REF", pick.ImageURL)
	assert.Equal(t, "PHOTO-REF", pick.PhotoRef)

	hdr := http.Header{sessionHeader: []string{first.Header().Get(sessionHeader)}}
	responses := []*httptest.ResponseRecorder{
		first,
		do(t, h, http.MethodPost, "/api/reroll", "", hdr),
		do(t, h, http.MethodGet, "/api/session", "", hdr),
		do(t, h, http.MethodGet, "/api/places/google/g-1", "", nil),
		do(t, h, http.MethodGet, pick.ImageURL, "", nil),
	}
	for _, resp := range responses {
		assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.NotContains(t, resp.Body.String(), key)
		for name, vals := range resp.Header() {
			assert.NotContains(t, strings.Join(vals, ","), key, name)
		}
	}
	assert.Equal(t, "png-bytes", responses[4].Body.String())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, upstreamKeys)
	for _, k := range upstreamKeys {
		assert.Equal(t, key, k)
	}
}

func TestSessionEndpoint(t *testing.T) {
	s := newTestServer(t, []places.Place{
		ratedPlace("a", "Good Spot", 4.1),
		ratedPlace("b", "Best Spot", 4.8),
	})
	h := buildRouter(s, []string{"*"})

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"mood":"romantic","location":{"postal_code":"10001"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hdr := http.Header{sessionHeader: []string{rec.Header().Get(sessionHeader)}}

	rec = do(t, h, http.MethodGet, "/api/session", "", hdr)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[sessionResponse](t, rec)
	assert.Equal(t, "recommended", got.State)
	assert.True(t, got.CanReroll)
	require.NotNil(t, got.Pick)
	assert.Equal(t, "Best Spot", got.Pick.Name)
	assert.Len(t, got.Ranked, 2)

	do(t, h, http.MethodPost, "/api/reroll", "", hdr)
	got = decode[sessionResponse](t, do(t, h, http.MethodGet, "/api/session", "", hdr))
	require.NotNil(t, got.Pick)
	assert.Equal(t, "Good Spot", got.Pick.Name)
	assert.False(t, got.CanReroll)
}

func TestSessionEndpoint_FailedSearchHasNoPick(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"mood":"sad","location":{"postal_code":"10001"}}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/session", "", http.Header{sessionHeader: []string{rec.Header().Get(sessionHeader)}})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[sessionResponse](t, rec)
	assert.Equal(t, "failed", got.State)
	assert.Nil(t, got.Pick)
	assert.Empty(t, got.Ranked)
}

func TestSessionEndpoint_Unknown(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	rec := do(t, h, http.MethodGet, "/api/session", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_session", decode[errorResponse](t, rec).Code)
}

func TestFoursquareProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places/search", r.URL.Path)
		assert.Equal(t, "Bearer fsq-key", r.Header.Get("Authorization"))
		assert.Equal(t, "2025-06-17", r.Header.Get("X-Places-Api-Version"))
		assert.Empty(t, r.Header.Get("Cookie"))
		assert.Empty(t, r.Header.Get(sessionHeader))
		assert.Equal(t, "40.75,-73.99", r.URL.Query().Get("ll"))
		assert.Equal(t, "bakery", r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[]}`)) //nolint:errcheck
	}))
	defer upstream.Close()

	proxy, err := newFoursquareProxy(upstream.URL+"/places", "fsq-key", "2025-06-17", ratelimit.Unlimited())
	require.NoError(t, err)

	s := newTestServer(t, nil)
	s.proxy = proxy
	h := buildRouter(s, []string{"*"})

	hdr := http.Header{"Cookie": []string{"a=b"}, sessionHeader: []string{"abc"}}
	rec := do(t, h, http.MethodGet, "/api/foursquare/places/search?ll=40.75,-73.99&query=bakery", "", hdr)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}

func TestFoursquareProxy_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	proxy, err := newFoursquareProxy(url, "fsq-key", "2025-06-17", ratelimit.Unlimited())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/foursquare/places/search", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream_error", decode[errorResponse](t, rec).Code)
}

func TestFoursquareProxy_Unconfigured(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	rec := do(t, h, http.MethodGet, "/api/foursquare/places/search?query=cafe", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewFoursquareProxy_InvalidBaseURL(t *testing.T) {
	_, err := newFoursquareProxy("not a url", "k", "v", ratelimit.Unlimited())
	assert.Error(t, err)
}

func TestCORSPreflight(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/recommend", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	// Produce at least one recommendation outcome.
	do(t, h, http.MethodPost, "/api/recommend", `{"mood":"sad","location":{"postal_code":"10001"}}`, nil)

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vibepick_")
}

func TestWriteDomainError_Cancelled(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, context.Canceled)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	writeDomainError(rec, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDecodeBody_TooLarge(t *testing.T) {
	h := buildRouter(newTestServer(t, nil), []string{"*"})

	big := `{"postal_code":"` + string(bytes.Repeat([]byte("1"), maxBodyBytes)) + `"}`
	rec := do(t, h, http.MethodPost, "/api/location", big, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
