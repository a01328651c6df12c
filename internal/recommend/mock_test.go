package recommend

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/vibepick/internal/location"
	"github.com/sells-group/vibepick/internal/mood"
	"github.com/sells-group/vibepick/internal/places"
)

// --- Provider Mock ---

type mockProvider struct {
	mock.Mock
	name       string
	configured bool
	caps       places.Capabilities
}

func newMockProvider(name string, caps places.Capabilities) *mockProvider {
	return &mockProvider{name: name, configured: true, caps: caps}
}

func (m *mockProvider) Name() string                      { return m.name }
func (m *mockProvider) Configured() bool                  { return m.configured }
func (m *mockProvider) Capabilities() places.Capabilities { return m.caps }

func (m *mockProvider) Search(ctx context.Context, q places.SearchQuery) ([]places.Place, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]places.Place), args.Error(1)
}

// queries returns the SearchQuery of every recorded Search call.
func (m *mockProvider) queries() []places.SearchQuery {
	var out []places.SearchQuery
	for _, c := range m.Calls {
		if c.Method == "Search" {
			out = append(out, c.Arguments.Get(1).(places.SearchQuery))
		}
	}
	return out
}

// --- Recommender Mock ---

type mockRecommender struct {
	mock.Mock
}

func (m *mockRecommender) Recommend(ctx context.Context, md mood.Mood, loc location.UserLocation, radiusMeters int, reroll bool) (*Result, error) {
	args := m.Called(ctx, md, loc, radiusMeters, reroll)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}
