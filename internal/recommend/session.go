package recommend

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vibepick/internal/location"
	"github.com/sells-group/vibepick/internal/mood"
)

// Session errors.
var (
	ErrRerollExhausted = eris.New("recommend: reroll already used")
	ErrNothingToReroll = eris.New("recommend: no recommendation to reroll")
	ErrSuperseded      = eris.New("recommend: search superseded")
)

// State is a session's position in the recommendation flow.
type State int

// Session states.
const (
	Idle State = iota
	Searching
	Recommended
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case Recommended:
		return "recommended"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Recommender produces ranked recommendations. *Aggregator implements it.
type Recommender interface {
	Recommend(ctx context.Context, m mood.Mood, loc location.UserLocation, radiusMeters int, reroll bool) (*Result, error)
}

// Session tracks one user's flow: Idle, Searching, then Recommended or
// Failed. A recommendation allows a single reroll. Starting a new search
// or starting over discards the result of any search still in flight.
type Session struct {
	rec Recommender

	mu       sync.Mutex
	state    State
	gen      uint64
	mood     mood.Mood
	loc      location.UserLocation
	radius   int
	rerolled bool
	last     *Result
	lastErr  error
}

// NewSession creates an idle session.
func NewSession(rec Recommender) *Session {
	return &Session{rec: rec}
}

// Search runs a first pick for m around loc.
func (s *Session) Search(ctx context.Context, m mood.Mood, loc location.UserLocation, radiusMeters int) (*Result, error) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = Searching
	s.mood, s.loc, s.radius = m, loc, radiusMeters
	s.rerolled = false
	s.last, s.lastErr = nil, nil
	s.mu.Unlock()

	res, err := s.rec.Recommend(ctx, m, loc, radiusMeters, false)
	return s.finish(gen, res, err, false)
}

// Reroll asks for the alternate pick of the current recommendation. It is
// allowed once per recommendation.
func (s *Session) Reroll(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	switch st := s.state; {
	case st != Recommended:
		s.mu.Unlock()
		return nil, eris.Wrapf(ErrNothingToReroll, "recommend: session is %s", st)
	case s.rerolled:
		s.mu.Unlock()
		return nil, ErrRerollExhausted
	}
	s.gen++
	gen := s.gen
	s.state = Searching
	m, loc, radius := s.mood, s.loc, s.radius
	s.mu.Unlock()

	res, err := s.rec.Recommend(ctx, m, loc, radius, true)
	return s.finish(gen, res, err, true)
}

// StartOver returns the session to Idle from any state.
func (s *Session) StartOver() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = Idle
	s.mood, s.loc, s.radius = "", location.UserLocation{}, 0
	s.rerolled = false
	s.last, s.lastErr = nil, nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CanReroll reports whether Reroll would run.
func (s *Session) CanReroll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Recommended && !s.rerolled
}

// Last returns the most recent result and error.
func (s *Session) Last() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

func (s *Session) finish(gen uint64, res *Result, err error, reroll bool) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return nil, ErrSuperseded
	}
	s.last, s.lastErr = res, err
	if err != nil {
		s.state = Failed
		return nil, err
	}
	s.state = Recommended
	if reroll {
		s.rerolled = true
	}
	return res, nil
}
