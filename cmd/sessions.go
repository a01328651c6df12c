package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/sells-group/vibepick/internal/location"
	"github.com/sells-group/vibepick/internal/recommend"
)

// sessionHeader carries the session id in both directions.
const sessionHeader = "X-Session-ID"

// sessionStore keeps recommendation sessions in memory. Idle sessions
// expire after ttl; every access renews it. Each session also remembers
// the last device position it was given for positionMaxAge.
type sessionStore struct {
	cache          *cache.Cache
	rec            recommend.Recommender
	positionMaxAge time.Duration
}

type sessionEntry struct {
	sess   *recommend.Session
	device *location.CachedLocator
}

func newSessionStore(rec recommend.Recommender, ttl, positionMaxAge time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &sessionStore{
		cache:          cache.New(ttl, 2*ttl),
		rec:            rec,
		positionMaxAge: positionMaxAge,
	}
}

func (s *sessionStore) entry(id string) (*sessionEntry, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	e := v.(*sessionEntry)
	s.cache.SetDefault(id, e)
	return e, true
}

// get returns a live session.
func (s *sessionStore) get(id string) (*recommend.Session, bool) {
	e, ok := s.entry(id)
	if !ok {
		return nil, false
	}
	return e.sess, true
}

// remember records a device position for the session.
func (s *sessionStore) remember(id string, lat, lng float64) {
	if e, ok := s.entry(id); ok {
		e.device.Remember(location.Position{Latitude: lat, Longitude: lng})
	}
}

// device returns the session's locator while its position is fresh.
func (s *sessionStore) device(id string) (location.DeviceLocator, bool) {
	e, ok := s.entry(id)
	if !ok {
		return nil, false
	}
	if _, fresh := e.device.Cached(); !fresh {
		return nil, false
	}
	return e.device, true
}

// getOrCreate returns the session for id, or a new one under a fresh id
// when id is empty, malformed or expired.
func (s *sessionStore) getOrCreate(id string) (string, *recommend.Session) {
	if _, err := uuid.Parse(id); err == nil {
		if sess, ok := s.get(id); ok {
			return id, sess
		}
	}
	id = uuid.NewString()
	e := &sessionEntry{
		sess:   recommend.NewSession(s.rec),
		device: location.NewCachedLocator(nil, s.positionMaxAge),
	}
	s.cache.SetDefault(id, e)
	return id, e.sess
}

func (s *sessionStore) len() int {
	return s.cache.ItemCount()
}
