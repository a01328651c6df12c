package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vibepick/internal/recommend"
)

func TestSessionStore_GetOrCreate(t *testing.T) {
	s := newSessionStore(recommend.New(nil), time.Minute, time.Minute)

	id, sess := s.getOrCreate("")
	require.NotNil(t, sess)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	again, same := s.getOrCreate(id)
	assert.Equal(t, id, again)
	assert.Same(t, sess, same)
	assert.Equal(t, 1, s.len())
}

func TestSessionStore_UnknownOrMalformedID(t *testing.T) {
	s := newSessionStore(recommend.New(nil), time.Minute, time.Minute)

	id, _ := s.getOrCreate("not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", id)

	unknown := uuid.NewString()
	id, _ = s.getOrCreate(unknown)
	assert.NotEqual(t, unknown, id)
	assert.Equal(t, 2, s.len())
}

func TestSessionStore_Get(t *testing.T) {
	s := newSessionStore(recommend.New(nil), time.Minute, time.Minute)

	_, ok := s.get("")
	assert.False(t, ok)

	id, sess := s.getOrCreate("")
	got, ok := s.get(id)
	require.True(t, ok)
	assert.Same(t, sess, got)
	assert.Equal(t, recommend.Idle, got.State())
}

func TestSessionStore_Expiry(t *testing.T) {
	s := newSessionStore(recommend.New(nil), 20*time.Millisecond, time.Minute)

	id, _ := s.getOrCreate("")
	time.Sleep(40 * time.Millisecond)

	_, ok := s.get(id)
	assert.False(t, ok)
}

func TestSessionStore_DefaultTTL(t *testing.T) {
	s := newSessionStore(recommend.New(nil), 0, time.Minute)
	id, _ := s.getOrCreate("")
	_, ok := s.get(id)
	assert.True(t, ok)
}

func TestSessionStore_RemembersDevicePosition(t *testing.T) {
	s := newSessionStore(recommend.New(nil), time.Minute, 30*time.Millisecond)
	id, _ := s.getOrCreate("")

	_, ok := s.device(id)
	assert.False(t, ok, "no position before one is remembered")

	s.remember(id, 40.7505, -73.9965)
	dev, ok := s.device(id)
	require.True(t, ok)
	pos, err := dev.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 40.7505, pos.Latitude, 1e-9)

	time.Sleep(60 * time.Millisecond)
	_, ok = s.device(id)
	assert.False(t, ok, "position older than the max age is dropped")
	_, ok = s.get(id)
	assert.True(t, ok, "the session itself outlives its position")
}

func TestSessionStore_RememberUnknownSession(t *testing.T) {
	s := newSessionStore(recommend.New(nil), time.Minute, time.Minute)
	s.remember("missing", 1, 2)
	_, ok := s.device("missing")
	assert.False(t, ok)
}
