package location

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLocator struct {
	calls atomic.Int32
	fix   Fix
	err   error
}

func (l *countingLocator) CurrentPosition(ctx context.Context) (Position, error) {
	l.calls.Add(1)
	if l.err != nil {
		return Position{}, l.err
	}
	return l.fix.CurrentPosition(ctx)
}

func TestCachedLocator_ServesWithinMaxAge(t *testing.T) {
	inner := &countingLocator{fix: Fix{Latitude: 30.27, Longitude: -97.74, Accuracy: 12}}
	c := NewCachedLocator(inner, time.Minute)

	first, err := c.CurrentPosition(context.Background())
	require.NoError(t, err)
	second, err := c.CurrentPosition(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, first, second)
	assert.InDelta(t, 12.0, second.Accuracy, 1e-9)
}

func TestCachedLocator_ExpiresAfterMaxAge(t *testing.T) {
	inner := &countingLocator{fix: Fix{Latitude: 30.27, Longitude: -97.74}}
	c := NewCachedLocator(inner, 20*time.Millisecond)

	_, err := c.CurrentPosition(context.Background())
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = c.CurrentPosition(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedLocator_ErrorsNotCached(t *testing.T) {
	inner := &countingLocator{err: NewUnavailableError(ReasonPermissionDenied, nil)}
	c := NewCachedLocator(inner, time.Minute)

	_, err := c.CurrentPosition(context.Background())
	require.Error(t, err)
	_, err = c.CurrentPosition(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedLocator_Forget(t *testing.T) {
	inner := &countingLocator{fix: Fix{Latitude: 1, Longitude: 2}}
	c := NewCachedLocator(inner, time.Minute)

	_, _ = c.CurrentPosition(context.Background())
	c.Forget()
	_, _ = c.CurrentPosition(context.Background())
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestFromDevice_UsesCachedLocator(t *testing.T) {
	inner := &countingLocator{fix: Fix{Latitude: 41.88, Longitude: -87.63}}
	r := NewResolver()
	c := NewCachedLocator(inner, time.Minute)

	for i := 0; i < 3; i++ {
		loc, err := r.FromDevice(context.Background(), c)
		require.NoError(t, err)
		assert.Equal(t, "Chicago", loc.City)
	}
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestFix_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fix{Latitude: 1, Longitude: 2}.CurrentPosition(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestUnavailableError(t *testing.T) {
	inner := errors.New("gps off")
	err := NewUnavailableError(ReasonPositionUnavailable, inner)
	assert.True(t, errors.Is(err, ErrLocationUnavailable))
	assert.True(t, errors.Is(err, inner))
	assert.Contains(t, err.Error(), "position_unavailable")
	assert.Equal(t, "location: unavailable (timeout)", NewUnavailableError(ReasonTimeout, nil).Error())
}

func TestCachedLocator_RememberWithoutInner(t *testing.T) {
	c := NewCachedLocator(nil, 30*time.Millisecond)

	_, err := c.CurrentPosition(context.Background())
	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ReasonUnsupported, ue.Reason)

	c.Remember(Position{Latitude: 47.6062, Longitude: -122.3321})
	pos, ok := c.Cached()
	require.True(t, ok)
	assert.False(t, pos.Timestamp.IsZero())

	loc, err := NewResolver().FromDevice(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "Seattle", loc.City)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Cached()
	assert.False(t, ok)
}
