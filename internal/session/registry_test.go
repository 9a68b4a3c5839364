package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateGetRemove(t *testing.T) {
	r := NewRegistry(time.Hour, Options{})
	s := r.Create()
	require.NotEmpty(t, s.ID())
	assert.Same(t, s, r.Get(s.ID()))
	assert.Equal(t, 1, r.Len())

	other := r.Create()
	assert.NotEqual(t, s.ID(), other.ID())

	r.Remove(s.ID())
	assert.Nil(t, r.Get(s.ID()))
	assert.Equal(t, 1, r.Len())

	_, gen := s.Begin(context.Background())
	assert.ErrorIs(t, s.Commit(gen, View{}), ErrClosed)
}

func TestRegistry_CleanupEvictsIdle(t *testing.T) {
	r := NewRegistry(10*time.Millisecond, Options{})
	idle := r.Create()
	time.Sleep(25 * time.Millisecond)
	fresh := r.Create()

	assert.Equal(t, 1, r.Cleanup())
	assert.Nil(t, r.Get(idle.ID()))
	assert.NotNil(t, r.Get(fresh.ID()))
}

func TestRegistry_StartStop(t *testing.T) {
	r := NewRegistry(time.Millisecond, Options{})
	r.Create()
	r.Start(context.Background(), 5*time.Millisecond)

	require.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)

	s := r.Create()
	r.Stop()
	assert.Zero(t, r.Len())
	_, gen := s.Begin(context.Background())
	assert.ErrorIs(t, s.Commit(gen, View{}), ErrClosed)
}

func TestRegistry_CleanupKeepsAttachedSessions(t *testing.T) {
	l := newTestLoader(t, fileMap{"Life.txt": lifeTxt, "Test_Result.txt": resultsTxt})
	r := NewRegistry(20*time.Millisecond, Options{})
	live := r.Create()
	live.Attach()
	detached := r.Create()

	_, err := l.Load(context.Background(), live, "nav-story")
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, 1, r.Cleanup())
	assert.Nil(t, r.Get(detached.ID()))
	assert.Same(t, live, r.Get(live.ID()))
	assert.True(t, live.Snapshot().Attached)

	_, err = l.Load(context.Background(), live, "nav-results")
	require.NoError(t, err)
	assert.Contains(t, live.HTML(), "Test Analysis &amp; Reports")
}

func TestSession_TouchResetsIdleClock(t *testing.T) {
	s := New("idle", Options{})
	time.Sleep(25 * time.Millisecond)
	assert.True(t, s.expired(time.Now(), 10*time.Millisecond))

	s.Touch()
	assert.False(t, s.expired(time.Now(), 10*time.Millisecond))
}
