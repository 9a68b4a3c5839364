package source

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingRetriever(calls *atomic.Int32, fail bool) Retriever {
	return RetrieverFunc(func(ctx context.Context, name string) ([]byte, error) {
		calls.Add(1)
		if fail {
			return nil, notFound(name)
		}
		return []byte("data:" + name), nil
	})
}

func TestCachedRetriever_HitsWithinTTL(t *testing.T) {
	var calls atomic.Int32
	c := NewCachedRetriever(countingRetriever(&calls, false), time.Hour, slog.Default())

	for range 3 {
		data, err := c.Fetch(context.Background(), "Life.txt")
		require.NoError(t, err)
		assert.Equal(t, "data:Life.txt", string(data))
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Len())

	c.Invalidate("Life.txt")
	_, err := c.Fetch(context.Background(), "Life.txt")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedRetriever_Expires(t *testing.T) {
	var calls atomic.Int32
	c := NewCachedRetriever(countingRetriever(&calls, false), time.Nanosecond, slog.Default())

	c.Fetch(context.Background(), "a")
	time.Sleep(time.Millisecond)
	c.Fetch(context.Background(), "a")
	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedRetriever_FailuresNotCached(t *testing.T) {
	var calls atomic.Int32
	c := NewCachedRetriever(countingRetriever(&calls, true), time.Hour, slog.Default())

	for range 2 {
		_, err := c.Fetch(context.Background(), "missing.txt")
		var rerr *RetrievalError
		assert.True(t, errors.As(err, &rerr))
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Zero(t, c.Len())
}

func TestCachedRetriever_HandleFsEvent(t *testing.T) {
	c := NewCachedRetriever(countingRetriever(new(atomic.Int32), false), time.Hour, slog.Default())
	root := "/srv/content"

	tests := []struct {
		name string
		ev   fsnotify.Event
		want string
		ok   bool
	}{
		{"write", fsnotify.Event{Name: "/srv/content/Life.txt", Op: fsnotify.Write}, "Life.txt", true},
		{"create", fsnotify.Event{Name: "/srv/content/info.json", Op: fsnotify.Create}, "info.json", true},
		{"remove", fsnotify.Event{Name: "/srv/content/Test.txt", Op: fsnotify.Remove}, "Test.txt", true},
		{"rename", fsnotify.Event{Name: "/srv/content/Test2.txt", Op: fsnotify.Rename}, "Test2.txt", true},
		{"chmod ignored", fsnotify.Event{Name: "/srv/content/Life.txt", Op: fsnotify.Chmod}, "", false},
		{"hidden ignored", fsnotify.Event{Name: "/srv/content/.Life.txt.swp", Op: fsnotify.Write}, "", false},
		{"outside root", fsnotify.Event{Name: "/srv/other/Life.txt", Op: fsnotify.Write}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.handleFsEvent(root, tt.ev)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCachedRetriever_WatchInvalidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Life.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	c := NewCachedRetriever(NewDirRetriever(dir, slog.Default()), time.Hour, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Watch(ctx, dir))

	data, err := c.Fetch(ctx, "Life.txt")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	require.Eventually(t, func() bool {
		data, err := c.Fetch(ctx, "Life.txt")
		return err == nil && string(data) == "v2"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCachedRetriever_WatchMissingRoot(t *testing.T) {
	c := NewCachedRetriever(countingRetriever(new(atomic.Int32), false), time.Hour, slog.Default())
	err := c.Watch(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
