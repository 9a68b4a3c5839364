package source

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPRetriever(url string) *HTTPRetriever {
	h := NewHTTPRetriever(url, slog.Default())
	h.backoff = func(int) time.Duration { return time.Millisecond }
	return h
}

func TestHTTPRetriever_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content/Test%20Result.txt", r.URL.EscapedPath())
		w.Write([]byte("// line\n**R**"))
	}))
	defer srv.Close()

	data, err := newTestHTTPRetriever(srv.URL+"/content/").Fetch(context.Background(), "Test Result.txt")
	require.NoError(t, err)
	assert.Equal(t, "// line\n**R**", string(data))
}

func TestHTTPRetriever_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestHTTPRetriever(srv.URL).Fetch(context.Background(), "Life.txt")
	var rerr *RetrievalError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusNotFound, rerr.Status)
	assert.Equal(t, "failed to load Life.txt: 404 Not Found", err.Error())
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPRetriever_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	data, err := newTestHTTPRetriever(srv.URL).Fetch(context.Background(), "info.json")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPRetriever_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestHTTPRetriever(srv.URL).Fetch(context.Background(), "info.json")
	var rerr *RetrievalError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusInternalServerError, rerr.Status)
	assert.Equal(t, int32(MaxRetries+1), calls.Load())
}

func TestHTTPRetriever_RejectsParentSegments(t *testing.T) {
	_, err := newTestHTTPRetriever("http://example.invalid").Fetch(context.Background(), "../x")
	var rerr *RetrievalError
	require.True(t, errors.As(err, &rerr))
	assert.Zero(t, rerr.Status)
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := range 10 {
		d := Backoff(attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 7500*time.Millisecond)
	}
}
