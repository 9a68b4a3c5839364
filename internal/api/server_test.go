package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/profilesite/internal/config"
	"github.com/dgallion1/profilesite/internal/mount"
	"github.com/dgallion1/profilesite/internal/session"
	"github.com/dgallion1/profilesite/internal/source"
	"github.com/dgallion1/profilesite/internal/welcome"
)

var testFiles = map[string]string{
	"Life.txt":        "**Childhood**\nSea.\n**School**\nBooks.\n**Work**\nCode.",
	"info.json":       `{"name":"Ann","skills":["go","sql"]}`,
	"Test.txt":        "{ **Big Five** 1. Open? # Very\n2. Calm?\nMostly }",
	"Test_Result.txt": "**Summary**\nFine.",
	"img.jpg":         "JPEG",
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	dir := t.TempDir()
	for name, content := range testFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg.ContentDir = dir
	if cfg.RootMargin == "" {
		cfg.RootMargin = mount.DefaultMargin.String()
	}
	if cfg.WSMessagesPerSecond == 0 {
		cfg.WSMessagesPerSecond = 100
		cfg.WSBurst = 100
	}
	cfg.SessionTTL = time.Hour
	cfg.StatsWindow = time.Hour

	stats := source.NewStats(cfg.StatsWindow)
	retriever := source.Timed(source.NewDirRetriever(dir, log), stats)
	routes, err := session.NewRoutes(nil)
	require.NoError(t, err)
	page, err := welcome.Load("", "")
	require.NoError(t, err)
	loader := session.NewLoader(routes, retriever, page, log)
	sessions := session.NewRegistry(cfg.SessionTTL, session.Options{Logger: log})
	t.Cleanup(sessions.Stop)

	return NewServer(loader, sessions, stats, log, cfg)
}

func get(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	w := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRoutesEndpoint(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	w := get(t, srv, "/api/routes")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Routes []session.Route `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Routes, 6)
	assert.Equal(t, "nav-profile", body.Routes[0].Key)
}

func TestView_PlaceholdersAndETag(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	w := get(t, srv, "/api/views/nav-story")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, strings.Count(w.Body.String(), `class="lazy-load-placeholder"`))
	assert.Contains(t, w.Body.String(), "My Story (Life.txt)")

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	w = get(t, srv, "/api/views/nav-story", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestView_MaterializeAll(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	w := get(t, srv, "/api/views/nav-test1?materialize=all")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.NotContains(t, body, "lazy-load-placeholder")
	assert.Contains(t, body, `<div class="question">1. Open?</div><div class="answer">Very</div>`)
	assert.Contains(t, body, `<div class="question">2. Calm?</div><div class="answer">Mostly</div>`)
}

func TestView_Viewport(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	w := get(t, srv, "/api/views/nav-story?viewport=100")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	// 100px viewport plus the 50px margin reaches the second 120px block.
	assert.Equal(t, 2, strings.Count(body, `class="story-section"`))
	assert.Equal(t, 1, strings.Count(body, `class="lazy-load-placeholder"`))

	w = get(t, srv, "/api/views/nav-story?viewport=tall")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestView_RetrievalFailure(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	w := get(t, srv, "/api/views/nav-test2")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Error loading content: failed to load Test2.txt: 404 Not Found. Please try again.")
	assert.Empty(t, w.Header().Get("ETag"))
}

func TestView_UnknownKeyIsWelcome(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	w := get(t, srv, "/api/views/nav-elsewhere")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "welcome-container")
}

func TestBlock(t *testing.T) {
	srv := newTestServer(t, config.Config{})

	w := get(t, srv, "/api/views/nav-story/blocks/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `<div class="story-section" data-kind="narrative"><h3>School</h3><p>Books.</p></div>`, w.Body.String())

	w = get(t, srv, "/api/views/nav-story/blocks/7")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, srv, "/api/views/nav-story/blocks/x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, srv, "/api/views/nav-nothing/blocks/0")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, srv, "/api/views/nav-test2/blocks/0")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestFetchStats(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	get(t, srv, "/api/views/nav-story")
	get(t, srv, "/api/views/nav-test2")

	w := get(t, srv, "/api/stats/fetch")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Stats source.StatsReport `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Stats.Total.Fetches)
	assert.Equal(t, 1, body.Stats.Total.Failures)
	assert.Equal(t, 1, body.Stats.Paths["Life.txt"].Fetches)
	assert.Equal(t, 1, body.Stats.Paths["Test2.txt"].Statuses[http.StatusNotFound])
}

func TestAdminEndpointsRequireKey(t *testing.T) {
	srv := newTestServer(t, config.Config{AdminAPIKey: "secret"})

	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/api/sessions").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/api/stats/fetch", "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/sessions", "Authorization", "Bearer secret").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/routes").Code)
}

func TestStaticAndShell(t *testing.T) {
	srv := newTestServer(t, config.Config{RootMargin: "0px 0px 80px 0px"})

	w := get(t, srv, "/static/img.jpg")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "JPEG", w.Body.String())

	w = get(t, srv, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-root-margin="0px 0px 80px 0px"`)
	assert.Contains(t, w.Body.String(), `<div id="content-area">`)
}
