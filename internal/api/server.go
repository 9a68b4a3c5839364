package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/dgallion1/profilesite/internal/config"
	"github.com/dgallion1/profilesite/internal/mount"
	"github.com/dgallion1/profilesite/internal/session"
	"github.com/dgallion1/profilesite/internal/source"
)

// Server is the HTTP front of the profile site.
type Server struct {
	router   chi.Router
	loader   *session.Loader
	sessions *session.Registry
	stats    *source.Stats
	margin   mount.Margin
	upgrader websocket.Upgrader
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(loader *session.Loader, sessions *session.Registry, stats *source.Stats, log *slog.Logger, cfg config.Config) *Server {
	margin, err := cfg.Margin()
	if err != nil {
		margin = mount.DefaultMargin
	}
	s := &Server{
		loader:   loader,
		sessions: sessions,
		stats:    stats,
		margin:   margin,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		log: log,
		cfg: cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleShell)
	r.Get("/ws", s.handleWebSocket)

	r.Get("/api/routes", s.handleRoutes)
	r.Get("/api/views/{key}", s.handleView)
	r.Get("/api/views/{key}/blocks/{n}", s.handleBlock)

	// Operational endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.AdminAPIKey != "" {
			r.Use(AuthMiddleware(s.cfg.AdminAPIKey, s.log))
		}
		r.Get("/api/stats/fetch", s.handleFetchStats)
		r.Get("/api/sessions", s.handleSessions)
	})

	if s.cfg.ContentDir != "" && s.cfg.ContentBaseURL == "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.ContentDir))))
	}

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"routes": s.loader.Routes().All()})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
