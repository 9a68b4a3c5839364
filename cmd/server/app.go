package main

import (
	"context"
	"log/slog"

	"github.com/dgallion1/profilesite/internal/config"
	"github.com/dgallion1/profilesite/internal/session"
	"github.com/dgallion1/profilesite/internal/source"
	"github.com/dgallion1/profilesite/internal/welcome"
)

// app holds the wired components shared by every command.
type app struct {
	loader   *session.Loader
	stats    *source.Stats
	cache    *source.CachedRetriever
	sessions *session.Registry
}

func newApp(cfg config.Config, log *slog.Logger) (*app, error) {
	margin, err := cfg.Margin()
	if err != nil {
		return nil, err
	}

	var base source.Retriever
	if cfg.ContentBaseURL != "" {
		base = source.NewHTTPRetriever(cfg.ContentBaseURL, log)
	} else {
		base = source.NewDirRetriever(cfg.ContentDir, log)
	}
	stats := source.NewStats(cfg.StatsWindow)
	cache := source.NewCachedRetriever(source.Timed(base, stats), cfg.CacheTTL, log)

	routes, err := session.NewRoutes(cfg.Sources)
	if err != nil {
		return nil, err
	}
	page, err := welcome.Load(cfg.WelcomeFile, cfg.ProfileImage)
	if err != nil {
		return nil, err
	}

	return &app{
		loader:   session.NewLoader(routes, cache, page, log),
		stats:    stats,
		cache:    cache,
		sessions: session.NewRegistry(cfg.SessionTTL, session.Options{Margin: margin, Logger: log}),
	}, nil
}

// watch starts cache invalidation for a local content root.
func (a *app) watch(ctx context.Context, cfg config.Config, log *slog.Logger) {
	if !cfg.WatchContent || cfg.ContentBaseURL != "" {
		return
	}
	if err := a.cache.Watch(ctx, cfg.ContentDir); err != nil {
		log.Warn("content watch disabled", "dir", cfg.ContentDir, "error", err)
	}
}
