package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type cacheEntry struct {
	data    []byte
	fetched time.Time
}

// CachedRetriever keeps successful fetches for a TTL. Failures are never
// cached.
type CachedRetriever struct {
	next Retriever
	ttl  time.Duration
	log  *slog.Logger

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func NewCachedRetriever(next Retriever, ttl time.Duration, log *slog.Logger) *CachedRetriever {
	return &CachedRetriever{
		next:    next,
		ttl:     ttl,
		log:     log.With("component", "cache"),
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedRetriever) Fetch(ctx context.Context, name string) ([]byte, error) {
	c.mu.Lock()
	e, ok := c.entries[name]
	c.mu.Unlock()
	if ok && time.Since(e.fetched) < c.ttl {
		return e.data, nil
	}

	data, err := c.next.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[name] = cacheEntry{data: data, fetched: time.Now()}
	c.mu.Unlock()
	return data, nil
}

// Invalidate drops a cached path.
func (c *CachedRetriever) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// Len returns the number of cached paths.
func (c *CachedRetriever) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Watch invalidates cached paths when files under root change. It runs until
// ctx is cancelled.
func (c *CachedRetriever) Watch(ctx context.Context, root string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(root); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", root, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if name, ok := c.handleFsEvent(root, ev); ok {
					c.Invalidate(name)
					c.log.Info("content changed", "path", name, "op", ev.Op.String())
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.log.Warn("watcher error", "error", err)
			}
		}
	}()
	return nil
}

// handleFsEvent maps a watcher event to the content path it affects.
func (c *CachedRetriever) handleFsEvent(root string, ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return "", false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return "", false
	}
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
