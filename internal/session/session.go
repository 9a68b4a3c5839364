// Package session owns the mount area of one viewer: it sequences loads with
// generation numbers, drives the lazy mount controller and keeps the
// affordance bindings of tree views.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/dgallion1/profilesite/internal/dom"
	"github.com/dgallion1/profilesite/internal/mount"
	"github.com/dgallion1/profilesite/internal/render"
)

// Generation identifies one load. Only the latest generation may change the
// mount area.
type Generation uint64

var (
	// ErrStale is returned when a superseded load tries to touch the mount
	// area.
	ErrStale = errors.New("stale generation")
	// ErrNoTree is returned by tree affordances when the current view is not
	// a tree view.
	ErrNoTree = errors.New("current view has no tree")
	// ErrClosed is returned once the session has been closed.
	ErrClosed = errors.New("session closed")
)

// MountAreaID is the id of the element all content is placed in.
const MountAreaID = "content-area"

// Options configures new sessions.
type Options struct {
	Margin mount.Margin
	Logger *slog.Logger
}

// View is the committed result of a load.
type View struct {
	Key    string
	Markup string
	Tree   *TreeView // Set for tree views only
}

// Session is the content state of one viewer. It is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	id      string
	area    *html.Node
	gen     Generation
	key     string
	ctrl    *mount.Controller
	tracked []*html.Node
	tree    *treeBindings
	cancel  context.CancelFunc
	closed  bool

	margin     mount.Margin
	log        *slog.Logger
	lastActive time.Time
	attached   bool
}

func New(id string, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		id:         id,
		area:       dom.NewElement("div", html.Attribute{Key: "id", Val: MountAreaID}),
		margin:     opts.Margin,
		log:        log.With("session", id),
		lastActive: time.Now(),
	}
}

func (s *Session) ID() string { return s.id }

// Generation returns the current generation.
func (s *Session) Generation() Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Begin starts a new load. It cancels the previous load, disconnects the
// mount controller, clears the mount area and shows the loading view. The
// returned context is cancelled when the next load begins.
func (s *Session) Begin(parent context.Context) (context.Context, Generation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	if s.closed {
		cancel()
		return ctx, s.gen
	}
	s.cancel = cancel

	s.clear()
	s.gen++
	s.replace(render.Loading())
	return ctx, s.gen
}

// clear drops everything the previous view owned.
func (s *Session) clear() {
	if s.ctrl != nil {
		s.ctrl.Disconnect()
		s.ctrl = nil
	}
	dom.Clear(s.area)
	s.tracked = nil
	s.tree = nil
	s.key = ""
}

// replace parses markup into the mount area. Callers must hold s.mu.
func (s *Session) replace(markup string) {
	dom.Clear(s.area)
	nodes, err := dom.ParseFragment(markup)
	if err != nil {
		s.log.Error("parse view markup", "error", err)
		return
	}
	dom.Append(s.area, nodes...)
}

func (s *Session) check(gen Generation) error {
	if s.closed {
		return ErrClosed
	}
	if gen != s.gen {
		return ErrStale
	}
	return nil
}

// Commit installs a view for gen. A stale gen changes nothing.
func (s *Session) Commit(gen Generation, v View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(gen); err != nil {
		return err
	}
	s.touch()

	s.clear()
	s.key = v.Key
	s.replace(v.Markup)

	if v.Tree != nil {
		s.tree = newTreeBindings(v.Tree)
		if !s.tree.wire(s.area) {
			s.log.Warn("tree view without controls", "view", v.Key)
		}
	}
	s.ctrl = mount.New(mount.Options{
		Margin:  s.margin,
		OnMount: s.onMount,
		Logger:  s.log,
	})
	n := s.ctrl.ObserveAll(s.area)
	s.track()
	s.log.Debug("view committed", "view", v.Key, "generation", gen, "placeholders", n)
	return nil
}

// track records the children of the content section as the current
// elements.
func (s *Session) track() {
	s.tracked = nil
	for _, el := range dom.ElementChildren(s.area) {
		if dom.HasClass(el, render.SectionClass) {
			s.tracked = append(s.tracked, dom.ElementChildren(el)...)
		} else {
			s.tracked = append(s.tracked, el)
		}
	}
}

func (s *Session) onMount(el *html.Node) {
	if s.tree != nil {
		s.tree.apply(el)
	}
}

// Fail replaces the loading view with the error view for gen.
func (s *Session) Fail(gen Generation, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(gen); err != nil {
		return err
	}
	s.touch()
	s.clear()
	s.replace(render.Error(cause))
	s.track()
	return nil
}

// Visible materializes the placeholders with the given ids. Unknown and
// already handled ids are ignored.
func (s *Session) Visible(gen Generation, ids []string) ([]mount.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(gen); err != nil {
		return nil, err
	}
	s.touch()
	if s.ctrl == nil {
		return nil, nil
	}
	entries := make([]mount.Entry, 0, len(ids))
	for _, id := range ids {
		if el := s.ctrl.Lookup(id); el != nil {
			entries = append(entries, mount.Entry{Target: el, Intersecting: true})
		}
	}
	return s.ctrl.Deliver(entries), nil
}

// Scan materializes the placeholders that fall inside vp when pending
// blocks are stacked with the given height.
func (s *Session) Scan(gen Generation, vp mount.Viewport, blockHeight int) ([]mount.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(gen); err != nil {
		return nil, err
	}
	if s.ctrl == nil {
		return nil, nil
	}
	return s.ctrl.Scan(vp, mount.Stack(s.ctrl.Targets(), 0, blockHeight)), nil
}

// MaterializeAll mounts every pending placeholder.
func (s *Session) MaterializeAll(gen Generation) ([]mount.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(gen); err != nil {
		return nil, err
	}
	if s.ctrl == nil {
		return nil, nil
	}
	return s.ctrl.MaterializeAll(), nil
}

// Pending returns the ids of placeholders not yet handled.
func (s *Session) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return nil
	}
	return s.ctrl.PendingIDs()
}

// HTML renders the contents of the mount area.
func (s *Session) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dom.RenderChildren(s.area)
}

// ViewHTML renders the mount area only if gen is still current.
func (s *Session) ViewHTML(gen Generation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(gen); err != nil {
		return "", err
	}
	return dom.RenderChildren(s.area), nil
}

// Toggle flips the collapsed state of a tree node. The state is kept even
// when the node has not been mounted yet.
func (s *Session) Toggle(nodeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return false, ErrNoTree
	}
	s.touch()
	return s.tree.toggle(s.area, nodeID)
}

// ToggleAll expands or collapses every composite node and returns the new
// button label.
func (s *Session) ToggleAll() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return "", ErrNoTree
	}
	s.touch()
	return s.tree.toggleAll(s.area), nil
}

// CopyText returns the canonical document text of the current tree view.
func (s *Session) CopyText() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return "", ErrNoTree
	}
	el := dom.Find(s.area, dom.ByID(render.DataContainerID))
	if el == nil {
		return "", fmt.Errorf("copy: %w", ErrNoTree)
	}
	v, _ := dom.Attr(el, render.DataAttr)
	return v, nil
}

// Close cancels any in-flight load and detaches the controller. Later
// operations return ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.clear()
	s.closed = true
}

// Snapshot is a read-only view of session state.
type Snapshot struct {
	ID         string     `json:"session_id"`
	Generation Generation `json:"generation"`
	View       string     `json:"view"`
	Pending    int        `json:"pending"`
	Tracked    int        `json:"tracked"`
	TreeView   bool       `json:"tree_view"`
	LastActive time.Time  `json:"last_active"`
	Attached   bool       `json:"attached"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.id,
		Generation: s.gen,
		View:       s.key,
		Tracked:    len(s.tracked),
		TreeView:   s.tree != nil,
		LastActive: s.lastActive,
		Attached:   s.attached,
	}
	if s.ctrl != nil {
		snap.Pending = s.ctrl.Pending()
	}
	return snap
}

func (s *Session) touch() { s.lastActive = time.Now() }

// Touch marks the session as in use.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
}

// Attach binds the session to a live connection. Attached sessions are not
// evicted for idleness; they end when the connection does.
func (s *Session) Attach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = true
}

// expired reports whether the session has been idle longer than ttl.
func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.attached && now.Sub(s.lastActive) > ttl
}
