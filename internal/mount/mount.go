// Package mount implements the lazy mount controller. It watches placeholder
// elements in a document and swaps each one for its decoded fragment the
// first time it is reported near the viewport.
package mount

import (
	"log/slog"
	"sync"

	"github.com/dgallion1/profilesite/internal/codec"
	"github.com/dgallion1/profilesite/internal/dom"
	"github.com/dgallion1/profilesite/internal/render"
	"golang.org/x/net/html"
)

// Entry is a single proximity report for an observed element.
type Entry struct {
	Target       *html.Node
	Intersecting bool
}

// Transition records what happened to a placeholder during Deliver.
type Transition struct {
	ID      string     `json:"id"`
	Element *html.Node `json:"-"` // Nil when Removed
	HTML    string     `json:"html,omitempty"`
	Removed bool       `json:"removed,omitempty"`
}

// Options configures a Controller.
type Options struct {
	Margin  Margin
	OnMount func(el *html.Node) // Called for every materialized element
	Logger  *slog.Logger
}

// Controller tracks pending placeholders. A placeholder is handled at most
// once: it is unobserved before its payload is decoded.
type Controller struct {
	mu           sync.Mutex
	observed     map[*html.Node]struct{}
	order        []*html.Node
	disconnected bool

	margin  Margin
	onMount func(*html.Node)
	log     *slog.Logger
}

// New creates an empty controller.
func New(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		observed: make(map[*html.Node]struct{}),
		margin:   opts.Margin,
		onMount:  opts.OnMount,
		log:      log.With("component", "mount"),
	}
}

// Margin returns the proximity margin the controller was created with.
func (c *Controller) Margin() Margin { return c.margin }

// Observe starts watching el. Observing an element twice is a no-op.
func (c *Controller) Observe(el *html.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disconnected {
		return
	}
	if _, ok := c.observed[el]; ok {
		return
	}
	c.observed[el] = struct{}{}
	c.order = append(c.order, el)
}

// ObserveAll watches every placeholder under root and returns how many were
// found.
func (c *Controller) ObserveAll(root *html.Node) int {
	phs := dom.FindAll(root, dom.ByClass(render.PlaceholderClass))
	for _, ph := range phs {
		c.Observe(ph)
	}
	return len(phs)
}

// Unobserve stops watching el.
func (c *Controller) Unobserve(el *html.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unobserve(el)
}

func (c *Controller) unobserve(el *html.Node) {
	if _, ok := c.observed[el]; !ok {
		return
	}
	delete(c.observed, el)
	for i, n := range c.order {
		if n == el {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Disconnect drops every observation. Later deliveries do nothing.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	c.observed = make(map[*html.Node]struct{})
	c.order = nil
}

// Pending returns the number of observed placeholders.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// PendingIDs returns the placeholder ids still observed, in document order.
func (c *Controller) PendingIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.order))
	for _, el := range c.order {
		id, _ := dom.Attr(el, render.PlaceholderIDAttr)
		ids = append(ids, id)
	}
	return ids
}

// Targets returns the observed placeholders in document order.
func (c *Controller) Targets() []*html.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*html.Node(nil), c.order...)
}

// Lookup returns the observed placeholder with the given id, or nil.
func (c *Controller) Lookup(id string) *html.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, el := range c.order {
		if v, _ := dom.Attr(el, render.PlaceholderIDAttr); v == id {
			return el
		}
	}
	return nil
}

// Deliver processes proximity reports. Each intersecting, still observed
// target is either replaced by the first element of its decoded payload or
// removed when the payload is missing, undecodable, or has no element.
func (c *Controller) Deliver(entries []Entry) []Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disconnected {
		return nil
	}

	var out []Transition
	for _, e := range entries {
		if !e.Intersecting || e.Target == nil {
			continue
		}
		if _, ok := c.observed[e.Target]; !ok {
			continue
		}
		c.unobserve(e.Target)
		out = append(out, c.materialize(e.Target))
	}
	return out
}

func (c *Controller) materialize(ph *html.Node) Transition {
	id, _ := dom.Attr(ph, render.PlaceholderIDAttr)
	tr := Transition{ID: id}

	el := c.decode(id, ph)
	if el == nil {
		dom.Remove(ph)
		tr.Removed = true
		return tr
	}
	dom.ReplaceWith(ph, el)
	if c.onMount != nil {
		c.onMount(el)
	}
	tr.Element = el
	tr.HTML = dom.Render(el)
	return tr
}

func (c *Controller) decode(id string, ph *html.Node) *html.Node {
	token, ok := dom.Attr(ph, render.PayloadAttr)
	if !ok || token == "" {
		c.log.Debug("placeholder has no payload", "id", id)
		return nil
	}
	markup, err := codec.Decode(token)
	if err != nil {
		c.log.Debug("payload decode failed", "id", id, "error", err)
		return nil
	}
	nodes, err := dom.ParseFragment(markup)
	if err != nil {
		c.log.Debug("payload parse failed", "id", id, "error", err)
		return nil
	}
	el := dom.FirstElement(nodes)
	if el == nil {
		c.log.Debug("payload has no element", "id", id)
	}
	return el
}

// Scan computes entries for every pending placeholder against the viewport
// using layout, then delivers them.
func (c *Controller) Scan(vp Viewport, layout Layout) []Transition {
	return c.Deliver(Entries(vp, c.margin, c.Targets(), layout))
}

// MaterializeAll delivers an intersecting entry for every pending
// placeholder.
func (c *Controller) MaterializeAll() []Transition {
	c.mu.Lock()
	entries := make([]Entry, 0, len(c.order))
	for _, el := range c.order {
		entries = append(entries, Entry{Target: el, Intersecting: true})
	}
	c.mu.Unlock()
	return c.Deliver(entries)
}
