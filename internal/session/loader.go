package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/profilesite/internal/block"
	"github.com/dgallion1/profilesite/internal/parser"
	"github.com/dgallion1/profilesite/internal/render"
	"github.com/dgallion1/profilesite/internal/source"
	"github.com/dgallion1/profilesite/internal/welcome"
)

// Loader fetches, parses and renders a route into a session.
type Loader struct {
	routes    *Routes
	retriever source.Retriever
	welcome   *welcome.Page
	log       *slog.Logger
}

func NewLoader(routes *Routes, r source.Retriever, w *welcome.Page, log *slog.Logger) *Loader {
	return &Loader{
		routes:    routes,
		retriever: r,
		welcome:   w,
		log:       log.With("component", "loader"),
	}
}

// Routes returns the navigation table.
func (l *Loader) Routes() *Routes { return l.routes }

// Job is a load that has claimed a generation but not yet produced its view.
type Job struct {
	Gen   Generation
	Route Route

	ctx  context.Context
	sess *Session
}

// Begin resolves key and claims a new generation on s. Jobs begun later
// supersede earlier ones no matter which Run finishes first.
func (l *Loader) Begin(ctx context.Context, s *Session, key string) *Job {
	rt, ok := l.routes.Resolve(key)
	if !ok {
		l.log.Debug("unknown route, showing welcome", "key", key)
	}
	ctx, gen := s.Begin(ctx)
	return &Job{Gen: gen, Route: rt, ctx: ctx, sess: s}
}

// Run completes j and returns the mount area markup it produced. ErrStale
// and ErrClosed mean nothing was changed. Any other error has been rendered
// as the error view, which is returned alongside it.
func (l *Loader) Run(j *Job) (string, error) {
	err := l.finish(j)
	if errors.Is(err, ErrStale) || errors.Is(err, ErrClosed) {
		return "", err
	}
	markup, herr := j.sess.ViewHTML(j.Gen)
	if herr != nil {
		return "", herr
	}
	return markup, err
}

// Load begins and runs a load for key and returns the generation it ran
// under.
func (l *Loader) Load(ctx context.Context, s *Session, key string) (Generation, error) {
	j := l.Begin(ctx, s, key)
	return j.Gen, l.finish(j)
}

func (l *Loader) finish(j *Job) error {
	rt := j.Route
	if rt.Welcome {
		return j.sess.Commit(j.Gen, View{Key: rt.Key, Markup: l.welcome.HTML})
	}

	v, err := l.Build(j.ctx, rt)
	if err != nil {
		if ferr := j.sess.Fail(j.Gen, err); ferr != nil {
			l.log.Debug("discarding superseded load", "key", rt.Key, "generation", j.Gen, "error", err)
			return ferr
		}
		l.log.Warn("load failed", "key", rt.Key, "path", rt.Path, "error", err)
		return err
	}
	return j.sess.Commit(j.Gen, *v)
}

// Build retrieves and renders a route without touching any session.
func (l *Loader) Build(ctx context.Context, rt Route) (*View, error) {
	if rt.Welcome {
		return &View{Key: rt.Key, Markup: l.welcome.HTML}, nil
	}

	data, err := l.retriever.Fetch(ctx, rt.Path)
	if err != nil {
		return nil, err
	}
	p, err := parser.ForFormat(rt.Format)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", rt.Key, err)
	}
	res, err := p.Parse(bytes.NewReader(data), rt.Path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rt.Path, err)
	}
	for _, a := range res.Anomalies {
		l.log.Warn("dropped segment", "path", rt.Path, "block", a.Block, "reason", a.Reason, "segment", a.Segment)
	}

	view := render.View{
		Heading: rt.Heading,
		Blocks:  res.Blocks,
		Tree:    rt.Format == parser.FormatTree,
	}
	out := &View{Key: rt.Key}
	if view.Tree {
		view.Canonical = res.Canonical
		out.Tree = &TreeView{Roots: treeRoots(res.Blocks), Canonical: res.Canonical}
	}
	out.Markup = render.Section(view)
	return out, nil
}

func treeRoots(blocks []block.Block) []*block.TreeNode {
	roots := make([]*block.TreeNode, 0, len(blocks))
	for _, b := range blocks {
		if b.Node != nil {
			roots = append(roots, b.Node)
		}
	}
	return roots
}

// IsRetrieval reports whether err came from source retrieval.
func IsRetrieval(err error) bool {
	var rerr *source.RetrievalError
	return errors.As(err, &rerr)
}
