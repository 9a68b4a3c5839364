package api

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zeebo/blake3"
	"golang.org/x/net/html"

	"github.com/dgallion1/profilesite/internal/codec"
	"github.com/dgallion1/profilesite/internal/dom"
	"github.com/dgallion1/profilesite/internal/mount"
	"github.com/dgallion1/profilesite/internal/render"
	"github.com/dgallion1/profilesite/internal/session"
)

// defaultBlockHeight is the assumed height of an unmounted block when a
// viewport is given.
const defaultBlockHeight = 120

// handleView renders a view once. By default every block is left as a
// placeholder; ?materialize=all mounts them all and ?viewport=H mounts the
// blocks that fit a viewport of height H.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	sess := session.New("oneshot", session.Options{Margin: s.margin, Logger: s.log})
	defer sess.Close()

	status := http.StatusOK
	gen, err := s.loader.Load(r.Context(), sess, key)
	switch {
	case errors.Is(err, session.ErrStale):
		jsonError(w, "load superseded", http.StatusConflict)
		return
	case session.IsRetrieval(err):
		status = http.StatusBadGateway
	case err != nil:
		status = http.StatusUnprocessableEntity
	}

	if err == nil {
		q := r.URL.Query()
		if q.Get("materialize") == "all" {
			sess.MaterializeAll(gen)
		} else if v := q.Get("viewport"); v != "" {
			h, perr := strconv.Atoi(v)
			if perr != nil || h < 0 {
				jsonError(w, "viewport must be a non-negative integer", http.StatusBadRequest)
				return
			}
			sess.Scan(gen, mount.Viewport{Height: h}, defaultBlockHeight)
		}
	}

	body := []byte(sess.HTML())
	sum := blake3.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	if status == http.StatusOK && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status == http.StatusOK {
		w.Header().Set("ETag", etag)
	}
	w.WriteHeader(status)
	w.Write(body)
}

// handleBlock returns the decoded fragment of one block of a view.
func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	n := chi.URLParam(r, "n")
	if _, err := strconv.Atoi(n); err != nil {
		jsonError(w, "block index must be an integer", http.StatusBadRequest)
		return
	}

	rt, ok := s.loader.Routes().Resolve(key)
	if !ok {
		jsonError(w, "unknown view: "+key, http.StatusNotFound)
		return
	}
	v, err := s.loader.Build(r.Context(), rt)
	if err != nil {
		code := http.StatusUnprocessableEntity
		if session.IsRetrieval(err) {
			code = http.StatusBadGateway
		}
		jsonError(w, err.Error(), code)
		return
	}

	nodes, err := dom.ParseFragment(v.Markup)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var ph *html.Node
	for _, node := range nodes {
		if ph = dom.Find(node, dom.ByAttr(render.PlaceholderIDAttr, n)); ph != nil {
			break
		}
	}
	if ph == nil {
		jsonError(w, "no block "+n+" in view "+key, http.StatusNotFound)
		return
	}
	token, _ := dom.Attr(ph, render.PayloadAttr)
	fragment, err := codec.Decode(token)
	if err != nil {
		jsonError(w, "block payload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(fragment))
}
