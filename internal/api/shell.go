package api

import (
	"bytes"
	_ "embed"
	"html"
	"net/http"
)

//go:embed static/index.html
var shellPage []byte

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	page := bytes.ReplaceAll(shellPage, []byte("{{ROOT_MARGIN}}"), []byte(html.EscapeString(s.margin.String())))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}
