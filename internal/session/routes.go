package session

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/dgallion1/profilesite/internal/parser"
)

// WelcomeKey is the route of the welcome pseudo-source.
const WelcomeKey = "nav-welcome"

// Route maps a navigation key to a source and its format.
type Route struct {
	Key     string        `json:"key"`
	Path    string        `json:"path,omitempty"`
	Format  parser.Format `json:"format,omitempty"`
	Heading string        `json:"heading,omitempty"`
	Welcome bool          `json:"welcome,omitempty"`
}

type routeDef struct {
	path    string
	format  parser.Format
	heading string // {file} is replaced with the source base name
}

var defaultRoutes = map[string]routeDef{
	"nav-story":   {"Life.txt", parser.FormatNarrative, "My Story ({file})"},
	"nav-profile": {"info.json", parser.FormatTree, "Full Profile ({file})"},
	"nav-test1":   {"Test.txt", parser.FormatQATest, "Psychological & Behavioral Tests ({file})"},
	"nav-test2":   {"Test2.txt", parser.FormatQATest, "Psychological & Behavioral Tests ({file})"},
	"nav-results": {"Test_Result.txt", parser.FormatReport, "Test Analysis & Reports"},
}

// Routes is the fixed navigation table.
type Routes struct {
	byKey map[string]Route
}

// NewRoutes builds the table, replacing source paths with overrides. Unknown
// override keys are an error.
func NewRoutes(overrides map[string]string) (*Routes, error) {
	r := &Routes{byKey: make(map[string]Route, len(defaultRoutes)+1)}
	for key, def := range defaultRoutes {
		p := def.path
		if o, ok := overrides[key]; ok && o != "" {
			p = o
		}
		r.byKey[key] = Route{
			Key:     key,
			Path:    p,
			Format:  def.format,
			Heading: strings.ReplaceAll(def.heading, "{file}", path.Base(p)),
		}
	}
	for key := range overrides {
		if _, ok := defaultRoutes[key]; !ok {
			return nil, fmt.Errorf("unknown route %q in source overrides", key)
		}
	}
	r.byKey[WelcomeKey] = Route{Key: WelcomeKey, Welcome: true}
	return r, nil
}

// Resolve returns the route for key. Unknown keys resolve to the welcome
// route and report false.
func (r *Routes) Resolve(key string) (Route, bool) {
	rt, ok := r.byKey[key]
	if !ok {
		return r.byKey[WelcomeKey], false
	}
	return rt, true
}

// All returns every route sorted by key.
func (r *Routes) All() []Route {
	out := make([]Route, 0, len(r.byKey))
	for _, rt := range r.byKey {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
