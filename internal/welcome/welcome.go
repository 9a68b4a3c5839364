// Package welcome renders the landing view shown before any source is
// selected and for unknown routes.
package welcome

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

//go:embed welcome.md
var defaultText []byte

// DefaultImage is the profile image path served from the content root.
const DefaultImage = "/static/img.jpg"

// Page is a rendered welcome view.
type Page struct {
	Name  string // Text of the first heading
	Image string
	HTML  string // Complete content-section markup
}

// Load reads welcome text from path, or the built-in text when path is empty.
func Load(path, image string) (*Page, error) {
	src := defaultText
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read welcome file: %w", err)
		}
		src = b
	}
	return Render(src, image)
}

// Render converts markdown to the welcome view. Top-level headings are
// demoted one level so the page title sits under the site header.
func Render(src []byte, image string) (*Page, error) {
	if image == "" {
		image = DefaultImage
	}
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var name string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		if name == "" {
			name = headingText(h, src)
		}
		if h.Level < 6 {
			h.Level++
		}
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk welcome text: %w", err)
	}

	var body bytes.Buffer
	if err := md.Renderer().Render(&body, src, doc); err != nil {
		return nil, fmt.Errorf("render welcome text: %w", err)
	}

	alt := "Profile"
	if name != "" {
		alt = name + " Profile"
	}
	var b strings.Builder
	b.WriteString(`<div class="content-section welcome-container"><div class="welcome-text">`)
	b.Write(bytes.TrimSpace(body.Bytes()))
	fmt.Fprintf(&b, `</div><div class="welcome-image"><img src="%s" alt="%s" id="profile-img"></div></div>`,
		html.EscapeString(image), html.EscapeString(alt))

	return &Page{Name: name, Image: image, HTML: b.String()}, nil
}

func headingText(h *ast.Heading, src []byte) string {
	var buf bytes.Buffer
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
		}
	}
	return strings.TrimSpace(buf.String())
}
