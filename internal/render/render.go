// Package render turns parsed blocks into placeholder markup.
//
// Every block is wrapped in a kind-specific container with exactly one root
// element, encoded with the codec, and emitted as a lazy-load placeholder.
// Placeholder order always equals block order.
package render

import (
	"fmt"
	"strings"

	"github.com/dgallion1/profilesite/internal/block"
	"github.com/dgallion1/profilesite/internal/codec"
	"golang.org/x/net/html"
)

// Class names and ids shared with the mount controller and the session.
const (
	PlaceholderClass   = "lazy-load-placeholder"
	PlaceholderIDAttr  = "data-placeholder"
	PayloadAttr        = "data-content"
	SectionClass       = "content-section"
	ToggleButtonID     = "json-toggle-expand"
	CopyButtonID       = "json-copy"
	DataContainerID    = "json-data-container"
	DataAttr           = "data-json"
	NodeIDAttr         = "data-node-id"
	CollapsedClass     = "collapsed"
	ExpandAllLabel     = "Expand All"
	CollapseAllLabel   = "Collapse All"
	defaultBlockLabel  = "Loading..."
	loadingMessage     = "Loading..."
	errorMessageFormat = "Error loading content: %s. Please try again."
)

var interimLabels = map[block.Kind]string{
	block.KindNarrative: "Loading Section...",
	block.KindQATest:    "Loading Test Block...",
	block.KindReport:    "Loading Report...",
	block.KindTreeNode:  "Loading Node...",
}

// Fragment returns the block wrapped in its kind container. The result always
// has a single root element.
func Fragment(b block.Block) string {
	title := html.EscapeString(b.Title)
	switch b.Kind {
	case block.KindNarrative:
		return fmt.Sprintf(`<div class="story-section" data-kind="%s"><h3>%s</h3><p>%s</p></div>`, b.Kind, title, b.BodyHTML)
	case block.KindQATest:
		return fmt.Sprintf(`<div class="test-block" data-kind="%s"><h3>%s</h3>%s</div>`, b.Kind, title, b.BodyHTML)
	case block.KindReport:
		return fmt.Sprintf(`<div class="report-card" data-kind="%s"><h3>%s</h3><div>%s</div></div>`, b.Kind, title, b.BodyHTML)
	case block.KindTreeNode:
		return fmt.Sprintf(`<ul class="json-tree json-node" data-kind="%s">%s</ul>`, b.Kind, b.BodyHTML)
	default:
		return fmt.Sprintf(`<div class="block" data-kind="%s"><h3>%s</h3><div>%s</div></div>`, html.EscapeString(string(b.Kind)), title, b.BodyHTML)
	}
}

// Placeholder emits the mount point for the block at index.
func Placeholder(index int, b block.Block) string {
	label, ok := interimLabels[b.Kind]
	if !ok {
		label = defaultBlockLabel
	}
	return fmt.Sprintf(`<div class="%s" %s="%d" %s="%s">%s</div>`,
		PlaceholderClass, PlaceholderIDAttr, index, PayloadAttr, codec.Encode(Fragment(b)), label)
}

// View describes one navigable section.
type View struct {
	Heading   string
	Blocks    []block.Block
	Tree      bool   // Adds the expand/copy controls
	Canonical string // Tree views: text exposed by the copy action
}

// Section renders a whole view: heading, optional tree controls, and one
// placeholder per block in order, inside a single content section.
func Section(v View) string {
	var b strings.Builder
	b.WriteString(`<div class="` + SectionClass + `">`)
	if v.Heading != "" {
		fmt.Fprintf(&b, `<h2 class="section-title">%s</h2>`, html.EscapeString(v.Heading))
	}
	if v.Tree {
		fmt.Fprintf(&b, `<div class="json-controls"><button class="json-btn" id="%s">%s</button><button class="json-btn" id="%s">Copy JSON</button></div>`,
			ToggleButtonID, ExpandAllLabel, CopyButtonID)
	}
	for i, blk := range v.Blocks {
		b.WriteString(Placeholder(i, blk))
	}
	if v.Tree {
		fmt.Fprintf(&b, `<div id="%s" %s="%s" style="display: none;"></div>`,
			DataContainerID, DataAttr, html.EscapeString(v.Canonical))
	}
	b.WriteString(`</div>`)
	return b.String()
}

// Loading is shown while a source is being retrieved.
func Loading() string {
	return `<div class="` + SectionClass + `"><p>` + loadingMessage + `</p></div>`
}

// Error is shown when a load is abandoned.
func Error(err error) string {
	msg := fmt.Sprintf(errorMessageFormat, err.Error())
	return `<div class="` + SectionClass + `"><p>` + html.EscapeString(msg) + `</p></div>`
}
