package session

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/dgallion1/profilesite/internal/block"
	"github.com/dgallion1/profilesite/internal/dom"
	"github.com/dgallion1/profilesite/internal/render"
)

// TreeView carries the structured document behind a tree view.
type TreeView struct {
	Roots     []*block.TreeNode
	Canonical string
}

// treeBindings hold the toggle state of a tree view. The node model is the
// source of truth; mounted markup follows it.
type treeBindings struct {
	nodes    map[string]*block.TreeNode
	expanded bool // Label state of the expand/collapse button

	toggleBtn *html.Node
	copyBtn   *html.Node
}

func newTreeBindings(v *TreeView) *treeBindings {
	b := &treeBindings{nodes: make(map[string]*block.TreeNode)}
	for _, root := range v.Roots {
		root.Walk(func(n *block.TreeNode) {
			b.nodes[n.ID] = n
		})
	}
	return b
}

// wire finds the view controls in area. It reports whether both were found.
func (b *treeBindings) wire(area *html.Node) bool {
	b.toggleBtn = dom.Find(area, dom.ByID(render.ToggleButtonID))
	b.copyBtn = dom.Find(area, dom.ByID(render.CopyButtonID))
	return b.toggleBtn != nil && b.copyBtn != nil
}

// apply syncs the collapsed class of every tree item under el with the
// model.
func (b *treeBindings) apply(el *html.Node) {
	for _, li := range dom.FindAll(el, func(n *html.Node) bool {
		_, ok := dom.Attr(n, render.NodeIDAttr)
		return ok
	}) {
		id, _ := dom.Attr(li, render.NodeIDAttr)
		if n, ok := b.nodes[id]; ok && n.Composite() {
			dom.SetClass(li, render.CollapsedClass, n.Collapsed)
		}
	}
}

func (b *treeBindings) toggle(area *html.Node, id string) (bool, error) {
	n, ok := b.nodes[id]
	if !ok {
		return false, fmt.Errorf("toggle %q: unknown node", id)
	}
	if !n.Composite() {
		return false, fmt.Errorf("toggle %q: node is not collapsible", id)
	}
	n.Collapsed = !n.Collapsed
	if li := dom.Find(area, dom.ByAttr(render.NodeIDAttr, id)); li != nil {
		dom.SetClass(li, render.CollapsedClass, n.Collapsed)
	}
	return n.Collapsed, nil
}

// toggleAll expands everything when the button reads Expand All, collapses
// everything otherwise, and flips the label.
func (b *treeBindings) toggleAll(area *html.Node) string {
	collapse := b.expanded
	for _, n := range b.nodes {
		if n.Composite() {
			n.Collapsed = collapse
		}
	}
	b.expanded = !b.expanded
	b.apply(area)

	label := render.ExpandAllLabel
	if b.expanded {
		label = render.CollapseAllLabel
	}
	if b.toggleBtn != nil {
		dom.SetText(b.toggleBtn, label)
	}
	return label
}
