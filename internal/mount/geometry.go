package mount

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Margin grows the viewport before intersection tests, in CSS pixel order.
type Margin struct {
	Top, Right, Bottom, Left int
}

// DefaultMargin pre-loads content 50px below the viewport.
var DefaultMargin = Margin{Bottom: 50}

// ParseMargin reads a CSS margin shorthand such as "0px 0px 50px 0px".
// One to four values are accepted; the unit suffix is optional.
func ParseMargin(s string) (Margin, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 4 {
		return Margin{}, fmt.Errorf("margin %q: expected 1 to 4 values", s)
	}
	vals := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSuffix(f, "px"))
		if err != nil {
			return Margin{}, fmt.Errorf("margin %q: bad value %q", s, f)
		}
		vals[i] = v
	}
	switch len(vals) {
	case 1:
		return Margin{vals[0], vals[0], vals[0], vals[0]}, nil
	case 2:
		return Margin{vals[0], vals[1], vals[0], vals[1]}, nil
	case 3:
		return Margin{vals[0], vals[1], vals[2], vals[1]}, nil
	default:
		return Margin{vals[0], vals[1], vals[2], vals[3]}, nil
	}
}

func (m Margin) String() string {
	return fmt.Sprintf("%dpx %dpx %dpx %dpx", m.Top, m.Right, m.Bottom, m.Left)
}

// Viewport is the visible vertical window of the document.
type Viewport struct {
	Top    int
	Height int
}

// Rect is the vertical extent of an element.
type Rect struct {
	Top, Bottom int
}

// Intersects reports whether r overlaps the viewport grown by m.
func (vp Viewport) Intersects(m Margin, r Rect) bool {
	top := vp.Top - m.Top
	bottom := vp.Top + vp.Height + m.Bottom
	return r.Top < bottom && r.Bottom > top
}

// Layout positions an element. It reports false when the element is not laid
// out.
type Layout func(el *html.Node) (Rect, bool)

// Entries builds one entry per target using layout.
func Entries(vp Viewport, m Margin, targets []*html.Node, layout Layout) []Entry {
	out := make([]Entry, 0, len(targets))
	for _, el := range targets {
		r, ok := layout(el)
		out = append(out, Entry{Target: el, Intersecting: ok && vp.Intersects(m, r)})
	}
	return out
}

// Stack lays targets out top to bottom in the given order, each with the same
// height, starting at offset.
func Stack(targets []*html.Node, offset, height int) Layout {
	pos := make(map[*html.Node]int, len(targets))
	for i, el := range targets {
		pos[el] = i
	}
	return func(el *html.Node) (Rect, bool) {
		i, ok := pos[el]
		if !ok {
			return Rect{}, false
		}
		top := offset + i*height
		return Rect{Top: top, Bottom: top + height}, true
	}
}
