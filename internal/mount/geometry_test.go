package mount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/dgallion1/profilesite/internal/dom"
)

func TestParseMargin(t *testing.T) {
	tests := []struct {
		in   string
		want Margin
	}{
		{"0px 0px 50px 0px", Margin{Bottom: 50}},
		{"10px", Margin{10, 10, 10, 10}},
		{"10px 20px", Margin{10, 20, 10, 20}},
		{"1 2 3", Margin{1, 2, 3, 2}},
	}
	for _, tt := range tests {
		got, err := ParseMargin(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "1 2 3 4 5", "10em"} {
		_, err := ParseMargin(bad)
		assert.Error(t, err, bad)
	}
}

func TestMargin_StringRoundTrips(t *testing.T) {
	m, err := ParseMargin(DefaultMargin.String())
	require.NoError(t, err)
	assert.Equal(t, DefaultMargin, m)
}

func TestViewport_Intersects(t *testing.T) {
	vp := Viewport{Top: 100, Height: 200}
	tests := []struct {
		name string
		r    Rect
		m    Margin
		want bool
	}{
		{"inside", Rect{150, 200}, Margin{}, true},
		{"above", Rect{0, 100}, Margin{}, false},
		{"below", Rect{300, 400}, Margin{}, false},
		{"below within margin", Rect{320, 400}, DefaultMargin, true},
		{"below past margin", Rect{350, 400}, DefaultMargin, false},
		{"straddles top", Rect{50, 120}, Margin{}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, vp.Intersects(tt.m, tt.r), tt.name)
	}
}

func TestEntries_UnlaidTargetsNotIntersecting(t *testing.T) {
	a := dom.NewElement("div")
	b := dom.NewElement("div")
	layout := Stack([]*html.Node{a}, 0, 10)

	entries := Entries(Viewport{Height: 100}, Margin{}, []*html.Node{a, b}, layout)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Intersecting)
	assert.False(t, entries[1].Intersecting)
}
