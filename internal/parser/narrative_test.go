package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/profilesite/internal/block"
)

func TestNarrativeParser_SectionsInOrder(t *testing.T) {
	input := "**Childhood:**\nGrew up by the sea.\nLoved books.\n\n**School:** Top of the class.\n**Work:**\nEngineer."
	p := &NarrativeParser{}
	res, err := p.Parse(strings.NewReader(input), "Life.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(res.Blocks))
	}

	want := []struct {
		title string
		body  string
	}{
		{"Childhood", "Grew up by the sea.<br>Loved books."},
		{"School", "Top of the class."},
		{"Work", "Engineer."},
	}
	for i, w := range want {
		b := res.Blocks[i]
		if b.Kind != block.KindNarrative {
			t.Errorf("block[%d]: expected kind %q, got %q", i, block.KindNarrative, b.Kind)
		}
		if b.Title != w.title {
			t.Errorf("block[%d]: expected title %q, got %q", i, w.title, b.Title)
		}
		if b.BodyHTML != w.body {
			t.Errorf("block[%d]: expected body %q, got %q", i, w.body, b.BodyHTML)
		}
	}
}

func TestNarrativeParser_TrailingColonNeverInTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"**Title:** body", "Title"},
		{"**Title::** body", "Title"},
		{"**Title :** body", "Title"},
		{"**Time: 10:30** body", "Time: 10:30"},
		{"**No colon** body", "No colon"},
	}
	p := &NarrativeParser{}
	for _, tt := range tests {
		res, err := p.Parse(strings.NewReader(tt.input), "Life.txt")
		if err != nil {
			t.Fatalf("input=%q: unexpected error: %v", tt.input, err)
		}
		if len(res.Blocks) != 1 {
			t.Fatalf("input=%q: expected 1 block, got %d", tt.input, len(res.Blocks))
		}
		if got := res.Blocks[0].Title; got != tt.want {
			t.Errorf("input=%q: expected title %q, got %q", tt.input, tt.want, got)
		}
		if strings.HasSuffix(res.Blocks[0].Title, ":") {
			t.Errorf("input=%q: title kept trailing colon", tt.input)
		}
	}
}

func TestNarrativeParser_UntitledPreambleDropped(t *testing.T) {
	input := "Some preamble without a title.\n**Only:** content"
	p := &NarrativeParser{}
	res, err := p.Parse(strings.NewReader(input), "Life.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(res.Blocks))
	}
	if strings.Contains(res.Blocks[0].BodyHTML, "preamble") {
		t.Errorf("preamble leaked into body: %q", res.Blocks[0].BodyHTML)
	}
}

func TestNarrativeParser_EmptyBodyStillCounts(t *testing.T) {
	input := "**A:**\n**B:** text"
	p := &NarrativeParser{}
	res, err := p.Parse(strings.NewReader(input), "Life.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(res.Blocks))
	}
	if res.Blocks[0].BodyHTML != "" {
		t.Errorf("expected empty body, got %q", res.Blocks[0].BodyHTML)
	}
}

func TestNarrativeParser_EscapesMarkup(t *testing.T) {
	input := "**<b>Bold</b>:** 1 < 2 & \"quotes\""
	p := &NarrativeParser{}
	res, err := p.Parse(strings.NewReader(input), "Life.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := res.Blocks[0]
	if b.Title != "<b>Bold</b>" {
		t.Errorf("expected raw title, got %q", b.Title)
	}
	if b.BodyHTML != "1 &lt; 2 &amp; &#34;quotes&#34;" {
		t.Errorf("unexpected escaped body %q", b.BodyHTML)
	}
}

func TestNarrativeParser_EmptyInput(t *testing.T) {
	p := &NarrativeParser{}
	res, err := p.Parse(strings.NewReader(""), "Life.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Blocks) != 0 {
		t.Errorf("expected 0 blocks, got %d", len(res.Blocks))
	}
}
