package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/profilesite/internal/block"
)

func TestReportParser_TwoRecords(t *testing.T) {
	input := "**A**\ntext1\n// line\n**B**\ntext2"
	p := &ReportParser{}
	res, err := p.Parse(strings.NewReader(input), "Test_Result.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(res.Blocks))
	}
	if res.Blocks[0].Title != "A" || res.Blocks[1].Title != "B" {
		t.Errorf("expected titles A, B; got %q, %q", res.Blocks[0].Title, res.Blocks[1].Title)
	}
	if res.Blocks[0].BodyHTML != "text1" {
		t.Errorf("expected body %q, got %q", "text1", res.Blocks[0].BodyHTML)
	}
	for i, b := range res.Blocks {
		if b.Kind != block.KindReport {
			t.Errorf("block[%d]: expected kind %q, got %q", i, block.KindReport, b.Kind)
		}
	}
}

func TestReportParser_EmptyRecordSkipped(t *testing.T) {
	input := "**A**\nx\n\n// line\n\n   \n\n// line\n\n**B**\ny\n// line\n"
	p := &ReportParser{}
	res, err := p.Parse(strings.NewReader(input), "Test_Result.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(res.Blocks))
	}
	if strings.Contains(res.Blocks[1].BodyHTML, "// line") {
		t.Errorf("delimiter leaked into body: %q", res.Blocks[1].BodyHTML)
	}
}

func TestReportParser_DefaultTitleAndDivider(t *testing.T) {
	input := "Summary line\n---\nDetails & more"
	p := &ReportParser{}
	res, err := p.Parse(strings.NewReader(input), "Test_Result.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(res.Blocks))
	}
	b := res.Blocks[0]
	if b.Title != DefaultReportTitle {
		t.Errorf("expected default title, got %q", b.Title)
	}
	want := "Summary line<br><hr><br>Details &amp; more"
	if b.BodyHTML != want {
		t.Errorf("expected body %q, got %q", want, b.BodyHTML)
	}
}

func TestReportParser_MarkerRemovedFromBody(t *testing.T) {
	input := "Intro **Scores** tail"
	p := &ReportParser{}
	res, err := p.Parse(strings.NewReader(input), "Test_Result.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := res.Blocks[0]
	if b.Title != "Scores" {
		t.Errorf("expected title %q, got %q", "Scores", b.Title)
	}
	if strings.Contains(b.BodyHTML, "**") {
		t.Errorf("marker left in body: %q", b.BodyHTML)
	}
}

func TestReportParser_DashRunsBecomeOneDivider(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "three", in: "a\n---\nb", want: "a<br><hr><br>b"},
		{name: "four", in: "a\n----\nb", want: "a<br><hr><br>b"},
		{name: "six", in: "a\n------\nb", want: "a<br><hr><br>b"},
		{name: "two", in: "a -- b", want: "a -- b"},
	}
	p := &ReportParser{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := p.Parse(strings.NewReader(tc.in), "Test_Result.txt")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := res.Blocks[0].BodyHTML; got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
