package parser

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/profilesite/internal/block"
	"golang.org/x/net/html"
)

const answerMarker = "#"

var (
	braceRegion    = regexp.MustCompile(`(?s)\{(.*?)\}`)
	questionMarker = regexp.MustCompile(`(\d+)\.(?:\s+|$)`)
	// An inline answer starts at a standalone marker, never inside a word
	// like "C#" or "#1".
	inlineAnswer = regexp.MustCompile(`(?:^|\s)#(?:\s|$)`)
)

// QATestParser handles brace-delimited test blocks holding numbered questions.
type QATestParser struct{}

func (p *QATestParser) Parse(r io.Reader, filename string) (*Result, error) {
	text, err := readText(r)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, frag := range splitBraces(text) {
		// Fragments without a leading title are delimiter noise.
		if !strings.HasPrefix(frag, "**") {
			continue
		}
		loc := emphasis.FindStringSubmatchIndex(frag)
		if loc == nil {
			continue
		}
		title := strings.TrimSpace(frag[loc[2]:loc[3]])
		rest := strings.TrimSpace(frag[:loc[0]] + frag[loc[1]:])

		units, anomalies := scanQuestions(title, rest)
		res.Anomalies = append(res.Anomalies, anomalies...)
		res.Blocks = append(res.Blocks, block.Block{
			Kind:      block.KindQATest,
			Title:     title,
			BodyHTML:  questionsHTML(units),
			Questions: units,
		})
	}
	return res, nil
}

// splitBraces returns the trimmed, non-empty fragments inside and between
// brace regions, in source order.
func splitBraces(text string) []string {
	var frags []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			frags = append(frags, s)
		}
	}
	prev := 0
	for _, m := range braceRegion.FindAllStringSubmatchIndex(text, -1) {
		add(text[prev:m[0]])
		add(text[m[2]:m[3]])
		prev = m[1]
	}
	add(text[prev:])
	return frags
}

type marker struct {
	number     int
	start, end int // Byte span of "<n>. " in the scanned text
}

// findMarkers returns numeric question markers that start a word.
func findMarkers(text string) []marker {
	var out []marker
	for _, m := range questionMarker.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > 0 && !isSpace(text[m[0]-1]) {
			continue
		}
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		out = append(out, marker{number: n, start: m[0], end: m[1]})
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// scanQuestions walks the block body and emits one unit per numeric marker.
// A unit is finalized when the next marker or the end of the body is reached.
func scanQuestions(title, body string) ([]block.QAUnit, []Anomaly) {
	markers := findMarkers(body)
	var anomalies []Anomaly

	lead := body
	if len(markers) > 0 {
		lead = body[:markers[0].start]
	}
	if s := strings.TrimSpace(lead); s != "" {
		anomalies = append(anomalies, Anomaly{
			Block:   title,
			Segment: s,
			Reason:  "content before first question",
		})
	}

	units := make([]block.QAUnit, 0, len(markers))
	for i, m := range markers {
		end := len(body)
		if i+1 < len(markers) {
			end = markers[i+1].start
		}
		q, a := splitQuestion(body[m.end:end])
		units = append(units, block.QAUnit{Number: m.number, Question: q, Answer: a})
	}
	return units, anomalies
}

// splitQuestion separates a segment into its question line and answer text.
// Answer lines lose their leading continuation marker.
func splitQuestion(seg string) (string, string) {
	lines := strings.Split(seg, "\n")
	first, rest := lines[0], lines[1:]
	if loc := inlineAnswer.FindStringIndex(first); loc != nil {
		rest = append([]string{first[loc[0]:]}, rest...)
		first = first[:loc[0]]
	}

	answer := make([]string, 0, len(rest))
	for _, line := range rest {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, answerMarker))
		answer = append(answer, line)
	}
	return strings.TrimSpace(first), strings.TrimSpace(strings.Join(answer, "\n"))
}

func questionsHTML(units []block.QAUnit) string {
	var b strings.Builder
	for _, u := range units {
		fmt.Fprintf(&b, `<div class="question-block"><div class="question">%d. %s</div><div class="answer">%s</div></div>`,
			u.Number, html.EscapeString(u.Question), textToHTML(u.Answer))
	}
	return b.String()
}
