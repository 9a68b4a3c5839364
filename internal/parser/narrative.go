package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/profilesite/internal/block"
)

// NarrativeParser handles free text split into sections by **Title:** markers.
type NarrativeParser struct{}

func (p *NarrativeParser) Parse(r io.Reader, filename string) (*Result, error) {
	text, err := readText(r)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	markers := emphasis.FindAllStringSubmatchIndex(text, -1)
	// Text before the first marker has no title and is dropped.
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		title := strings.TrimSpace(text[m[2]:m[3]])
		title = strings.TrimSpace(strings.TrimRight(title, ":"))
		body := strings.TrimSpace(text[m[1]:end])

		res.Blocks = append(res.Blocks, block.Block{
			Kind:     block.KindNarrative,
			Title:    title,
			BodyHTML: textToHTML(body),
		})
	}
	return res, nil
}
