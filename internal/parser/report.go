package parser

import (
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/profilesite/internal/block"
)

// DefaultReportTitle is used for records without an emphasis-marked title.
const DefaultReportTitle = "Analysis Report"

const recordDelimiter = "// line"

var dividerRun = regexp.MustCompile(`-{3,}`)

// ReportParser handles records separated by "// line" delimiter lines.
type ReportParser struct{}

func (p *ReportParser) Parse(r io.Reader, filename string) (*Result, error) {
	text, err := readText(r)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var current []string

	flush := func() {
		record := strings.TrimSpace(strings.Join(current, "\n"))
		current = nil
		if record == "" {
			return
		}
		title := DefaultReportTitle
		if loc := emphasis.FindStringSubmatchIndex(record); loc != nil {
			if t := strings.TrimSpace(record[loc[2]:loc[3]]); t != "" {
				title = t
			}
			record = record[:loc[0]] + record[loc[1]:]
		}
		body := textToHTML(strings.TrimSpace(record))
		body = dividerRun.ReplaceAllString(body, "<hr>")

		res.Blocks = append(res.Blocks, block.Block{
			Kind:     block.KindReport,
			Title:    title,
			BodyHTML: body,
		})
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == recordDelimiter {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return res, nil
}
