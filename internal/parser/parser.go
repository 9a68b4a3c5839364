package parser

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/profilesite/internal/block"
	"golang.org/x/net/html"
)

// Parser converts a raw source into an ordered sequence of blocks.
// Implementations are pure: they keep no state between calls.
type Parser interface {
	Parse(r io.Reader, filename string) (*Result, error)
}

// Result is the output of a single parse.
type Result struct {
	Blocks    []block.Block
	Anomalies []Anomaly // Segments that were dropped; never fatal
	Canonical string    // Tree sources only: indented JSON of the whole document
}

// Anomaly describes a content segment that matched no expected shape.
type Anomaly struct {
	Block   string // Title of the enclosing block
	Segment string
	Reason  string
}

// Format names a source shape.
type Format string

const (
	FormatNarrative Format = "narrative"
	FormatQATest    Format = "qa-test"
	FormatReport    Format = "report"
	FormatTree      Format = "tree"
)

// SupportedFormats lists the formats this package can parse.
var SupportedFormats = map[Format]bool{
	FormatNarrative: true,
	FormatQATest:    true,
	FormatReport:    true,
	FormatTree:      true,
}

// ForFormat returns the parser for a format.
func ForFormat(f Format) (Parser, error) {
	switch f {
	case FormatNarrative:
		return &NarrativeParser{}, nil
	case FormatQATest:
		return &QATestParser{}, nil
	case FormatReport:
		return &ReportParser{}, nil
	case FormatTree:
		return &TreeParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %q", f)
	}
}

// emphasis matches a single-line **marked** run.
var emphasis = regexp.MustCompile(`\*\*(.*?)\*\*`)

func readText(r io.Reader) (string, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return strings.ReplaceAll(string(src), "\r\n", "\n"), nil
}

// textToHTML escapes text and turns newlines into line breaks.
func textToHTML(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}
