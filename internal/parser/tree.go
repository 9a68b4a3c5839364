package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/profilesite/internal/block"
	"github.com/goccy/go-yaml"
	"golang.org/x/net/html"
)

// TreeParser handles structured profile documents (JSON, or YAML by extension).
// Key order and nesting of the source are preserved exactly.
type TreeParser struct{}

func (p *TreeParser) Parse(r io.Reader, filename string) (*Result, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	var roots []*block.TreeNode
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		roots, err = decodeYAML(src)
	default:
		roots, err = decodeJSON(src)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{Canonical: CanonicalJSON(roots)}
	for _, n := range roots {
		res.Blocks = append(res.Blocks, block.Block{
			Kind:     block.KindTreeNode,
			Title:    n.Key,
			BodyHTML: NodeHTML(n),
			Node:     n,
		})
	}
	return res, nil
}

func nodeID(parent string, i int) string {
	if parent == "" {
		return "n" + strconv.Itoa(i)
	}
	return parent + "." + strconv.Itoa(i)
}

// decodeJSON walks the token stream so object member order survives.
func decodeJSON(src []byte) ([]*block.TreeNode, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("parse json: document must be an object")
	}
	roots, err := readMembers(dec, "")
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("parse json: trailing data after document")
	}
	return roots, nil
}

// readMembers reads object members up to and including the closing brace.
func readMembers(dec *json.Decoder, parent string) ([]*block.TreeNode, error) {
	var nodes []*block.TreeNode
	for i := 0; dec.More(); i++ {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		n, err := readValue(dec, key, nodeID(parent, i))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func readValue(dec *json.Decoder, key, id string) (*block.TreeNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	n := &block.TreeNode{ID: id, Key: key}
	switch v := tok.(type) {
	case json.Delim:
		n.Collapsed = true
		if v == '{' {
			n.Type = block.TypeObject
			n.Children, err = readMembers(dec, id)
			return n, err
		}
		n.Type = block.TypeArray
		for i := 0; dec.More(); i++ {
			child, err := readValue(dec, strconv.Itoa(i), nodeID(id, i))
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
		_, err = dec.Token()
		return n, err
	case string:
		n.Type, n.Literal = block.TypeString, quoteJSON(v)
	case json.Number:
		// Out of range literals decode to ±Inf, which formatFloat maps to null.
		f, _ := v.Float64()
		n.Type, n.Literal = block.TypeNumber, formatFloat(f)
	case bool:
		n.Type, n.Literal = block.TypeBoolean, strconv.FormatBool(v)
	case nil:
		n.Type, n.Literal = block.TypeNull, "null"
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
	return n, nil
}

func decodeYAML(src []byte) ([]*block.TreeNode, error) {
	var doc any
	if err := yaml.UnmarshalWithOptions(src, &doc, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	top, ok := doc.(yaml.MapSlice)
	if !ok {
		return nil, errors.New("parse yaml: document must be a mapping")
	}
	roots := make([]*block.TreeNode, 0, len(top))
	for i, item := range top {
		roots = append(roots, yamlNode(fmt.Sprint(item.Key), item.Value, nodeID("", i)))
	}
	return roots, nil
}

func yamlNode(key string, v any, id string) *block.TreeNode {
	n := &block.TreeNode{ID: id, Key: key}
	switch t := v.(type) {
	case yaml.MapSlice:
		n.Type, n.Collapsed = block.TypeObject, true
		for i, item := range t {
			n.Children = append(n.Children, yamlNode(fmt.Sprint(item.Key), item.Value, nodeID(id, i)))
		}
	case []any:
		n.Type, n.Collapsed = block.TypeArray, true
		for i, el := range t {
			n.Children = append(n.Children, yamlNode(strconv.Itoa(i), el, nodeID(id, i)))
		}
	case nil:
		n.Type, n.Literal = block.TypeNull, "null"
	case bool:
		n.Type, n.Literal = block.TypeBoolean, strconv.FormatBool(t)
	case string:
		n.Type, n.Literal = block.TypeString, quoteJSON(t)
	case int:
		n.Type, n.Literal = block.TypeNumber, strconv.Itoa(t)
	case int64:
		n.Type, n.Literal = block.TypeNumber, strconv.FormatInt(t, 10)
	case uint64:
		n.Type, n.Literal = block.TypeNumber, strconv.FormatUint(t, 10)
	case float64:
		n.Type, n.Literal = block.TypeNumber, formatFloat(t)
	default:
		n.Type, n.Literal = block.TypeString, quoteJSON(fmt.Sprint(t))
	}
	return n
}

// formatFloat renders the shortest round-trip form of f with a browser's
// JSON.stringify layout (1.5, 1e+21, 1e-7, 0 for -0). Non-finite values have no JSON
// form and become null.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	if math.Abs(f) >= 1e21 || (f != 0 && math.Abs(f) < 1e-6) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func quoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// CanonicalJSON renders the document with two-space indentation and the
// source key order.
func CanonicalJSON(roots []*block.TreeNode) string {
	var b strings.Builder
	writeMembers(&b, roots, block.TypeObject, 0)
	return b.String()
}

func writeMembers(b *strings.Builder, nodes []*block.TreeNode, t block.ValueType, depth int) {
	open, closing := "{", "}"
	if t == block.TypeArray {
		open, closing = "[", "]"
	}
	if len(nodes) == 0 {
		b.WriteString(open + closing)
		return
	}
	b.WriteString(open + "\n")
	indent := strings.Repeat("  ", depth+1)
	for i, n := range nodes {
		b.WriteString(indent)
		if t == block.TypeObject {
			b.WriteString(quoteJSON(n.Key) + ": ")
		}
		if n.Composite() {
			writeMembers(b, n.Children, n.Type, depth+1)
		} else {
			b.WriteString(n.Literal)
		}
		if i < len(nodes)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(strings.Repeat("  ", depth) + closing)
}

// NodeHTML renders a node as a json-tree list item.
func NodeHTML(n *block.TreeNode) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *block.TreeNode) {
	key := `<span class="key">` + html.EscapeString(quoteJSON(n.Key)) + `: </span>`
	if !n.Composite() {
		fmt.Fprintf(b, `<li data-node-id="%s">%s<span class="%s">%s</span></li>`,
			n.ID, key, n.Type, html.EscapeString(n.Literal))
		return
	}
	open, closing := "{", "}"
	if n.Type == block.TypeArray {
		open, closing = "[", "]"
	}
	class := ""
	if n.Collapsed {
		class = ` class="collapsed"`
	}
	fmt.Fprintf(b, `<li%s data-node-id="%s"><span class="collapsible">%s%s</span><ul>`, class, n.ID, key, open)
	for _, c := range n.Children {
		writeNode(b, c)
	}
	fmt.Fprintf(b, `</ul><span>%s</span></li>`, closing)
}
