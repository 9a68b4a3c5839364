package block

// Kind tells the renderer which container a block is wrapped in.
type Kind string

const (
	KindNarrative Kind = "narrative"
	KindQATest    Kind = "qa-test"
	KindReport    Kind = "report"
	KindTreeNode  Kind = "tree-node"
)

// Block is one ordered unit of renderable content produced by a parser.
type Block struct {
	Kind      Kind
	Title     string    // Section title (may be a default label)
	BodyHTML  string    // Escaped markup fragment, without the kind container
	Questions []QAUnit  // qa-test blocks only
	Node      *TreeNode // tree-node blocks only
}

// QAUnit is a single numbered question with its answer.
type QAUnit struct {
	Number   int // Taken verbatim from the source, not unique
	Question string
	Answer   string // Plain text, newline separated; may be empty
}

// ValueType is the JSON type of a tree node's value.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeNull    ValueType = "null"
	TypeObject  ValueType = "object"
	TypeArray   ValueType = "array"
)

// TreeNode mirrors one key of a structured document.
type TreeNode struct {
	ID        string // Stable path id, e.g. "n0.2.1"
	Key       string // Object key, or index for array elements
	Type      ValueType
	Literal   string      // JSON literal for scalar values
	Children  []*TreeNode // Object members or array elements, in source order
	Collapsed bool        // UI state; composites start collapsed
}

// Composite reports whether the node holds an object or array.
func (n *TreeNode) Composite() bool {
	return n.Type == TypeObject || n.Type == TypeArray
}

// Walk visits n and all descendants depth-first in source order.
func (n *TreeNode) Walk(fn func(*TreeNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
