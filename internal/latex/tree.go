// Package latex parses the LaTeX subset used by the translator into a
// structural tree of atoms (text, comments, commands) and constructs
// (groups, math, environments).
//
// A Tree is an arena: nodes live in one slice and refer to their children
// by index. Every node records the byte span it was parsed from, so the
// concatenation of the root spans is the parsed source.
package latex

import "fmt"

// Kind is the closed set of node variants.
type Kind uint8

const (
	Text Kind = iota
	Comment
	Command
	Group
	DisplayMath
	InlineMath
	Environment
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "TEXT"
	case Comment:
		return "COMMENT"
	case Command:
		return "CNAME"
	case Group:
		return "GROUP"
	case DisplayMath:
		return "DMATH"
	case InlineMath:
		return "TMATH"
	case Environment:
		return "ENV"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsConstruct reports whether nodes of kind k have a body.
func (k Kind) IsConstruct() bool {
	switch k {
	case Group, DisplayMath, InlineMath, Environment:
		return true
	case Text, Comment, Command:
		return false
	}
	return false
}

// MathForm records which delimiter pair produced a math node.
type MathForm uint8

const (
	NoForm MathForm = iota
	FormDollar
	FormParen
	FormDoubleDollar
	FormBracket
)

// Open returns the opening delimiter of the form.
func (f MathForm) Open() string {
	switch f {
	case FormDollar:
		return "$"
	case FormParen:
		return `\(`
	case FormDoubleDollar:
		return "$$"
	case FormBracket:
		return `\[`
	}
	return ""
}

// Close returns the closing delimiter of the form.
func (f MathForm) Close() string {
	switch f {
	case FormDollar:
		return "$"
	case FormParen:
		return `\)`
	case FormDoubleDollar:
		return "$$"
	case FormBracket:
		return `\]`
	}
	return ""
}

func (f MathForm) String() string {
	if f == NoForm {
		return ""
	}
	return f.Open()
}

// Position locates a byte in the source. Line and Column are 1-based,
// Column counts runes.
type Position struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// NodeID indexes Tree.Nodes.
type NodeID int32

// Node is one element of the tree. Start and End delimit the node's raw
// text in Tree.Source, delimiters included.
type Node struct {
	Kind  Kind
	Start int
	End   int
	Pos   Position

	// Name is the command name (without backslash) or environment name.
	Name string
	// Star is set for starred environments.
	Star bool
	// Form is set for math nodes.
	Form MathForm

	Children []NodeID
}

// Tree is the parse result. It is never modified after Parse returns.
type Tree struct {
	Source string
	Nodes  []Node
	Roots  []NodeID
}

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Raw returns the source text of a node, delimiters included.
func (t *Tree) Raw(id NodeID) string {
	n := &t.Nodes[id]
	return t.Source[n.Start:n.End]
}

// Body returns the source text between a construct's delimiters. For atoms
// it is the same as Raw.
func (t *Tree) Body(id NodeID) string {
	n := &t.Nodes[id]
	return t.Source[n.Start+t.openLen(n) : n.End-t.closeLen(n)]
}

func (t *Tree) openLen(n *Node) int {
	switch n.Kind {
	case Group:
		return 1
	case DisplayMath, InlineMath:
		return len(n.Form.Open())
	case Environment:
		return len(beginMarker(n.Name, n.Star))
	case Text, Comment, Command:
		return 0
	}
	return 0
}

func (t *Tree) closeLen(n *Node) int {
	switch n.Kind {
	case Group:
		return 1
	case DisplayMath, InlineMath:
		return len(n.Form.Close())
	case Environment:
		return len(endMarker(n.Name, n.Star))
	case Text, Comment, Command:
		return 0
	}
	return 0
}

// Walk visits every node in document order. fn receives the nesting depth
// (0 for roots); returning false skips the node's children.
func (t *Tree) Walk(fn func(id NodeID, depth int) bool) {
	type item struct {
		id    NodeID
		depth int
	}
	stack := make([]item, 0, len(t.Roots))
	for i := len(t.Roots) - 1; i >= 0; i-- {
		stack = append(stack, item{t.Roots[i], 0})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(it.id, it.depth) {
			continue
		}
		kids := t.Nodes[it.id].Children
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, item{kids[i], it.depth + 1})
		}
	}
}

// Serialize concatenates the raw spans of the roots.
func (t *Tree) Serialize() string {
	var size int
	for _, id := range t.Roots {
		size += t.Nodes[id].End - t.Nodes[id].Start
	}
	buf := make([]byte, 0, size)
	for _, id := range t.Roots {
		buf = append(buf, t.Raw(id)...)
	}
	return string(buf)
}

func beginMarker(name string, star bool) string {
	if star {
		return `\begin{` + name + `*}`
	}
	return `\begin{` + name + `}`
}

func endMarker(name string, star bool) string {
	if star {
		return `\end{` + name + `*}`
	}
	return `\end{` + name + `}`
}
