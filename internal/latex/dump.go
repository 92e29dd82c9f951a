package latex

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Label returns the short text shown for a node in dumps and anchors:
// the raw text of atoms, the name of environments and the opening
// delimiter of other constructs.
func (t *Tree) Label(id NodeID) string {
	n := &t.Nodes[id]
	switch n.Kind {
	case Text, Comment, Command:
		return t.Raw(id)
	case Group:
		return "{"
	case DisplayMath, InlineMath:
		return n.Form.Open()
	case Environment:
		if n.Star {
			return n.Name + "*"
		}
		return n.Name
	}
	return ""
}

// Abbreviate shortens s to its first and last 8 characters when it is
// longer than 16.
func Abbreviate(s string) string {
	r := []rune(s)
	if len(r) <= 16 {
		return s
	}
	return string(r[:8]) + "[...]" + string(r[len(r)-8:])
}

// Dump writes one line per node:
//
//	ooooo:llll-cc: <indent>KIND "text"
//
// with the byte offset, line and column of the node start.
func Dump(w io.Writer, t *Tree) error {
	bw := bufio.NewWriter(w)
	t.Walk(func(id NodeID, depth int) bool {
		n := &t.Nodes[id]
		fmt.Fprintf(bw, "%05d:%04d-%02d: %s%s: %q\n",
			n.Pos.Offset, n.Pos.Line, n.Pos.Column,
			strings.Repeat("    ", depth), n.Kind, Abbreviate(t.Label(id)))
		return true
	})
	return bw.Flush()
}
