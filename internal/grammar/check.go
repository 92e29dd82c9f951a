package grammar

import (
	"fmt"
	"strings"

	"ltxtrans/internal/latex"
)

// Violation is a construct in generated text that the grammar does not admit.
type Violation struct {
	What string         `json:"what"`
	Pos  latex.Position `json:"pos"`
}

// ViolationError lists everything in a translation that falls outside the
// fragment's grammar. Syntax is set when the translation does not parse.
type ViolationError struct {
	Syntax     error
	Violations []Violation
}

func (e *ViolationError) Error() string {
	if e.Syntax != nil {
		return "translation does not parse: " + e.Syntax.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s at %s", v.What, v.Pos))
	}
	return "translation outside fragment grammar: " + strings.Join(parts, ", ")
}

func (e *ViolationError) Unwrap() error {
	return e.Syntax
}

// Check verifies that output only uses the commands, reference keys,
// environments and delimiters admitted by g. Comments are ignored.
func (g *Grammar) Check(output string) error {
	tree, err := latex.Parse(output)
	if err != nil {
		return &ViolationError{Syntax: err}
	}

	forms := map[latex.MathForm]bool{}
	for _, f := range g.MathForms {
		forms[f] = true
	}

	calls := referenceCalls(tree)
	args := argumentGroups(calls)

	var vs []Violation
	tree.Walk(func(id latex.NodeID, _ int) bool {
		n := tree.Node(id)
		switch n.Kind {
		case latex.Text, latex.Comment:
		case latex.Command:
			if c, ok := calls[id]; ok {
				if !g.HasReference(c.literal) {
					vs = append(vs, Violation{What: "reference " + c.literal, Pos: n.Pos})
				}
			} else if !g.HasCommand(n.Name) {
				vs = append(vs, Violation{What: `command \` + n.Name, Pos: n.Pos})
			}
		case latex.Group:
			if args[id] {
				return false
			}
			if !g.Groups {
				vs = append(vs, Violation{What: "group", Pos: n.Pos})
			}
		case latex.DisplayMath, latex.InlineMath:
			if !forms[n.Form] {
				vs = append(vs, Violation{What: "math " + n.Form.Open(), Pos: n.Pos})
			}
		case latex.Environment:
			if !g.HasEnvironment(n.Name, n.Star) {
				vs = append(vs, Violation{What: "environment " + EnvironmentName{n.Name, n.Star}.String(), Pos: n.Pos})
			}
		}
		return true
	})
	if len(vs) > 0 {
		return &ViolationError{Violations: vs}
	}
	return nil
}
