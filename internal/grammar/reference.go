package grammar

import "ltxtrans/internal/latex"

// ReferenceCommands take a key that must survive translation unchanged.
var ReferenceCommands = map[string]bool{
	"label":   true,
	"ref":     true,
	"eqref":   true,
	"pageref": true,
	"autoref": true,
	"cref":    true,
	"Cref":    true,
	"cite":    true,
	"citep":   true,
	"citet":   true,
	"nocite":  true,
}

// referenceCall is a reference command with the braced key right after it.
type referenceCall struct {
	literal string // \ref{eq:a}
	arg     latex.NodeID
}

// referenceCalls finds, at every depth, each reference command directly
// followed by a group. The map is keyed by the command node.
func referenceCalls(tree *latex.Tree) map[latex.NodeID]referenceCall {
	calls := map[latex.NodeID]referenceCall{}
	scan := func(ids []latex.NodeID) {
		for i := 0; i+1 < len(ids); i++ {
			cmd, arg := tree.Node(ids[i]), tree.Node(ids[i+1])
			if cmd.Kind != latex.Command || !ReferenceCommands[cmd.Name] {
				continue
			}
			if arg.Kind != latex.Group || arg.Start != cmd.End {
				continue
			}
			calls[ids[i]] = referenceCall{literal: tree.Source[cmd.Start:arg.End], arg: ids[i+1]}
		}
	}
	scan(tree.Roots)
	for i := range tree.Nodes {
		scan(tree.Nodes[i].Children)
	}
	return calls
}

// argumentGroups returns the key groups of calls.
func argumentGroups(calls map[latex.NodeID]referenceCall) map[latex.NodeID]bool {
	args := make(map[latex.NodeID]bool, len(calls))
	for _, c := range calls {
		args[c.arg] = true
	}
	return args
}

// HasReference reports whether the literal call, e.g. `\cite{knuth84}`,
// is admitted.
func (g *Grammar) HasReference(call string) bool {
	for _, r := range g.References {
		if r == call {
			return true
		}
	}
	return false
}
