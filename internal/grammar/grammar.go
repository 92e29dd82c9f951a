// Package grammar derives a constrained generation grammar from a parsed
// fragment. The grammar admits free text but only the commands,
// environments, groups and math delimiters seen in the fragment.
package grammar

import (
	"sort"

	"ltxtrans/internal/latex"
	"ltxtrans/internal/types"
)

// EnvironmentName is an environment as it appears in a begin-marker.
type EnvironmentName struct {
	Name string `json:"name"`
	Star bool   `json:"star"`
}

func (e EnvironmentName) String() string {
	if e.Star {
		return e.Name + "*"
	}
	return e.Name
}

// Grammar is the vocabulary of one fragment.
type Grammar struct {
	// Commands are the distinct command names, without backslash, sorted.
	// A reference command only appears here when it was used without a
	// braced key.
	Commands []string `json:"commands"`
	// References are the distinct reference calls with their keys, such
	// as `\ref{eq:a}`, sorted. Only these keys may appear in a translation.
	References []string `json:"references"`
	// Environments are the distinct (name, star) pairs, sorted.
	Environments []EnvironmentName `json:"environments"`
	// Groups is set when the fragment contains a braced group.
	Groups bool `json:"groups"`
	// MathForms lists the math delimiter forms used, in a fixed order.
	MathForms []latex.MathForm `json:"math_forms"`
}

// Generate collects the vocabulary of tree at every nesting depth.
// Comments are skipped: they are never part of the translated text.
func Generate(tree *latex.Tree) *Grammar {
	calls := referenceCalls(tree)
	args := argumentGroups(calls)
	commands := map[string]bool{}
	refs := map[string]bool{}
	envs := map[EnvironmentName]bool{}
	forms := map[latex.MathForm]bool{}
	g := &Grammar{}

	tree.Walk(func(id latex.NodeID, _ int) bool {
		n := tree.Node(id)
		switch n.Kind {
		case latex.Text, latex.Comment:
		case latex.Command:
			if c, ok := calls[id]; ok {
				refs[c.literal] = true
			} else {
				commands[n.Name] = true
			}
		case latex.Group:
			if args[id] {
				return false
			}
			g.Groups = true
		case latex.DisplayMath, latex.InlineMath:
			forms[n.Form] = true
		case latex.Environment:
			envs[EnvironmentName{n.Name, n.Star}] = true
		}
		return true
	})

	for name := range commands {
		g.Commands = append(g.Commands, name)
	}
	sort.Strings(g.Commands)

	for r := range refs {
		g.References = append(g.References, r)
	}
	sort.Strings(g.References)

	for env := range envs {
		g.Environments = append(g.Environments, env)
	}
	sort.Slice(g.Environments, func(i, j int) bool {
		a, b := g.Environments[i], g.Environments[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return !a.Star && b.Star
	})

	for _, f := range []latex.MathForm{latex.FormDollar, latex.FormParen, latex.FormDoubleDollar, latex.FormBracket} {
		if forms[f] {
			g.MathForms = append(g.MathForms, f)
		}
	}
	return g
}

// FromFragment parses text and generates its grammar. When the fragment
// does not parse the grammar is nil and the syntax error is returned so the
// caller can record why the fragment goes out unconstrained.
func FromFragment(text string) (*Grammar, error) {
	tree, err := latex.Parse(text)
	if err != nil {
		return nil, err
	}
	return Generate(tree), nil
}

// HasCommand reports whether name is part of the command alternation.
func (g *Grammar) HasCommand(name string) bool {
	i := sort.SearchStrings(g.Commands, name)
	return i < len(g.Commands) && g.Commands[i] == name
}

// HasEnvironment reports whether the (name, star) pair is allowed.
func (g *Grammar) HasEnvironment(name string, star bool) bool {
	for _, e := range g.Environments {
		if e.Name == name && e.Star == star {
			return true
		}
	}
	return false
}

// Render formats the grammar in the requested notation.
func (g *Grammar) Render(format types.GrammarFormat) string {
	if format == types.GrammarGBNF {
		return g.GBNF()
	}
	return g.EBNF()
}
