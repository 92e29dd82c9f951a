package grammar

import "strings"

// textClass is the free-text terminal: anything but the characters that
// open or close LaTeX syntax.
const textClass = `[^\\{}$%]+`

type notation struct {
	header string
	sep    string
}

var (
	w3c  = notation{header: "# W3C EBNF grammar of the LaTeX fragment", sep: "_"}
	gbnf = notation{header: "# GBNF grammar of the LaTeX fragment", sep: "-"}
)

type rule struct {
	name string
	expr string
}

// EBNF renders the grammar in W3C EBNF notation.
func (g *Grammar) EBNF() string {
	return g.render(w3c)
}

// GBNF renders the grammar in the GBNF dialect accepted by llama.cpp
// style servers (rule names use dashes).
func (g *Grammar) GBNF() string {
	return g.render(gbnf)
}

func (g *Grammar) render(n notation) string {
	var sb strings.Builder
	sb.WriteString(n.header)
	sb.WriteByte('\n')
	for _, r := range g.rules(n) {
		sb.WriteString(r.name)
		sb.WriteString(" ::= ")
		sb.WriteString(r.expr)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (g *Grammar) rules(n notation) []rule {
	var constructs []string
	if g.Groups {
		constructs = append(constructs, "group")
	}
	if len(g.MathForms) > 0 {
		constructs = append(constructs, "math")
	}
	if len(g.Environments) > 0 {
		constructs = append(constructs, "environment")
	}

	var atoms []string
	if len(g.Commands) > 0 {
		atoms = append(atoms, "command")
	}
	if len(g.References) > 0 {
		atoms = append(atoms, "reference")
	}
	atom := strings.Join(append(atoms, "text"), " | ")

	rules := []rule{{"root", "stuff"}}
	if len(constructs) > 0 {
		rules = append(rules,
			rule{"stuff", "(atom | construct)*"},
			rule{"atom", atom},
			rule{"construct", strings.Join(constructs, " | ")},
		)
	} else {
		rules = append(rules,
			rule{"stuff", "atom*"},
			rule{"atom", atom},
		)
	}
	rules = append(rules, rule{"text", textClass})

	if g.Groups {
		rules = append(rules, rule{"group", `"{" stuff "}"`})
	}
	if len(g.MathForms) > 0 {
		alts := make([]string, 0, len(g.MathForms))
		for _, f := range g.MathForms {
			alts = append(alts, "("+quote(f.Open())+" stuff "+quote(f.Close())+")")
		}
		rules = append(rules, rule{"math", strings.Join(alts, " | ")})
	}
	if len(g.Commands) > 0 {
		alts := make([]string, 0, len(g.Commands))
		for _, c := range g.Commands {
			alts = append(alts, quote(`\`+c))
		}
		rules = append(rules, rule{"command", strings.Join(alts, " | ")})
	}
	if len(g.References) > 0 {
		alts := make([]string, 0, len(g.References))
		for _, r := range g.References {
			alts = append(alts, quote(r))
		}
		rules = append(rules, rule{"reference", strings.Join(alts, " | ")})
	}
	if len(g.Environments) > 0 {
		names := make([]string, 0, len(g.Environments))
		var envRules []rule
		for _, e := range g.Environments {
			name := envRuleName(e, n.sep)
			names = append(names, name)
			begin, end := `\begin{`+e.String()+`}`, `\end{`+e.String()+`}`
			envRules = append(envRules, rule{name, quote(begin) + " stuff " + quote(end)})
		}
		rules = append(rules, rule{"environment", strings.Join(names, " | ")})
		rules = append(rules, envRules...)
	}
	return rules
}

func envRuleName(e EnvironmentName, sep string) string {
	name := "env" + sep + e.Name
	if e.Star {
		name += sep + "star"
	}
	return name
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)

// quote renders s as a double-quoted literal with backslash escapes.
func quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}

// MathFormNames returns the opening delimiters of the grammar's math forms.
func (g *Grammar) MathFormNames() []string {
	out := make([]string, 0, len(g.MathForms))
	for _, f := range g.MathForms {
		out = append(out, f.Open())
	}
	return out
}
