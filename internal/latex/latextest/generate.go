// Package latextest generates well-formed random documents for property
// tests of the parser and the splitter.
package latextest

import (
	"math/rand"
	"strings"
)

var (
	words        = []string{"The", "model", "is", "trained", "on", "data", "we", "show", "that", "results", "improve", "x", "loss"}
	commands     = []string{`\textbf`, `\emph`, `\cite`, `\ref`, `\label`, `\item`, `\frac`, `\alpha`, `\\`, `\%`, `\&`}
	environments = []string{"itemize", "enumerate", "equation", "figure", "theorem", "align"}
	punctuation  = []string{".", ",", ";", "!", "?", ":"}
)

// Document returns a balanced document built from r, containing text,
// comments, commands, groups, every math form and environments.
func Document(r *rand.Rand) string {
	var sb strings.Builder
	n := r.Intn(12) + 1
	for i := 0; i < n; i++ {
		piece(&sb, r, 0, false)
		sb.WriteString(separator(r))
	}
	return sb.String()
}

func separator(r *rand.Rand) string {
	switch r.Intn(6) {
	case 0:
		return "\n\n"
	case 1:
		return "\n"
	default:
		return " "
	}
}

func sentence(r *rand.Rand) string {
	n := r.Intn(8) + 1
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[r.Intn(len(words))]
	}
	return strings.Join(parts, " ") + punctuation[r.Intn(len(punctuation))]
}

// piece writes one node. Nodes are always followed by a separator so that
// command names never run into text and dollar delimiters never touch.
func piece(sb *strings.Builder, r *rand.Rand, depth int, inMath bool) {
	choice := r.Intn(10)
	if depth >= 4 {
		choice = r.Intn(3)
	}
	switch choice {
	case 0:
		sb.WriteString(sentence(r))
	case 1:
		sb.WriteString(commands[r.Intn(len(commands))])
	case 2:
		sb.WriteString("% " + words[r.Intn(len(words))] + "\n")
	case 3:
		sb.WriteString("{")
		body(sb, r, depth+1, inMath)
		sb.WriteString("}")
	case 4, 5:
		if inMath {
			sb.WriteString(sentence(r))
			return
		}
		open, close := "$", "$"
		if r.Intn(2) == 0 {
			open, close = `\(`, `\)`
		}
		sb.WriteString(open)
		body(sb, r, depth+1, true)
		sb.WriteString(close)
	case 6:
		if inMath {
			sb.WriteString(commands[r.Intn(len(commands))])
			return
		}
		open, close := "$$", "$$"
		if r.Intn(2) == 0 {
			open, close = `\[`, `\]`
		}
		sb.WriteString(open)
		body(sb, r, depth+1, true)
		sb.WriteString(close)
	default:
		name := environments[r.Intn(len(environments))]
		if r.Intn(4) == 0 {
			name += "*"
		}
		sb.WriteString(`\begin{` + name + "}\n")
		body(sb, r, depth+1, inMath)
		sb.WriteString("\n" + `\end{` + name + "}")
	}
}

func body(sb *strings.Builder, r *rand.Rand, depth int, inMath bool) {
	n := r.Intn(4)
	sb.WriteString(" ")
	for i := 0; i < n; i++ {
		sb.WriteString(" ")
		piece(sb, r, depth, inMath)
		sb.WriteString(" ")
	}
}
