package splitter

import (
	"strings"
	"unicode/utf8"

	"ltxtrans/internal/latex"
)

// Boundary scores. A cut before a unit is scored from the text that
// precedes it; higher is preferred.
const (
	scoreNone      = 0
	scoreLine      = 1
	scoreSentence  = 2
	scoreParagraph = 3
)

// unit is an uncuttable stretch of the source: a top-level construct, a
// command together with the groups directly after it, or a
// whitespace-terminated piece of a top-level text node.
type unit struct {
	start int
	end   int
	runes int
	// score of the boundary before the unit.
	score int
}

// units lists the top-level units of tree. src is the text the tree was
// parsed from before masking; it has the same byte offsets and is what
// lengths and boundary scores are taken from.
func units(tree *latex.Tree, src string, anchors []latex.Selector) []unit {
	anchored := map[latex.NodeID]bool{}
	for _, a := range latex.Anchors(tree, anchors) {
		anchored[a.ID] = true
	}

	roots := tree.Roots
	var us []unit
	for i := 0; i < len(roots); i++ {
		n := tree.Node(roots[i])
		if n.Kind == latex.Text {
			us = appendTextPieces(us, tree.Source, n.Start, n.End)
			continue
		}
		u := unit{start: n.Start, end: n.End}
		if anchored[roots[i]] {
			u.score = scoreParagraph
		}
		if n.Kind == latex.Command {
			for i+1 < len(roots) {
				arg := tree.Node(roots[i+1])
				if arg.Kind != latex.Group || arg.Start != u.end {
					break
				}
				u.end = arg.End
				i++
			}
		}
		us = append(us, u)
	}

	for i := range us {
		us[i].runes = utf8.RuneCountInString(src[us[i].start:us[i].end])
		if i > 0 && us[i].score == scoreNone {
			us[i].score = boundaryScore(src[:us[i].start])
		}
	}
	return us
}

// appendTextPieces cuts text after every run of whitespace.
func appendTextPieces(us []unit, src string, start, end int) []unit {
	from := start
	for p := start + 1; p < end; p++ {
		if isSpace(src[p-1]) && !isSpace(src[p]) {
			us = append(us, unit{start: from, end: p})
			from = p
		}
	}
	return append(us, unit{start: from, end: end})
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// boundaryScore rates a cut right after tail.
func boundaryScore(tail string) int {
	body := strings.TrimRight(tail, " \t\r")
	if strings.HasSuffix(body, "\n") {
		prev := strings.TrimRight(body[:len(body)-1], " \t\r")
		if strings.HasSuffix(prev, "\n") {
			return scoreParagraph
		}
		if endsSentence(prev) {
			return scoreSentence
		}
		return scoreLine
	}
	if len(body) < len(tail) && endsSentence(body) {
		return scoreSentence
	}
	return scoreNone
}

func endsSentence(s string) bool {
	s = strings.TrimRight(s, `"')]`)
	r, _ := utf8.DecodeLastRuneInString(s)
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// span is a run of units [from, to) forming one fragment.
type span struct {
	from int
	to   int
	over bool
}

// cut groups units greedily into spans of at most max characters. When a
// span has to be closed early, the cut goes to the highest-scoring
// boundary that keeps the span at least half full, the latest one on ties.
// A unit longer than max becomes a span of its own marked over.
func cut(us []unit, max int) []span {
	n := len(us)
	prefix := make([]int, n+1)
	for i, u := range us {
		prefix[i+1] = prefix[i] + u.runes
	}
	half := (max + 1) / 2

	var out []span
	from := 0
	for from < n {
		end := from
		for end < n && prefix[end+1]-prefix[from] <= max {
			end++
		}
		if end == n {
			out = append(out, span{from: from, to: n})
			break
		}
		if end == from {
			out = append(out, span{from: from, to: from + 1, over: true})
			from++
			continue
		}
		best, bestScore := end, us[end].score
		for k := end - 1; k > from; k-- {
			if prefix[k]-prefix[from] < half {
				break
			}
			if us[k].score > bestScore {
				best, bestScore = k, us[k].score
			}
		}
		out = append(out, span{from: from, to: best})
		from = best
	}
	return out
}
