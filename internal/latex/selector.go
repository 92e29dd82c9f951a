package latex

import (
	"fmt"
	"strings"
)

// SelectorKind is the node kind a selector matches.
type SelectorKind uint8

const (
	SelectCommand SelectorKind = iota
	SelectEnvironment
	SelectComment
)

// Selector picks top-level nodes to use as anchors.
type Selector struct {
	Kind  SelectorKind
	Value string
}

// ParseSelector accepts `\name` or `m:name` (command), `{env}` or `e:env`
// (environment) and `%tag` or `c:tag` (comment whose first word is tag).
func ParseSelector(s string) (Selector, error) {
	var sel Selector
	switch {
	case strings.HasPrefix(s, `\`):
		sel = Selector{SelectCommand, s[1:]}
	case strings.HasPrefix(s, "m:"):
		sel = Selector{SelectCommand, s[2:]}
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && len(s) >= 2:
		sel = Selector{SelectEnvironment, s[1 : len(s)-1]}
	case strings.HasPrefix(s, "e:"):
		sel = Selector{SelectEnvironment, s[2:]}
	case strings.HasPrefix(s, "%"):
		sel = Selector{SelectComment, s[1:]}
	case strings.HasPrefix(s, "c:"):
		sel = Selector{SelectComment, s[2:]}
	default:
		return Selector{}, fmt.Errorf("invalid selector %q", s)
	}
	if sel.Value == "" {
		return Selector{}, fmt.Errorf("invalid selector %q: empty name", s)
	}
	return sel, nil
}

// ParseSelectors parses every selector in ss.
func ParseSelectors(ss []string) ([]Selector, error) {
	out := make([]Selector, 0, len(ss))
	for _, s := range ss {
		sel, err := ParseSelector(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

func (s Selector) String() string {
	switch s.Kind {
	case SelectCommand:
		return `\` + s.Value
	case SelectEnvironment:
		return "{" + s.Value + "}"
	case SelectComment:
		return "%" + s.Value
	}
	return s.Value
}

// Match reports whether node id satisfies the selector.
func (s Selector) Match(t *Tree, id NodeID) bool {
	n := &t.Nodes[id]
	switch s.Kind {
	case SelectCommand:
		return n.Kind == Command && n.Name == s.Value
	case SelectEnvironment:
		return n.Kind == Environment && (n.Name == s.Value || n.Name+"*" == s.Value)
	case SelectComment:
		if n.Kind != Comment {
			return false
		}
		words := strings.Fields(t.Raw(id)[1:])
		return len(words) > 0 && words[0] == s.Value
	}
	return false
}

// Anchor is a top-level node selected as a cut point.
type Anchor struct {
	ID   NodeID
	Pos  Position
	Kind Kind
	Name string
}

// Anchors returns the top-level nodes of t that start a line and match at
// least one selector, in document order.
func Anchors(t *Tree, sels []Selector) []Anchor {
	var out []Anchor
	for _, id := range t.Roots {
		n := &t.Nodes[id]
		if n.Pos.Column != 1 {
			continue
		}
		for _, s := range sels {
			if s.Match(t, id) {
				out = append(out, Anchor{ID: id, Pos: n.Pos, Kind: n.Kind, Name: t.Label(id)})
				break
			}
		}
	}
	return out
}

// Interval is the stretch of source between two consecutive anchors.
type Interval struct {
	StartLine int
	EndLine   int
	Offset    int
	Length    int
}

// Intervals cuts the source of t at the given anchors. The first interval
// starts at offset 0 and the last one ends at the end of the source.
func Intervals(t *Tree, anchors []Anchor) []Interval {
	cuts := make([]Position, 0, len(anchors)+2)
	cuts = append(cuts, Position{Offset: 0, Line: 1, Column: 1})
	for _, a := range anchors {
		if a.Pos.Offset == 0 {
			continue
		}
		cuts = append(cuts, a.Pos)
	}
	endLine := strings.Count(t.Source, "\n") + 1
	if strings.HasSuffix(t.Source, "\n") {
		endLine--
	}
	cuts = append(cuts, Position{Offset: len(t.Source), Line: endLine + 1, Column: 1})

	out := make([]Interval, 0, len(cuts)-1)
	for i := 0; i+1 < len(cuts); i++ {
		from, to := cuts[i], cuts[i+1]
		out = append(out, Interval{
			StartLine: from.Line,
			EndLine:   to.Line - 1,
			Offset:    from.Offset,
			Length:    to.Offset - from.Offset,
		})
	}
	return out
}
