package latex

// MaxDepth bounds construct nesting.
const MaxDepth = 256

var verbatimEnvironments = map[string]bool{
	"verbatim":     true,
	"Verbatim":     true,
	"lstlisting":   true,
	"minted":       true,
	"comment":      true,
	"semiverbatim": true,
}

// IsVerbatim reports whether name is a verbatim-like environment, whose body
// is not LaTeX and cannot be parsed.
func IsVerbatim(name string) bool {
	return verbatimEnvironments[name]
}

// frame is an open construct waiting for its closing delimiter.
type frame struct {
	kind Kind
	form MathForm
	name string
	star bool
	pos  Position
}

func (f *frame) describe() string {
	switch f.kind {
	case Group:
		return "group"
	case DisplayMath:
		return "display math " + f.form.Open()
	case InlineMath:
		return "inline math " + f.form.Open()
	case Environment:
		return beginMarker(f.name, f.star)
	case Text, Comment, Command:
	}
	return f.kind.String()
}

type parser struct {
	toks  []token
	i     int
	nodes []Node
	stack []frame
	// closedAt is the end offset of the delimiter that closed the
	// innermost construct.
	closedAt int
}

// Parse builds the tree of src. Unbalanced or mismatched delimiters and
// verbatim-like environments fail with a *SyntaxError.
func Parse(src string) (*Tree, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, nodes: make([]Node, 0, len(toks))}
	roots, err := p.sequence()
	if err != nil {
		return nil, err
	}
	return &Tree{Source: src, Nodes: p.nodes, Roots: roots}, nil
}

func (p *parser) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return &p.stack[len(p.stack)-1]
}

func (p *parser) leaf(kind Kind, tok token, name string) NodeID {
	id := NodeID(len(p.nodes))
	p.nodes = append(p.nodes, Node{
		Kind:  kind,
		Start: tok.pos.Offset,
		End:   tok.end(),
		Pos:   tok.pos,
		Name:  name,
	})
	p.i++
	return id
}

// sequence parses nodes until EOF or until the innermost open construct is
// closed, in which case the closing delimiter has been consumed.
func (p *parser) sequence() ([]NodeID, error) {
	var out []NodeID
	for {
		tok := p.toks[p.i]
		top := p.top()

		switch tok.kind {
		case tokEOF:
			if top != nil {
				open := top.pos
				return nil, syntaxErrorf(tok.pos, &open, "unterminated %s", top.describe())
			}
			return out, nil

		case tokText:
			out = append(out, p.leaf(Text, tok, ""))
		case tokComment:
			out = append(out, p.leaf(Comment, tok, ""))
		case tokWord, tokSymbol:
			out = append(out, p.leaf(Command, tok, tok.value[1:]))

		case tokLBrace:
			id, err := p.construct(frame{kind: Group, pos: tok.pos})
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		case tokRBrace:
			if top != nil && top.kind == Group {
				p.close(tok.end())
				return out, nil
			}
			return nil, p.unexpected(tok)

		case tokDoubleDollar:
			if top != nil && top.kind == DisplayMath && top.form == FormDoubleDollar {
				p.close(tok.end())
				return out, nil
			}
			if top != nil && top.kind == InlineMath && top.form == FormDollar {
				// `$a$$b$`: the first dollar closes, the second one is
				// left in the stream.
				rest := tok.pos
				rest.Offset++
				rest.Column++
				p.toks[p.i] = token{kind: tokDollar, value: "$", pos: rest}
				p.closedAt = rest.Offset
				return out, nil
			}
			id, err := p.construct(frame{kind: DisplayMath, form: FormDoubleDollar, pos: tok.pos})
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		case tokDollar:
			if top != nil && top.kind == InlineMath && top.form == FormDollar {
				p.close(tok.end())
				return out, nil
			}
			id, err := p.construct(frame{kind: InlineMath, form: FormDollar, pos: tok.pos})
			if err != nil {
				return nil, err
			}
			out = append(out, id)

		case tokDisplayOpen:
			id, err := p.construct(frame{kind: DisplayMath, form: FormBracket, pos: tok.pos})
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		case tokDisplayClose:
			if top != nil && top.kind == DisplayMath && top.form == FormBracket {
				p.close(tok.end())
				return out, nil
			}
			return nil, p.unexpected(tok)
		case tokInlineOpen:
			id, err := p.construct(frame{kind: InlineMath, form: FormParen, pos: tok.pos})
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		case tokInlineClose:
			if top != nil && top.kind == InlineMath && top.form == FormParen {
				p.close(tok.end())
				return out, nil
			}
			return nil, p.unexpected(tok)

		case tokBegin:
			name, star := markerName(tok.value)
			if IsVerbatim(name) {
				return nil, syntaxErrorf(tok.pos, nil, "unsupported verbatim environment %q", name)
			}
			id, err := p.construct(frame{kind: Environment, name: name, star: star, pos: tok.pos})
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		case tokEnd:
			if top == nil || top.kind != Environment {
				return nil, p.unexpected(tok)
			}
			name, star := markerName(tok.value)
			if name != top.name || star != top.star {
				open := top.pos
				return nil, syntaxErrorf(tok.pos, &open, "environment mismatch: %s closed by %s",
					beginMarker(top.name, top.star), tok.value)
			}
			p.close(tok.end())
			return out, nil
		}
	}
}

// construct parses the construct opened by the current token.
func (p *parser) construct(f frame) (NodeID, error) {
	open := p.toks[p.i]
	if len(p.stack) >= MaxDepth {
		return 0, syntaxErrorf(open.pos, nil, "nesting deeper than %d", MaxDepth)
	}
	id := NodeID(len(p.nodes))
	p.nodes = append(p.nodes, Node{
		Kind:  f.kind,
		Start: open.pos.Offset,
		Pos:   open.pos,
		Name:  f.name,
		Star:  f.star,
		Form:  f.form,
	})
	p.i++
	p.stack = append(p.stack, f)

	kids, err := p.sequence()
	if err != nil {
		return 0, err
	}
	p.stack = p.stack[:len(p.stack)-1]

	n := &p.nodes[id]
	n.Children = kids
	n.End = p.closedAt
	return id, nil
}

func (p *parser) close(end int) {
	p.closedAt = end
	p.i++
}

func (p *parser) unexpected(tok token) error {
	top := p.top()
	if top == nil {
		return syntaxErrorf(tok.pos, nil, "unexpected %s", tok.value)
	}
	open := top.pos
	return syntaxErrorf(tok.pos, &open, "unexpected %s inside %s", tok.value, top.describe())
}
