package latex

import (
	"errors"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Rules are tried in order and the first match wins, so longer delimiters
// come before their prefixes.
var latexLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Begin", Pattern: `\\begin\{[A-Za-z]+\*?\}`},
	{Name: "End", Pattern: `\\end\{[A-Za-z]+\*?\}`},
	{Name: "DisplayOpen", Pattern: `\\\[`},
	{Name: "DisplayClose", Pattern: `\\\]`},
	{Name: "InlineOpen", Pattern: `\\\(`},
	{Name: "InlineClose", Pattern: `\\\)`},
	{Name: "Word", Pattern: `\\[A-Za-z]+`},
	{Name: "Symbol", Pattern: `\\[\s\S]`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "DoubleDollar", Pattern: `\$\$`},
	{Name: "Dollar", Pattern: `\$`},
	{Name: "Comment", Pattern: `%[^\n]*\n?`},
	{Name: "Text", Pattern: `[^\\{}$%]+`},
})

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokBegin
	tokEnd
	tokDisplayOpen
	tokDisplayClose
	tokInlineOpen
	tokInlineClose
	tokWord
	tokSymbol
	tokLBrace
	tokRBrace
	tokDoubleDollar
	tokDollar
	tokComment
	tokText
)

var tokKinds = func() map[lexer.TokenType]tokKind {
	names := map[string]tokKind{
		"EOF":          tokEOF,
		"Begin":        tokBegin,
		"End":          tokEnd,
		"DisplayOpen":  tokDisplayOpen,
		"DisplayClose": tokDisplayClose,
		"InlineOpen":   tokInlineOpen,
		"InlineClose":  tokInlineClose,
		"Word":         tokWord,
		"Symbol":       tokSymbol,
		"LBrace":       tokLBrace,
		"RBrace":       tokRBrace,
		"DoubleDollar": tokDoubleDollar,
		"Dollar":       tokDollar,
		"Comment":      tokComment,
		"Text":         tokText,
	}
	out := make(map[lexer.TokenType]tokKind, len(names))
	for name, tt := range latexLexer.Symbols() {
		if k, ok := names[name]; ok {
			out[tt] = k
		}
	}
	return out
}()

type token struct {
	kind  tokKind
	value string
	pos   Position
}

func (t token) end() int {
	return t.pos.Offset + len(t.value)
}

// tokenize lexes the whole input. The returned slice always ends with an
// EOF token.
func tokenize(src string) ([]token, error) {
	lx, err := latexLexer.LexString("", src)
	if err != nil {
		return nil, err
	}
	toks := make([]token, 0, len(src)/8+1)
	for {
		t, err := lx.Next()
		if err != nil {
			var lerr *lexer.Error
			if errors.As(err, &lerr) {
				return nil, syntaxErrorf(fromLexerPos(lerr.Pos), nil, "%s", strings.TrimPrefix(lerr.Msg, "lexer: "))
			}
			return nil, err
		}
		kind := tokKinds[t.Type]
		toks = append(toks, token{kind: kind, value: t.Value, pos: fromLexerPos(t.Pos)})
		if t.EOF() {
			return toks, nil
		}
	}
}

func fromLexerPos(p lexer.Position) Position {
	return Position{Offset: p.Offset, Line: p.Line, Column: p.Column}
}

// markerName splits `\begin{name*}` or `\end{name*}` into name and star.
func markerName(value string) (string, bool) {
	open := strings.IndexByte(value, '{')
	name := value[open+1 : len(value)-1]
	if strings.HasSuffix(name, "*") {
		return name[:len(name)-1], true
	}
	return name, false
}
