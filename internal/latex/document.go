package latex

import "strings"

const (
	documentBegin = `\begin{document}`
	documentEnd   = `\end{document}`
)

// Envelope is a full document cut around its document environment.
// Preamble ends with `\begin{document}` and Postamble starts with
// `\end{document}`; Preamble+Body+Postamble is the input.
type Envelope struct {
	Preamble  string
	Body      string
	Postamble string
}

// BodyOffset is the byte offset of Body in the original document.
func (e Envelope) BodyOffset() int {
	return len(e.Preamble)
}

// String reassembles the document.
func (e Envelope) String() string {
	return e.Preamble + e.Body + e.Postamble
}

// WithBody returns a copy of e with the body replaced.
func (e Envelope) WithBody(body string) Envelope {
	e.Body = body
	return e
}

// SplitDocument cuts src at the first `\begin{document}` and the last
// `\end{document}` that follows it. A source without `\begin{document}` is
// all body. Markers on commented-out lines are skipped.
func SplitDocument(src string) Envelope {
	begin := findMarker(src, documentBegin, false)
	if begin < 0 {
		return Envelope{Body: src}
	}
	bodyStart := begin + len(documentBegin)
	env := Envelope{Preamble: src[:bodyStart], Body: src[bodyStart:]}
	if end := findMarker(env.Body, documentEnd, true); end >= 0 {
		env.Postamble = env.Body[end:]
		env.Body = env.Body[:end]
	}
	return env
}

// findMarker returns the offset of the first (or last) occurrence of marker
// that is not on a commented-out line.
func findMarker(s, marker string, last bool) int {
	idx := -1
	from := 0
	for {
		i := strings.Index(s[from:], marker)
		if i < 0 {
			return idx
		}
		at := from + i
		if !commentedOut(s, at) {
			idx = at
			if !last {
				return idx
			}
		}
		from = at + len(marker)
	}
}

// commentedOut reports whether an unescaped % precedes offset on its line.
func commentedOut(s string, offset int) bool {
	lineStart := strings.LastIndexByte(s[:offset], '\n') + 1
	line := s[lineStart:offset]
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '%':
			return true
		}
	}
	return false
}
