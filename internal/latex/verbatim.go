package latex

import (
	"regexp"
	"strings"
)

var verbatimBegin = regexp.MustCompile(`\\begin\{([A-Za-z]+)(\*?)\}`)

// Span is a byte range [Start, End) of a source.
type Span struct {
	Start int
	End   int
}

// VerbatimSpans returns the verbatim-like environments of src, begin and end
// markers included, in source order. A begin marker that is commented out or
// escaped is ignored. An environment without its end marker runs to the end
// of src.
func VerbatimSpans(src string) []Span {
	var spans []Span
	from := 0
	for from < len(src) {
		m := verbatimBegin.FindStringSubmatchIndex(src[from:])
		if m == nil {
			break
		}
		start, bodyStart := from+m[0], from+m[1]
		name, star := src[from+m[2]:from+m[3]], m[5] > m[4]
		if !IsVerbatim(name) || escaped(src, start) || commentedOut(src, start) {
			from = bodyStart
			continue
		}
		end := len(src)
		closing := endMarker(name, star)
		if i := strings.Index(src[bodyStart:], closing); i >= 0 {
			end = bodyStart + i + len(closing)
		}
		spans = append(spans, Span{Start: start, End: end})
		from = end
	}
	return spans
}

// MaskVerbatim returns src with every verbatim span overwritten by 'x', so
// the result parses and has the same byte offsets. The spans are returned
// along with it.
func MaskVerbatim(src string) (string, []Span) {
	spans := VerbatimSpans(src)
	if len(spans) == 0 {
		return src, nil
	}
	b := []byte(src)
	for _, sp := range spans {
		for i := sp.Start; i < sp.End; i++ {
			b[i] = 'x'
		}
	}
	return string(b), spans
}

// escaped reports whether the backslash at offset is itself escaped.
func escaped(s string, offset int) bool {
	n := 0
	for i := offset - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}
