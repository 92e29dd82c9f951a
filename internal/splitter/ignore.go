package splitter

import (
	"strings"

	"ltxtrans/internal/types"
)

type segmentKind uint8

const (
	segText segmentKind = iota
	segIgnored
	segMarker
)

// segment is a run of lines of the input. Marker and ignored segments
// always cover whole lines.
type segment struct {
	kind   segmentKind
	text   string
	offset int
	line   int
}

// IgnoreRegion is an excised span, marker lines included, reinserted
// verbatim at Start in the output.
type IgnoreRegion struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Line  int    `json:"line"`
	Text  string `json:"text"`
}

// isMarkerLine reports whether line holds marker and nothing but trailing
// words: `%trsltx-split` and `  %trsltx-split keep` match, while
// `%trsltx-splitter` and `text %trsltx-split` do not.
func isMarkerLine(line, marker string) bool {
	if marker == "" {
		return false
	}
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, marker) {
		return false
	}
	rest := s[len(marker):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// excise cuts doc into text, ignored and split-marker segments.
func excise(doc string, markers types.Markers) ([]segment, []IgnoreRegion, error) {
	var (
		segs    []segment
		regions []IgnoreRegion
		cur     = segment{kind: segText, line: 1}
		ignore  *segment
	)
	// flush closes the pending text segment at offset.
	flush := func(offset int) {
		if offset > cur.offset {
			cur.text = doc[cur.offset:offset]
			segs = append(segs, cur)
		}
	}

	offset, line := 0, 1
	for offset < len(doc) {
		end := strings.IndexByte(doc[offset:], '\n')
		if end < 0 {
			end = len(doc)
		} else {
			end += offset + 1
		}
		text := doc[offset:end]

		switch {
		case isMarkerLine(text, markers.IgnoreBegin):
			if ignore != nil {
				return nil, nil, &MarkerImbalanceError{Marker: markers.IgnoreBegin, Line: line, Reason: "ignore-begin inside an ignore region"}
			}
			flush(offset)
			ignore = &segment{kind: segIgnored, offset: offset, line: line}
		case isMarkerLine(text, markers.IgnoreEnd):
			if ignore == nil {
				return nil, nil, &MarkerImbalanceError{Marker: markers.IgnoreEnd, Line: line, Reason: "ignore-end without ignore-begin"}
			}
			ignore.text = doc[ignore.offset:end]
			segs = append(segs, *ignore)
			regions = append(regions, IgnoreRegion{Start: ignore.offset, End: end, Line: ignore.line, Text: ignore.text})
			ignore = nil
			cur = segment{kind: segText, offset: end, line: line + 1}
		case isMarkerLine(text, markers.Split):
			if ignore != nil {
				return nil, nil, &MarkerImbalanceError{Marker: markers.Split, Line: line, Reason: "split marker inside an ignore region"}
			}
			flush(offset)
			segs = append(segs, segment{kind: segMarker, text: text, offset: offset, line: line})
			cur = segment{kind: segText, offset: end, line: line + 1}
		}
		offset = end
		line++
	}
	if ignore != nil {
		return nil, nil, &MarkerImbalanceError{Marker: markers.IgnoreBegin, Line: ignore.line, Reason: "ignore region is never closed"}
	}
	flush(len(doc))
	return segs, regions, nil
}
