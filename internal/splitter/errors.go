package splitter

import "fmt"

// MarkerImbalanceError is fatal for a run: the ignore markers do not pair
// up, or a split marker sits inside an ignore region.
type MarkerImbalanceError struct {
	Marker string
	Line   int
	Reason string
}

func (e *MarkerImbalanceError) Error() string {
	return fmt.Sprintf("line %d: %s (%s)", e.Line, e.Reason, e.Marker)
}

// ChunkTooLongError marks a manual-mode fragment that exceeds the maximum
// length. The fragment is left untranslated until the markers are moved.
type ChunkTooLongError struct {
	Ordinal int
	Line    int
	Length  int
	Max     int
}

func (e *ChunkTooLongError) Error() string {
	return fmt.Sprintf("fragment %d (line %d) is %d characters long, maximum is %d", e.Ordinal, e.Line, e.Length, e.Max)
}
