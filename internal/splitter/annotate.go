package splitter

import "strings"

// Annotate renders the split as text with a split-marker line between
// consecutive translatable fragments, for review before a manual-mode run.
// Existing marker lines and ignore regions are kept as they are.
//
// A marker is only recognised on a line of its own, so when a cut falls
// inside a line a newline is inserted before the marker. That newline is
// the one change to the text besides the marker lines, and a manual-mode
// split of the result carries it at the end of the preceding fragment.
func Annotate(res *Result, marker string) string {
	var sb strings.Builder
	for i, f := range res.Fragments {
		if i > 0 && f.Kind == Translatable && res.Fragments[i-1].Kind == Translatable {
			if !strings.HasSuffix(res.Fragments[i-1].Text, "\n") {
				sb.WriteByte('\n')
			}
			sb.WriteString(marker)
			sb.WriteByte('\n')
		}
		sb.WriteString(f.Text)
	}
	return sb.String()
}
