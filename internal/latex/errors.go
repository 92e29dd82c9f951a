package latex

import "fmt"

// SyntaxError reports a structural failure. Other, when set, points at the
// opening delimiter the failure relates to (for example the begin-marker of
// a mismatched environment).
type SyntaxError struct {
	Pos   Position
	Msg   string
	Other *Position
}

func (e *SyntaxError) Error() string {
	if e.Other != nil {
		return fmt.Sprintf("%s: %s (opened at %s)", e.Pos, e.Msg, *e.Other)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func syntaxErrorf(pos Position, other *Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...), Other: other}
}
