// Package splitter cuts a document body into fragments that can be
// translated independently. Cuts never fall inside a group, a math
// construct or an environment.
package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ltxtrans/internal/latex"
	"ltxtrans/internal/types"
)

// Kind says what a fragment is and whether it goes to translation.
type Kind uint8

const (
	// Translatable fragments are sent to the translation service.
	Translatable Kind = iota
	// Ignored fragments are excised ignore regions, copied verbatim.
	Ignored
	// Marker fragments are split-marker lines, copied verbatim.
	Marker
)

func (k Kind) String() string {
	switch k {
	case Translatable:
		return "translatable"
	case Ignored:
		return "ignored"
	case Marker:
		return "marker"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Fragment is a contiguous slice of the input.
type Fragment struct {
	Ordinal int    `json:"ordinal"`
	Kind    Kind   `json:"kind"`
	Text    string `json:"text"`
	Offset  int    `json:"offset"`
	Line    int    `json:"line"`
	Length  int    `json:"length"`
	// OverLength is set when the fragment exceeds the maximum length
	// because a single top-level node could not be cut.
	OverLength bool `json:"over_length,omitempty"`
	// Err is a *ChunkTooLongError for manual-mode fragments that exceed
	// the maximum length; such fragments are not translated.
	Err error `json:"-"`
	// Region indexes Result.Ignored for ignored fragments.
	Region int `json:"region,omitempty"`
}

// Sendable reports whether the fragment goes to the translation service.
func (f *Fragment) Sendable() bool {
	return f.Kind == Translatable && f.Err == nil
}

// Result is the output of Split. Concatenating the text of all fragments
// in ordinal order reproduces the input.
type Result struct {
	Fragments []Fragment
	Ignored   []IgnoreRegion
	Mode      types.SplitMode
	MaxLength int
}

// Translatable returns the fragments that will be sent for translation.
func (r *Result) Translatable() []Fragment {
	var out []Fragment
	for _, f := range r.Fragments {
		if f.Sendable() {
			out = append(out, f)
		}
	}
	return out
}

// Text reassembles the original input.
func (r *Result) Text() string {
	var sb strings.Builder
	for _, f := range r.Fragments {
		sb.WriteString(f.Text)
	}
	return sb.String()
}

// DefaultAnchors are the selectors that count as paragraph-grade cut
// points in automatic mode.
var DefaultAnchors = []latex.Selector{
	{Kind: latex.SelectCommand, Value: "chapter"},
	{Kind: latex.SelectCommand, Value: "section"},
	{Kind: latex.SelectCommand, Value: "subsection"},
	{Kind: latex.SelectCommand, Value: "subsubsection"},
	{Kind: latex.SelectCommand, Value: "paragraph"},
}

// Options control splitting.
type Options struct {
	// MaxLength is the maximum fragment length in characters.
	MaxLength int
	Mode      types.SplitMode
	Markers   types.Markers
	// Anchors are extra preferred cut points; nil means DefaultAnchors.
	Anchors []latex.Selector
}

// OptionsFromConfig builds Options from the run configuration.
func OptionsFromConfig(cfg *types.Config) Options {
	return Options{
		MaxLength: cfg.MaxFragmentLength,
		Mode:      cfg.SplitMode,
		Markers:   cfg.Markers(),
	}
}

// Split excises ignore regions, then cuts the remaining text according to
// opts.Mode. Marker imbalance is the only error.
func Split(doc string, opts Options) (*Result, error) {
	if opts.MaxLength < 1 {
		return nil, fmt.Errorf("maximum fragment length must be at least 1, got %d", opts.MaxLength)
	}
	if opts.Anchors == nil {
		opts.Anchors = DefaultAnchors
	}
	segs, regions, err := excise(doc, opts.Markers)
	if err != nil {
		return nil, err
	}

	res := &Result{Ignored: regions, Mode: opts.Mode, MaxLength: opts.MaxLength}
	region := 0
	for _, seg := range segs {
		switch seg.kind {
		case segIgnored:
			res.add(Fragment{Kind: Ignored, Text: seg.text, Offset: seg.offset, Line: seg.line, Region: region})
			region++
		case segMarker:
			res.add(Fragment{Kind: Marker, Text: seg.text, Offset: seg.offset, Line: seg.line})
		case segText:
			if opts.Mode == types.SplitManual {
				res.addManual(seg, opts.MaxLength)
			} else {
				res.addAutomatic(seg, opts)
			}
		}
	}
	return res, nil
}

func (r *Result) add(f Fragment) {
	f.Ordinal = len(r.Fragments)
	f.Length = utf8.RuneCountInString(f.Text)
	r.Fragments = append(r.Fragments, f)
}

func (r *Result) addManual(seg segment, max int) {
	f := Fragment{Kind: Translatable, Text: seg.text, Offset: seg.offset, Line: seg.line}
	r.add(f)
	last := &r.Fragments[len(r.Fragments)-1]
	if last.Length > max {
		last.Err = &ChunkTooLongError{Ordinal: last.Ordinal, Line: last.Line, Length: last.Length, Max: max}
	}
}

func (r *Result) addAutomatic(seg segment, opts Options) {
	// Verbatim blocks are parsed as plain text so that they become opaque
	// units instead of a syntax error.
	masked, _ := latex.MaskVerbatim(seg.text)
	tree, err := latex.Parse(masked)
	if err != nil {
		// Without a tree no cut is known to be safe.
		r.add(Fragment{Kind: Translatable, Text: seg.text, Offset: seg.offset, Line: seg.line})
		last := &r.Fragments[len(r.Fragments)-1]
		last.OverLength = last.Length > opts.MaxLength
		return
	}

	us := units(tree, seg.text, opts.Anchors)
	for _, c := range cut(us, opts.MaxLength) {
		text := seg.text[us[c.from].start:us[c.to-1].end]
		start := us[c.from].start
		r.add(Fragment{
			Kind:       Translatable,
			Text:       text,
			Offset:     seg.offset + start,
			Line:       seg.line + strings.Count(seg.text[:start], "\n"),
			OverLength: c.over,
		})
	}
}
