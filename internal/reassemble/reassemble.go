// Package reassemble recombines translated fragments into one document.
//
// Results are written into a slot per fragment ordinal, never appended, so
// completion order does not matter. Each slot is written at most once: by
// the translation that completes it, by a failure, or by Settle when the
// run ends or is cancelled.
package reassemble

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"ltxtrans/internal/splitter"
)

// State of a slot.
type State uint8

const (
	Pending State = iota
	Translated
	Verbatim
	Failed
)

// Reason says why a fragment fell back to its original text.
type Reason string

const (
	ReasonTranslation Reason = "translation"
	ReasonTooLong     Reason = "chunk-too-long"
	ReasonCancelled   Reason = "cancelled"
)

// ErrCancelled is recorded for fragments still pending when a run is settled.
var ErrCancelled = errors.New("translation cancelled before completion")

// Fallback records a fragment whose original text was kept.
type Fallback struct {
	Ordinal int    `json:"ordinal"`
	Line    int    `json:"line"`
	Reason  Reason `json:"reason"`
	Err     error  `json:"-"`
}

func (f Fallback) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("fragment %d: %s", f.Ordinal, f.Reason)
	}
	return fmt.Sprintf("fragment %d: %s: %v", f.Ordinal, f.Reason, f.Err)
}

type slot struct {
	once   sync.Once
	state  State
	text   string
	reason Reason
	err    error
}

// Slots is the pre-sized result array of a run.
type Slots struct {
	frags []splitter.Fragment
	slots []slot
}

// NewSlots allocates one slot per fragment.
func NewSlots(frags []splitter.Fragment) *Slots {
	return &Slots{frags: frags, slots: make([]slot, len(frags))}
}

// Len returns the number of slots.
func (s *Slots) Len() int {
	return len(s.slots)
}

func (s *Slots) write(ordinal int, fn func(*slot)) bool {
	if ordinal < 0 || ordinal >= len(s.slots) {
		return false
	}
	written := false
	s.slots[ordinal].once.Do(func() {
		fn(&s.slots[ordinal])
		written = true
	})
	return written
}

// Complete stores the translation of a fragment. It reports false when the
// slot was already written.
func (s *Slots) Complete(ordinal int, text string) bool {
	return s.write(ordinal, func(sl *slot) {
		sl.state = Translated
		sl.text = text
	})
}

// Fail records a failed translation; the original text is kept.
func (s *Slots) Fail(ordinal int, err error) bool {
	return s.write(ordinal, func(sl *slot) {
		sl.state = Failed
		sl.text = s.frags[ordinal].Text
		sl.reason = ReasonTranslation
		sl.err = err
	})
}

// Settle writes every slot still pending. Ignored and marker fragments are
// copied verbatim, over-long manual fragments fall back with
// ReasonTooLong, and anything else falls back as cancelled.
func (s *Slots) Settle() {
	for i := range s.slots {
		f := &s.frags[i]
		s.write(i, func(sl *slot) {
			sl.text = f.Text
			switch {
			case f.Kind != splitter.Translatable:
				sl.state = Verbatim
			case f.Err != nil:
				sl.state = Failed
				sl.reason = ReasonTooLong
				sl.err = f.Err
			default:
				sl.state = Failed
				sl.reason = ReasonCancelled
				sl.err = ErrCancelled
			}
		})
	}
}

// Output is the reassembled document.
type Output struct {
	Text       string
	Translated int
	Fallbacks  []Fallback
}

// Assemble settles the slots and concatenates them in ordinal order. Ignore
// regions are taken from regions, verbatim.
func (s *Slots) Assemble(regions []splitter.IgnoreRegion) (*Output, error) {
	s.Settle()

	out := &Output{}
	var sb strings.Builder
	for i := range s.slots {
		f := &s.frags[i]
		sl := &s.slots[i]
		if f.Kind == splitter.Ignored {
			if f.Region < 0 || f.Region >= len(regions) {
				return nil, fmt.Errorf("fragment %d refers to missing ignore region %d", i, f.Region)
			}
			sb.WriteString(regions[f.Region].Text)
			continue
		}
		sb.WriteString(sl.text)
		switch sl.state {
		case Translated:
			out.Translated++
		case Failed:
			out.Fallbacks = append(out.Fallbacks, Fallback{Ordinal: i, Line: f.Line, Reason: sl.reason, Err: sl.err})
		case Pending, Verbatim:
		}
	}
	out.Text = sb.String()
	return out, nil
}

// Assemble is a one-shot form for callers holding the results in a map
// keyed by ordinal: a nil error means success.
func Assemble(res *splitter.Result, texts map[int]string, errs map[int]error) (*Output, error) {
	slots := NewSlots(res.Fragments)
	for ord, err := range errs {
		slots.Fail(ord, err)
	}
	for ord, text := range texts {
		slots.Complete(ord, text)
	}
	return slots.Assemble(res.Ignored)
}
