// Package report records the outcome of a translation run: which fragments
// were translated, which fell back to their original text and why, and
// which were sent without a grammar constraint.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/term"

	"ltxtrans/internal/types"
)

// FallbackRecord is a fragment whose original text was kept.
type FallbackRecord struct {
	Ordinal int    `json:"ordinal"`
	Line    int    `json:"line"`
	Reason  string `json:"reason"`
	Error   string `json:"error,omitempty"`
}

// FragmentNote is a fragment worth mentioning that did not fall back.
type FragmentNote struct {
	Ordinal int    `json:"ordinal"`
	Line    int    `json:"line"`
	Length  int    `json:"length,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Report 翻译运行报告
type Report struct {
	RunID      string          `json:"run_id"`
	Input      string          `json:"input"`
	Output     string          `json:"output"`
	InputBytes int64           `json:"input_bytes"`
	Source     string          `json:"source"`
	Target     string          `json:"target"`
	Mode       types.SplitMode `json:"mode"`
	Model      string          `json:"model,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	Duration   time.Duration   `json:"duration"`

	Fragments    int `json:"fragments"`
	Translatable int `json:"translatable"`
	Translated   int `json:"translated"`
	CacheHits    int `json:"cache_hits"`

	Fallbacks     []FallbackRecord `json:"fallbacks"`
	Unconstrained []FragmentNote   `json:"unconstrained"`
	OverLength    []FragmentNote   `json:"over_length"`

	mu sync.Mutex
}

// New starts a report with a fresh run ID.
func New(input, output string) *Report {
	return &Report{
		RunID:         uuid.NewString(),
		Input:         input,
		Output:        output,
		StartedAt:     time.Now(),
		Fallbacks:     []FallbackRecord{},
		Unconstrained: []FragmentNote{},
		OverLength:    []FragmentNote{},
	}
}

// AddFallback records a fragment that kept its original text.
func (r *Report) AddFallback(ordinal, line int, reason string, err error) {
	rec := FallbackRecord{Ordinal: ordinal, Line: line, Reason: reason}
	if err != nil {
		rec.Error = err.Error()
	}
	r.mu.Lock()
	r.Fallbacks = append(r.Fallbacks, rec)
	r.mu.Unlock()
}

// AddUnconstrained records a fragment sent without a grammar.
func (r *Report) AddUnconstrained(ordinal, line int, err error) {
	note := FragmentNote{Ordinal: ordinal, Line: line}
	if err != nil {
		note.Detail = err.Error()
	}
	r.mu.Lock()
	r.Unconstrained = append(r.Unconstrained, note)
	r.mu.Unlock()
}

// AddOverLength records a fragment longer than the configured maximum.
func (r *Report) AddOverLength(ordinal, line, length int) {
	r.mu.Lock()
	r.OverLength = append(r.OverLength, FragmentNote{Ordinal: ordinal, Line: line, Length: length})
	r.mu.Unlock()
}

// CacheHit counts a fragment answered from the translation cache.
func (r *Report) CacheHit() {
	r.mu.Lock()
	r.CacheHits++
	r.mu.Unlock()
}

// Finish stamps the duration and orders every list by ordinal.
func (r *Report) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Duration = time.Since(r.StartedAt)
	sort.Slice(r.Fallbacks, func(i, j int) bool { return r.Fallbacks[i].Ordinal < r.Fallbacks[j].Ordinal })
	sort.Slice(r.Unconstrained, func(i, j int) bool { return r.Unconstrained[i].Ordinal < r.Unconstrained[j].Ordinal })
	sort.Slice(r.OverLength, func(i, j int) bool { return r.OverLength[i].Ordinal < r.OverLength[j].Ordinal })
}

// Complete reports whether every translatable fragment was translated.
func (r *Report) Complete() bool {
	return len(r.Fallbacks) == 0
}

// Save writes the report as indented JSON.
func (r *Report) Save(path string) error {
	r.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Load reads a report saved by Save.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	r := &Report{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return r, nil
}

// PathFor returns the report path next to an output document.
func PathFor(output string) string {
	ext := filepath.Ext(output)
	return output[:len(output)-len(ext)] + ".report.json"
}

// ColorEnabled resolves a --color flag value ("always", "never", "auto").
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return f != nil && term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == ""
	}
}

type styles struct {
	heading *color.Color
	ok      *color.Color
	warn    *color.Color
	bad     *color.Color
	dim     *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		heading: color.New(color.Bold),
		ok:      color.New(color.FgHiGreen),
		warn:    color.New(color.FgYellow),
		bad:     color.New(color.Bold, color.FgHiRed),
		dim:     color.New(color.FgHiBlue),
	}
	if !enabled {
		s.heading.DisableColor()
		s.ok.DisableColor()
		s.warn.DisableColor()
		s.bad.DisableColor()
		s.dim.DisableColor()
	}
	return s
}

// Print writes a human-readable summary.
func (r *Report) Print(w io.Writer, colored bool) {
	s := newStyles(colored)

	s.heading.Fprintf(w, "Run %s\n", r.RunID)
	s.dim.Fprintf(w, "  %s (%s) -> %s\n", r.Input, humanize.Bytes(uint64(r.InputBytes)), r.Output)
	s.dim.Fprintf(w, "  %s -> %s, %s split, %s\n", r.Source, r.Target, r.Mode, r.Duration.Round(time.Millisecond))

	fmt.Fprintf(w, "  fragments: %s, translatable: %s, ", humanize.Comma(int64(r.Fragments)), humanize.Comma(int64(r.Translatable)))
	if r.Translated == r.Translatable {
		s.ok.Fprintf(w, "translated: %s", humanize.Comma(int64(r.Translated)))
	} else {
		s.warn.Fprintf(w, "translated: %s", humanize.Comma(int64(r.Translated)))
	}
	fmt.Fprintf(w, ", cache hits: %s\n", humanize.Comma(int64(r.CacheHits)))

	if len(r.Fallbacks) > 0 {
		s.bad.Fprintf(w, "\nKept original text (%d)\n", len(r.Fallbacks))
		for _, f := range r.Fallbacks {
			fmt.Fprintf(w, "  #%d line %d  %s", f.Ordinal, f.Line, f.Reason)
			if f.Error != "" {
				s.dim.Fprintf(w, "  %s", f.Error)
			}
			fmt.Fprintln(w)
		}
	}
	if len(r.Unconstrained) > 0 {
		s.warn.Fprintf(w, "\nSent without grammar (%d)\n", len(r.Unconstrained))
		for _, n := range r.Unconstrained {
			fmt.Fprintf(w, "  #%d line %d", n.Ordinal, n.Line)
			if n.Detail != "" {
				s.dim.Fprintf(w, "  %s", n.Detail)
			}
			fmt.Fprintln(w)
		}
	}
	if len(r.OverLength) > 0 {
		s.warn.Fprintf(w, "\nOver the length limit (%d)\n", len(r.OverLength))
		for _, n := range r.OverLength {
			fmt.Fprintf(w, "  #%d line %d  %s characters\n", n.Ordinal, n.Line, humanize.Comma(int64(n.Length)))
		}
	}
}
