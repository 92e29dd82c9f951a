// Package pipeline runs a translation: split the document body into
// fragments, derive each fragment's grammar, translate the fragments
// concurrently and reassemble the results in input order.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ltxtrans/internal/grammar"
	"ltxtrans/internal/latex"
	"ltxtrans/internal/logger"
	"ltxtrans/internal/reassemble"
	"ltxtrans/internal/report"
	"ltxtrans/internal/splitter"
	"ltxtrans/internal/translator"
	"ltxtrans/internal/types"
)

// Translator translates one fragment.
type Translator interface {
	Translate(ctx context.Context, req translator.Request) (string, error)
}

// Cache is a translation memory.
type Cache interface {
	Get(ctx context.Context, source, target, text string) (string, bool, error)
	Set(ctx context.Context, source, target, text, translation, model string) error
}

// Runner runs translations with one configuration.
type Runner struct {
	cfg        *types.Config
	translator Translator
	cache      Cache
	model      string
}

// Option configures a Runner.
type Option func(*Runner)

// WithCache enables the translation memory.
func WithCache(c Cache) Option {
	return func(r *Runner) { r.cache = c }
}

// WithModel names the model in cache entries and the report.
func WithModel(name string) Option {
	return func(r *Runner) { r.model = name }
}

// NewRunner creates a runner.
func NewRunner(cfg *types.Config, tr Translator, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, translator: tr}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Input is one document to translate.
type Input struct {
	Name   string
	Output string
	Text   string
	Size   int64
	Source translator.Language
	Target translator.Language
}

// Result is a finished run. Text is always a complete document: fragments
// that were not translated keep their original text.
type Result struct {
	Text   string
	Split  *splitter.Result
	Report *report.Report
}

// job is one fragment on its way to the translator.
type job struct {
	frag    splitter.Fragment
	line    int
	grammar *grammar.Grammar
}

// Run translates in. A marker imbalance fails the run before anything is
// sent. When ctx is cancelled the run still returns a complete Result
// together with an ErrCancelled AppError.
func (r *Runner) Run(ctx context.Context, in Input) (*Result, error) {
	env := latex.SplitDocument(in.Text)
	lineOffset := strings.Count(env.Preamble, "\n")

	res, err := splitter.Split(env.Body, splitter.OptionsFromConfig(r.cfg))
	if err != nil {
		return nil, types.NewAppError(types.ErrMarkerImbalance, "cannot split document", err)
	}

	rep := report.New(in.Name, in.Output)
	rep.InputBytes = in.Size
	rep.Source, rep.Target = in.Source.Code(), in.Target.Code()
	rep.Mode = res.Mode
	rep.Model = r.model
	rep.Fragments = len(res.Fragments)

	var jobs []job
	for _, f := range res.Fragments {
		if f.Kind != splitter.Translatable {
			continue
		}
		rep.Translatable++
		line := f.Line + lineOffset
		if f.OverLength || f.Err != nil {
			rep.AddOverLength(f.Ordinal, line, f.Length)
		}
		if !f.Sendable() {
			continue
		}
		j := job{frag: f, line: line}
		if r.cfg.ConstrainedGeneration {
			g, gerr := grammar.FromFragment(f.Text)
			if gerr != nil {
				logger.Debug("fragment sent without grammar", logger.Int("ordinal", f.Ordinal), logger.Err(gerr))
				rep.AddUnconstrained(f.Ordinal, line, gerr)
			}
			j.grammar = g
		}
		jobs = append(jobs, j)
	}

	logger.Info("document split",
		logger.String("input", in.Name),
		logger.String("mode", string(res.Mode)),
		logger.Int("fragments", len(res.Fragments)),
		logger.Int("toTranslate", len(jobs)),
		logger.Int("ignoreRegions", len(res.Ignored)))

	slots := reassemble.NewSlots(res.Fragments)
	r.translateAll(ctx, in, jobs, slots, rep)

	out, err := slots.Assemble(res.Ignored)
	if err != nil {
		return nil, types.NewAppError(types.ErrInternal, "failed to reassemble document", err)
	}

	rep.Translated = out.Translated
	for _, fb := range out.Fallbacks {
		rep.AddFallback(fb.Ordinal, res.Fragments[fb.Ordinal].Line+lineOffset, string(fb.Reason), fb.Err)
	}
	rep.Finish()

	result := &Result{
		Text:   env.WithBody(out.Text).String(),
		Split:  res,
		Report: rep,
	}

	logger.Info("translation run finished",
		logger.String("runID", rep.RunID),
		logger.Int("translated", rep.Translated),
		logger.Int("fallbacks", len(rep.Fallbacks)),
		logger.Int("cacheHits", rep.CacheHits))

	if ctx.Err() != nil {
		return result, types.NewAppError(types.ErrCancelled, "translation cancelled", ctx.Err())
	}
	return result, nil
}

// translateAll runs the jobs with at most cfg.Concurrency in flight. On
// cancellation no new job starts; the pending slots are settled later.
func (r *Runner) translateAll(ctx context.Context, in Input, jobs []job, slots *reassemble.Slots, rep *report.Report) {
	concurrency := r.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

dispatch:
	for _, j := range jobs {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			logger.Warn("translation cancelled, not dispatching remaining fragments", logger.Err(ctx.Err()))
			break dispatch
		}
		if ctx.Err() != nil {
			<-semaphore
			break
		}

		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			defer func() { <-semaphore }()

			text, err := r.translateOne(ctx, in, j, rep)
			if err != nil && (ctx.Err() != nil || types.CodeOf(err) == types.ErrCancelled) {
				// Left pending: Settle records it as cancelled.
				logger.Debug("fragment cancelled in flight", logger.Int("ordinal", j.frag.Ordinal))
				return
			}
			if err != nil {
				logger.Warn("fragment kept in original language",
					logger.Int("ordinal", j.frag.Ordinal),
					logger.Int("line", j.line),
					logger.Err(err))
				slots.Fail(j.frag.Ordinal, err)
				return
			}
			slots.Complete(j.frag.Ordinal, text)
		}(j)
	}

	wg.Wait()
}

func (r *Runner) translateOne(ctx context.Context, in Input, j job, rep *report.Report) (string, error) {
	source, target := in.Source.Code(), in.Target.Code()

	if r.cache != nil {
		cached, ok, err := r.cache.Get(ctx, source, target, j.frag.Text)
		if err != nil {
			logger.Warn("cache lookup failed", logger.Int("ordinal", j.frag.Ordinal), logger.Err(err))
		} else if ok {
			rep.CacheHit()
			return cached, nil
		}
	}

	text, err := r.translator.Translate(ctx, translator.Request{
		Ordinal: j.frag.Ordinal,
		Text:    j.frag.Text,
		Grammar: j.grammar,
		Source:  in.Source,
		Target:  in.Target,
	})
	if err != nil {
		return "", err
	}

	if r.cfg.EnforceGrammar && j.grammar != nil {
		if verr := j.grammar.Check(text); verr != nil {
			return "", fmt.Errorf("fragment %d: %w", j.frag.Ordinal, verr)
		}
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, source, target, j.frag.Text, text, r.model); err != nil {
			logger.Warn("cache write failed", logger.Int("ordinal", j.frag.Ordinal), logger.Err(err))
		}
	}
	return text, nil
}
