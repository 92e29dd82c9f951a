package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ltxtrans/internal/config"
	"ltxtrans/internal/translator"
	"ltxtrans/internal/types"
)

var vocabulary = strings.NewReplacer(
	"Bonjour", "Hello",
	"le monde", "the world",
	"Le chat dort", "The cat sleeps",
	"Chat", "Cat",
)

// fakeTranslator translates with vocabulary unless fn is set.
type fakeTranslator struct {
	mu       sync.Mutex
	requests []translator.Request
	fn       func(ctx context.Context, req translator.Request) (string, error)

	inFlight    int32
	maxInFlight int32
}

func (f *fakeTranslator) Translate(ctx context.Context, req translator.Request) (string, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, n) {
			break
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.fn != nil {
		return f.fn(ctx, req)
	}
	return vocabulary.Replace(req.Text), nil
}

func (f *fakeTranslator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]string
}

func (c *mapCache) Get(_ context.Context, source, target, text string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[source+"|"+target+"|"+text]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, source, target, text, translation, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[source+"|"+target+"|"+text] = translation
	return nil
}

func input(text string) Input {
	return Input{
		Name:   "paper_fr.tex",
		Output: "paper_en.tex",
		Text:   text,
		Size:   int64(len(text)),
		Source: translator.MustParseLanguage("fr"),
		Target: translator.MustParseLanguage("en"),
	}
}

func manualConfig() *types.Config {
	cfg := config.DefaultConfig()
	cfg.SplitMode = types.SplitManual
	return cfg
}

const fullDocument = "\\documentclass{article}\n" +
	"\\begin{document}\n" +
	"Bonjour le monde.\n\n" +
	"\\section{Chat} Le chat dort.\n" +
	"\\end{document}\n"

func TestRunFullDocument(t *testing.T) {
	tr := &fakeTranslator{}
	res, err := NewRunner(config.DefaultConfig(), tr).Run(context.Background(), input(fullDocument))
	require.NoError(t, err)

	want := "\\documentclass{article}\n" +
		"\\begin{document}\n" +
		"Hello the world.\n\n" +
		"\\section{Cat} The cat sleeps.\n" +
		"\\end{document}\n"
	assert.Equal(t, want, res.Text)

	require.Equal(t, 1, tr.calls())
	assert.NotContains(t, tr.requests[0].Text, "documentclass")
	require.NotNil(t, tr.requests[0].Grammar)
	assert.True(t, tr.requests[0].Grammar.HasCommand("section"))

	rep := res.Report
	assert.True(t, rep.Complete())
	assert.Equal(t, 1, rep.Translated)
	assert.Equal(t, "fr", rep.Source)
	assert.Equal(t, "en", rep.Target)
	assert.Equal(t, types.SplitAutomatic, rep.Mode)
}

func TestRunFailedFragmentKeepsOriginal(t *testing.T) {
	doc := "A1\n%trsltx-split\nA2\n%trsltx-split\nA3\n"
	tr := &fakeTranslator{fn: func(_ context.Context, req translator.Request) (string, error) {
		if strings.Contains(req.Text, "A2") {
			return "", errors.New("service unavailable")
		}
		return strings.ToLower(req.Text), nil
	}}

	res, err := NewRunner(manualConfig(), tr).Run(context.Background(), input(doc))
	require.NoError(t, err)

	assert.Equal(t, "a1\n%trsltx-split\nA2\n%trsltx-split\na3\n", res.Text)
	rep := res.Report
	assert.Equal(t, 2, rep.Translated)
	require.Len(t, rep.Fallbacks, 1)
	assert.Equal(t, 2, rep.Fallbacks[0].Ordinal)
	assert.Equal(t, 3, rep.Fallbacks[0].Line)
	assert.Equal(t, "translation", rep.Fallbacks[0].Reason)
	assert.Contains(t, rep.Fallbacks[0].Error, "service unavailable")
}

func TestRunLinesCountFromDocumentStart(t *testing.T) {
	doc := "\\documentclass{article}\n\\begin{document}\nA1\n%trsltx-split\nA2\n\\end{document}\n"
	tr := &fakeTranslator{fn: func(context.Context, translator.Request) (string, error) {
		return "", errors.New("down")
	}}
	res, err := NewRunner(manualConfig(), tr).Run(context.Background(), input(doc))
	require.NoError(t, err)
	assert.Equal(t, doc, res.Text)

	require.Len(t, res.Report.Fallbacks, 2)
	assert.Equal(t, 2, res.Report.Fallbacks[0].Line)
	assert.Equal(t, 5, res.Report.Fallbacks[1].Line)
}

func TestRunEnforcesGrammar(t *testing.T) {
	doc := "\\emph{Bonjour}\n"
	tr := &fakeTranslator{fn: func(context.Context, translator.Request) (string, error) {
		return "\\textbf{Hello}\n", nil
	}}

	cfg := config.DefaultConfig()
	res, err := NewRunner(cfg, tr).Run(context.Background(), input(doc))
	require.NoError(t, err)
	assert.Equal(t, doc, res.Text)
	require.Len(t, res.Report.Fallbacks, 1)
	assert.Contains(t, res.Report.Fallbacks[0].Error, "textbf")

	cfg.EnforceGrammar = false
	res, err = NewRunner(cfg, tr).Run(context.Background(), input(doc))
	require.NoError(t, err)
	assert.Equal(t, "\\textbf{Hello}\n", res.Text)
}

func TestRunUnconstrainedFragment(t *testing.T) {
	doc := "Bonjour\n\\begin{verbatim}\nx { y\n\\end{verbatim}\n"
	tr := &fakeTranslator{}
	res, err := NewRunner(config.DefaultConfig(), tr).Run(context.Background(), input(doc))
	require.NoError(t, err)

	require.Equal(t, 1, tr.calls())
	assert.Nil(t, tr.requests[0].Grammar)
	require.Len(t, res.Report.Unconstrained, 1)
	assert.Contains(t, res.Report.Unconstrained[0].Detail, "verbatim")
	assert.Equal(t, "Hello\n\\begin{verbatim}\nx { y\n\\end{verbatim}\n", res.Text)
}

func TestRunWithoutConstrainedGeneration(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ConstrainedGeneration = false
	tr := &fakeTranslator{}
	_, err := NewRunner(cfg, tr).Run(context.Background(), input("\\emph{Bonjour}"))
	require.NoError(t, err)
	require.Equal(t, 1, tr.calls())
	assert.Nil(t, tr.requests[0].Grammar)
}

func TestRunUsesCache(t *testing.T) {
	cache := &mapCache{m: map[string]string{}}
	cfg := manualConfig()
	doc := "Bonjour\n%trsltx-split\nle monde\n"

	first := &fakeTranslator{}
	res, err := NewRunner(cfg, first, WithCache(cache), WithModel("m")).Run(context.Background(), input(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, first.calls())
	assert.Equal(t, 0, res.Report.CacheHits)

	second := &fakeTranslator{}
	res, err = NewRunner(cfg, second, WithCache(cache)).Run(context.Background(), input(doc))
	require.NoError(t, err)
	assert.Equal(t, 0, second.calls())
	assert.Equal(t, 2, res.Report.CacheHits)
	assert.Equal(t, "Hello\n%trsltx-split\nthe world\n", res.Text)
}

func TestRunBoundsConcurrency(t *testing.T) {
	var parts []string
	for i := 0; i < 12; i++ {
		parts = append(parts, fmt.Sprintf("part %d\n", i))
	}
	doc := strings.Join(parts, "%trsltx-split\n")

	cfg := manualConfig()
	cfg.Concurrency = 3
	tr := &fakeTranslator{fn: func(_ context.Context, req translator.Request) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return strings.ToUpper(req.Text), nil
	}}

	res, err := NewRunner(cfg, tr).Run(context.Background(), input(doc))
	require.NoError(t, err)
	assert.Equal(t, 12, tr.calls())
	assert.LessOrEqual(t, atomic.LoadInt32(&tr.maxInFlight), int32(3))
	assert.Equal(t, strings.ToUpper(strings.Join(parts, "%trsltx-split\n")), strings.ToUpper(res.Text))
	assert.Equal(t, 12, res.Report.Translated)
}

func TestRunCancelled(t *testing.T) {
	doc := "A1\n%trsltx-split\nA2\n%trsltx-split\nA3\n"
	cfg := manualConfig()
	cfg.Concurrency = 1

	started := make(chan struct{}, 3)
	tr := &fakeTranslator{fn: func(ctx context.Context, _ translator.Request) (string, error) {
		started <- struct{}{}
		<-ctx.Done()
		return "", ctx.Err()
	}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	res, err := NewRunner(cfg, tr).Run(ctx, input(doc))
	require.Error(t, err)
	assert.Equal(t, types.ErrCancelled, types.CodeOf(err))
	require.NotNil(t, res)
	assert.Equal(t, doc, res.Text)
	assert.Equal(t, 1, tr.calls())

	require.Len(t, res.Report.Fallbacks, 3)
	for _, fb := range res.Report.Fallbacks {
		assert.Equal(t, "cancelled", fb.Reason, "fragment %d", fb.Ordinal)
	}
}

func TestRunTranslatorReportsCancellation(t *testing.T) {
	doc := "A1\n%trsltx-split\nA2\n"
	cfg := manualConfig()
	cfg.Concurrency = 1

	tr := &fakeTranslator{fn: func(_ context.Context, req translator.Request) (string, error) {
		if req.Ordinal == 0 {
			return "", types.NewAppError(types.ErrCancelled, "request cancelled", context.Canceled)
		}
		return "B2\n", nil
	}}

	res, err := NewRunner(cfg, tr).Run(context.Background(), input(doc))
	require.NoError(t, err)
	assert.Equal(t, "A1\n%trsltx-split\nB2\n", res.Text)
	require.Len(t, res.Report.Fallbacks, 1)
	assert.Equal(t, 0, res.Report.Fallbacks[0].Ordinal)
	assert.Equal(t, "cancelled", res.Report.Fallbacks[0].Reason)
}

func TestRunMarkerImbalance(t *testing.T) {
	tr := &fakeTranslator{}
	res, err := NewRunner(config.DefaultConfig(), tr).Run(context.Background(), input("a\n%trsltx-begin-ignore\nb\n"))
	assert.Nil(t, res)
	assert.Equal(t, types.ErrMarkerImbalance, types.CodeOf(err))
	assert.Equal(t, 0, tr.calls())
}

func TestRunManualChunkTooLong(t *testing.T) {
	cfg := manualConfig()
	cfg.MaxFragmentLength = 10
	doc := "short\n%trsltx-split\nthis one is far too long\n"

	tr := &fakeTranslator{fn: func(_ context.Context, req translator.Request) (string, error) {
		return strings.ToUpper(req.Text), nil
	}}
	res, err := NewRunner(cfg, tr).Run(context.Background(), input(doc))
	require.NoError(t, err)

	assert.Equal(t, "SHORT\n%trsltx-split\nthis one is far too long\n", res.Text)
	assert.Equal(t, 1, tr.calls())
	require.Len(t, res.Report.Fallbacks, 1)
	assert.Equal(t, "chunk-too-long", res.Report.Fallbacks[0].Reason)
	require.Len(t, res.Report.OverLength, 1)
	assert.Equal(t, 25, res.Report.OverLength[0].Length)
}

func TestRunIgnoreRegionUntouched(t *testing.T) {
	doc := "Bonjour\n%trsltx-begin-ignore\nBonjour { $\n%trsltx-end-ignore\nle monde\n"
	tr := &fakeTranslator{}
	res, err := NewRunner(config.DefaultConfig(), tr).Run(context.Background(), input(doc))
	require.NoError(t, err)
	assert.Equal(t, "Hello\n%trsltx-begin-ignore\nBonjour { $\n%trsltx-end-ignore\nthe world\n", res.Text)
	for _, req := range tr.requests {
		assert.NotContains(t, req.Text, "{ $")
	}
}
