package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ltxtrans/internal/config"
	"ltxtrans/internal/pipeline"
	"ltxtrans/internal/translator"
)

type helloTranslator struct{}

func (helloTranslator) Translate(_ context.Context, req translator.Request) (string, error) {
	return strings.ReplaceAll(req.Text, "Bonjour", "Hello"), nil
}

func newTestServer(withRunner bool) *httptest.Server {
	cfg := config.DefaultConfig()
	var runner *pipeline.Runner
	if withRunner {
		runner = pipeline.NewRunner(cfg, helloTranslator{})
	}
	return httptest.NewServer(NewServer(cfg, runner))
}

func post(t *testing.T, srv *httptest.Server, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(string(data)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(false)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestParse(t *testing.T) {
	srv := newTestServer(false)
	defer srv.Close()

	resp, out := post(t, srv, "/v1/parse", map[string]string{"text": `a \emph{b} $c$`})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	nodes := out["nodes"].([]any)
	roots := out["roots"].([]any)
	assert.Len(t, roots, 5)
	kinds := make([]string, 0, len(roots))
	for _, r := range roots {
		kinds = append(kinds, nodes[int(r.(float64))].(map[string]any)["kind"].(string))
	}
	assert.Equal(t, []string{"TEXT", "CNAME", "GROUP", "TEXT", "TMATH"}, kinds)
}

func TestParseSyntaxError(t *testing.T) {
	srv := newTestServer(false)
	defer srv.Close()

	resp, out := post(t, srv, "/v1/parse", map[string]string{"text": "\\begin{itemize}\nx\n\\end{enumerate}"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, out["error"], "environment mismatch")
	pos := out["pos"].(map[string]any)
	assert.Equal(t, float64(3), pos["line"])
	other := out["other"].(map[string]any)
	assert.Equal(t, float64(1), other["line"])
}

func TestParseBadBody(t *testing.T) {
	srv := newTestServer(false)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/parse", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSplit(t *testing.T) {
	srv := newTestServer(false)
	defer srv.Close()

	body := map[string]any{
		"text":     "one\n%trsltx-split\ntwo\n%trsltx-begin-ignore\nraw\n%trsltx-end-ignore\n",
		"mode":     "manual",
		"annotate": true,
	}
	resp, out := post(t, srv, "/v1/split", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frags := out["fragments"].([]any)
	require.Len(t, frags, 4)
	assert.Equal(t, "one\n", frags[0].(map[string]any)["text"])
	assert.Equal(t, "marker", strings.ToLower(frags[1].(map[string]any)["kind"].(string)))
	assert.Len(t, out["ignored"], 1)
	assert.Equal(t, "manual", out["mode"])
}

func TestSplitMarkerImbalance(t *testing.T) {
	srv := newTestServer(false)
	defer srv.Close()

	resp, out := post(t, srv, "/v1/split", map[string]any{"text": "a\n%trsltx-end-ignore\n"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, float64(2), out["line"])

	resp, _ = post(t, srv, "/v1/split", map[string]any{"text": "a", "mode": "sometimes"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGrammar(t *testing.T) {
	srv := newTestServer(false)
	defer srv.Close()

	resp, out := post(t, srv, "/v1/grammar", map[string]string{"text": `\textbf{a} \begin{itemize}\item b\end{itemize}`})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ebnf", out["format"])
	assert.Equal(t, []any{"item", "textbf"}, out["commands"])
	assert.Equal(t, []any{"itemize"}, out["environments"])
	assert.Equal(t, []any{}, out["references"])
	assert.Contains(t, out["grammar"], "root ::=")

	resp, out = post(t, srv, "/v1/grammar", map[string]string{"text": `see \ref{eq:a}`})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{`\ref{eq:a}`}, out["references"])

	resp, out = post(t, srv, "/v1/grammar", map[string]string{"text": "x", "format": "gbnf"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gbnf", out["format"])

	resp, _ = post(t, srv, "/v1/grammar", map[string]string{"text": "{ unbalanced"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = post(t, srv, "/v1/grammar", map[string]string{"text": "x", "format": "peg"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnchors(t *testing.T) {
	srv := newTestServer(false)
	defer srv.Close()

	body := map[string]any{
		"text":      "intro\n\\section{A}\ntext\n\\section{B}\nmore\n",
		"selectors": []string{`\section`},
	}
	resp, out := post(t, srv, "/v1/anchors", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	anchors := out["anchors"].([]any)
	require.Len(t, anchors, 2)
	assert.Equal(t, float64(2), anchors[0].(map[string]any)["line"])
	assert.Equal(t, float64(4), anchors[1].(map[string]any)["line"])
	assert.Len(t, out["intervals"], 3)

	resp, _ = post(t, srv, "/v1/anchors", map[string]any{"text": "x", "selectors": []string{""}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranslate(t *testing.T) {
	srv := newTestServer(true)
	defer srv.Close()

	resp, out := post(t, srv, "/v1/translate", map[string]string{"text": "Bonjour\n", "source": "fr", "target": "en"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello\n", out["text"])
	rep := out["report"].(map[string]any)
	assert.Equal(t, float64(1), rep["translated"])

	resp, _ = post(t, srv, "/v1/translate", map[string]string{"text": "x", "source": "??", "target": "en"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranslateNotConfigured(t *testing.T) {
	srv := newTestServer(false)
	defer srv.Close()

	resp, _ := post(t, srv, "/v1/translate", map[string]string{"text": "x", "source": "fr", "target": "en"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
