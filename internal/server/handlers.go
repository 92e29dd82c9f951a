package server

import (
	"errors"
	"net/http"

	"ltxtrans/internal/grammar"
	"ltxtrans/internal/latex"
	"ltxtrans/internal/pipeline"
	"ltxtrans/internal/report"
	"ltxtrans/internal/splitter"
	"ltxtrans/internal/translator"
	"ltxtrans/internal/types"
)

type textRequest struct {
	Text string `json:"text"`
}

type nodeJSON struct {
	ID       latex.NodeID   `json:"id"`
	Kind     string         `json:"kind"`
	Label    string         `json:"label"`
	Start    int            `json:"start"`
	End      int            `json:"end"`
	Pos      latex.Position `json:"pos"`
	Name     string         `json:"name,omitempty"`
	Star     bool           `json:"star,omitempty"`
	Form     string         `json:"form,omitempty"`
	Children []latex.NodeID `json:"children,omitempty"`
}

type treeJSON struct {
	Nodes []nodeJSON     `json:"nodes"`
	Roots []latex.NodeID `json:"roots"`
}

func toTreeJSON(t *latex.Tree) treeJSON {
	out := treeJSON{Nodes: make([]nodeJSON, len(t.Nodes)), Roots: t.Roots}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		id := latex.NodeID(i)
		out.Nodes[i] = nodeJSON{
			ID:       id,
			Kind:     n.Kind.String(),
			Label:    t.Label(id),
			Start:    n.Start,
			End:      n.End,
			Pos:      n.Pos,
			Name:     n.Name,
			Star:     n.Star,
			Form:     n.Form.String(),
			Children: n.Children,
		}
	}
	if out.Roots == nil {
		out.Roots = []latex.NodeID{}
	}
	return out
}

type syntaxErrorJSON struct {
	Error string          `json:"error"`
	Pos   latex.Position  `json:"pos"`
	Other *latex.Position `json:"other,omitempty"`
}

// writeSyntaxError answers 422 for parse failures and reports whether err
// was one.
func writeSyntaxError(w http.ResponseWriter, err error) bool {
	var serr *latex.SyntaxError
	if !errors.As(err, &serr) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, syntaxErrorJSON{Error: serr.Error(), Pos: serr.Pos, Other: serr.Other})
	return true
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	tree, err := latex.Parse(req.Text)
	if err != nil {
		if !writeSyntaxError(w, err) {
			jsonError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, toTreeJSON(tree))
}

type splitRequest struct {
	Text      string          `json:"text"`
	MaxLength int             `json:"max_length,omitempty"`
	Mode      types.SplitMode `json:"mode,omitempty"`
	Annotate  bool            `json:"annotate,omitempty"`
}

type splitResponse struct {
	Mode      types.SplitMode         `json:"mode"`
	MaxLength int                     `json:"max_length"`
	Fragments []splitter.Fragment     `json:"fragments"`
	Ignored   []splitter.IgnoreRegion `json:"ignored"`
	Annotated string                  `json:"annotated,omitempty"`
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if !decode(w, r, &req) {
		return
	}
	opts := splitter.OptionsFromConfig(s.cfg)
	if req.MaxLength != 0 {
		opts.MaxLength = req.MaxLength
	}
	switch req.Mode {
	case "":
	case types.SplitAutomatic, types.SplitManual:
		opts.Mode = req.Mode
	default:
		jsonError(w, "unknown split mode: "+string(req.Mode), http.StatusBadRequest)
		return
	}

	res, err := splitter.Split(req.Text, opts)
	if err != nil {
		var imbalance *splitter.MarkerImbalanceError
		if errors.As(err, &imbalance) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  err.Error(),
				"line":   imbalance.Line,
				"marker": imbalance.Marker,
			})
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := splitResponse{Mode: res.Mode, MaxLength: res.MaxLength, Fragments: res.Fragments, Ignored: res.Ignored}
	if resp.Ignored == nil {
		resp.Ignored = []splitter.IgnoreRegion{}
	}
	if req.Annotate {
		resp.Annotated = splitter.Annotate(res, opts.Markers.Split)
	}
	writeJSON(w, http.StatusOK, resp)
}

type grammarRequest struct {
	Text   string              `json:"text"`
	Format types.GrammarFormat `json:"format,omitempty"`
}

type grammarResponse struct {
	Format       types.GrammarFormat `json:"format"`
	Grammar      string              `json:"grammar"`
	Commands     []string            `json:"commands"`
	References   []string            `json:"references"`
	Environments []string            `json:"environments"`
	MathForms    []string            `json:"math_forms"`
}

func (s *Server) handleGrammar(w http.ResponseWriter, r *http.Request) {
	var req grammarRequest
	if !decode(w, r, &req) {
		return
	}
	format := req.Format
	if format == "" {
		format = s.cfg.GrammarFormat
	}
	if format != types.GrammarEBNF && format != types.GrammarGBNF {
		jsonError(w, "unknown grammar format: "+string(format), http.StatusBadRequest)
		return
	}

	g, err := grammar.FromFragment(req.Text)
	if err != nil {
		// No grammar: the fragment would be sent unconstrained.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := grammarResponse{
		Format:       format,
		Grammar:      g.Render(format),
		Commands:     g.Commands,
		References:   g.References,
		Environments: make([]string, len(g.Environments)),
		MathForms:    g.MathFormNames(),
	}
	for i, e := range g.Environments {
		resp.Environments[i] = e.String()
	}
	if resp.Commands == nil {
		resp.Commands = []string{}
	}
	if resp.References == nil {
		resp.References = []string{}
	}
	if resp.MathForms == nil {
		resp.MathForms = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type anchorsRequest struct {
	Text      string   `json:"text"`
	Selectors []string `json:"selectors"`
}

type anchorJSON struct {
	Line   int    `json:"line"`
	Offset int    `json:"offset"`
	Kind   string `json:"kind"`
	Name   string `json:"name"`
}

func (s *Server) handleAnchors(w http.ResponseWriter, r *http.Request) {
	var req anchorsRequest
	if !decode(w, r, &req) {
		return
	}
	sels, err := latex.ParseSelectors(req.Selectors)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	tree, err := latex.Parse(req.Text)
	if err != nil {
		if !writeSyntaxError(w, err) {
			jsonError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	anchors := latex.Anchors(tree, sels)
	out := make([]anchorJSON, len(anchors))
	for i, a := range anchors {
		out[i] = anchorJSON{Line: a.Pos.Line, Offset: a.Pos.Offset, Kind: a.Kind.String(), Name: a.Name}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"anchors":   out,
		"intervals": latex.Intervals(tree, anchors),
	})
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponse struct {
	Text   string         `json:"text"`
	Report *report.Report `json:"report"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		jsonError(w, "translation is not configured", http.StatusServiceUnavailable)
		return
	}
	var req translateRequest
	if !decode(w, r, &req) {
		return
	}
	source, err := translator.ParseLanguage(req.Source)
	if err != nil {
		jsonError(w, "source: "+err.Error(), http.StatusBadRequest)
		return
	}
	target, err := translator.ParseLanguage(req.Target)
	if err != nil {
		jsonError(w, "target: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.runner.Run(r.Context(), pipeline.Input{
		Name:   "request",
		Text:   req.Text,
		Size:   int64(len(req.Text)),
		Source: source,
		Target: target,
	})
	if err != nil && res == nil {
		code := http.StatusInternalServerError
		if types.CodeOf(err) == types.ErrMarkerImbalance {
			code = http.StatusUnprocessableEntity
		}
		jsonError(w, err.Error(), code)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{Text: res.Text, Report: res.Report})
}
