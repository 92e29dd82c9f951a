package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ltxtrans/internal/docio"
	"ltxtrans/internal/latex"
	"ltxtrans/internal/splitter"
	"ltxtrans/internal/types"
)

var (
	splitMode      string
	splitMaxLength int
	splitAnnotate  bool
)

var splitCmd = &cobra.Command{
	Use:   "split <in.tex>",
	Short: "Show how a document would be cut into fragments",
	Long: `Split the body of a document and print the fragment table.

With --annotate the document is printed instead, with a split marker line
between consecutive fragments. The annotated file can be edited and then
translated with --mode manual.`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

func init() {
	splitCmd.Flags().StringVar(&splitMode, "mode", "", "Split mode: automatic or manual (overrides config)")
	splitCmd.Flags().IntVar(&splitMaxLength, "max-length", 0, "Maximum fragment length in characters (overrides config)")
	splitCmd.Flags().BoolVar(&splitAnnotate, "annotate", false, "Print the document with split markers instead of the table")
}

// body is the translatable part of a document on disk.
type body struct {
	doc        *docio.Document
	env        latex.Envelope
	lineOffset int
}

func readBody(path string) (*body, error) {
	doc, err := docio.ReadDocument(path)
	if err != nil {
		return nil, err
	}
	env := latex.SplitDocument(doc.Text)
	return &body{doc: doc, env: env, lineOffset: strings.Count(env.Preamble, "\n")}, nil
}

func runSplit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("mode") {
		cfg.SplitMode = types.SplitMode(splitMode)
	}
	if cmd.Flags().Changed("max-length") {
		cfg.MaxFragmentLength = splitMaxLength
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	b, err := readBody(args[0])
	if err != nil {
		return err
	}
	res, err := splitter.Split(b.env.Body, splitter.OptionsFromConfig(cfg))
	if err != nil {
		var imbalance *splitter.MarkerImbalanceError
		if errors.As(err, &imbalance) {
			shifted := *imbalance
			shifted.Line += b.lineOffset
			return &shifted
		}
		return err
	}

	out := cmd.OutOrStdout()
	if splitAnnotate {
		_, err := io.WriteString(out, b.env.WithBody(splitter.Annotate(res, cfg.SplitMarker)).String())
		return err
	}
	printFragments(out, res, b)
	return nil
}

func printFragments(w io.Writer, res *splitter.Result, b *body) {
	fmt.Fprintf(w, "%5s  %-12s  %6s  %10s  %s\n", "#", "KIND", "LINE", "LENGTH", "NOTE")
	sendable := 0
	for _, f := range res.Fragments {
		note := ""
		switch {
		case f.Err != nil:
			note = "too long, not translated"
		case f.OverLength:
			note = "over length"
		case f.Kind == splitter.Ignored:
			note = fmt.Sprintf("region %d", f.Region)
		}
		if f.Sendable() {
			sendable++
		}
		fmt.Fprintf(w, "%5d  %-12s  %6d  %10s  %s\n",
			f.Ordinal, f.Kind, f.Line+b.lineOffset, humanize.Comma(int64(f.Length)), note)
	}
	fmt.Fprintf(w, "\n%s mode, %d fragments, %d to translate, %d ignore regions, max %s characters (%s)\n",
		res.Mode, len(res.Fragments), sendable, len(res.Ignored),
		humanize.Comma(int64(res.MaxLength)), humanize.Bytes(uint64(b.doc.Size)))
}
