package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ltxtrans/internal/latex"
	"ltxtrans/internal/splitter"
)

var anchorsIntervals bool

var anchorsCmd = &cobra.Command{
	Use:   "anchors <in.tex> [selector...]",
	Short: "List the top-level nodes that match anchor selectors",
	Long: `List the top-level nodes of the document body that start a line and
match one of the selectors:

  \name or m:name   command
  {env} or e:env    environment
  %tag or c:tag     comment whose first word is tag

Without selectors the sectioning commands the splitter prefers are used.
Lines are document lines.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnchors,
}

func init() {
	anchorsCmd.Flags().BoolVar(&anchorsIntervals, "intervals", false, "Also print the intervals between anchors")
}

func runAnchors(cmd *cobra.Command, args []string) error {
	sels := splitter.DefaultAnchors
	if len(args) > 1 {
		var err error
		if sels, err = latex.ParseSelectors(args[1:]); err != nil {
			return err
		}
	}

	b, err := readBody(args[0])
	if err != nil {
		return err
	}
	tree, err := latex.Parse(b.env.Body)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	anchors := latex.Anchors(tree, sels)
	for _, a := range anchors {
		fmt.Fprintf(out, "line %d char %d kind %s name %s\n",
			a.Pos.Line+b.lineOffset, a.Pos.Offset+b.env.BodyOffset(), a.Kind, a.Name)
	}
	if anchorsIntervals {
		for _, iv := range latex.Intervals(tree, anchors) {
			fmt.Fprintf(out, "lines %d-%d length %d\n",
				iv.StartLine+b.lineOffset, iv.EndLine+b.lineOffset, iv.Length)
		}
	}
	return nil
}
