package main

import (
	"github.com/spf13/cobra"

	"ltxtrans/internal/docio"
	"ltxtrans/internal/latex"
)

var treeBody bool

var treeCmd = &cobra.Command{
	Use:   "tree <in.tex>",
	Short: "Print the parsed structure of a document",
	Long: `Parse a document and print one node per line:

  offset:line-column: KIND 'text'

Long text is abbreviated to its first and last eight characters.`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

func init() {
	treeCmd.Flags().BoolVar(&treeBody, "body", false, "Parse only the document body (positions are relative to the body)")
}

func runTree(cmd *cobra.Command, args []string) error {
	doc, err := docio.ReadDocument(args[0])
	if err != nil {
		return err
	}
	src := doc.Text
	if treeBody {
		src = latex.SplitDocument(src).Body
	}
	tree, err := latex.Parse(src)
	if err != nil {
		return err
	}
	return latex.Dump(cmd.OutOrStdout(), tree)
}
