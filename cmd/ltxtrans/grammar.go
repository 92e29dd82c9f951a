package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ltxtrans/internal/docio"
	"ltxtrans/internal/grammar"
	"ltxtrans/internal/types"
)

var grammarFormat string

var grammarCmd = &cobra.Command{
	Use:   "grammar <fragment|file>",
	Short: "Print the constraint grammar of a fragment",
	Long: `Print the grammar a translation of the fragment must follow. The argument
is read as a file when one exists at that path, and as fragment text
otherwise. Use "-" to read the fragment from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runGrammar,
}

func init() {
	grammarCmd.Flags().StringVar(&grammarFormat, "format", string(types.GrammarEBNF), "Grammar notation: ebnf or gbnf")
}

func fragmentArg(cmd *cobra.Command, arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		text, _, err := docio.Decode(data)
		return text, err
	}
	if st, err := os.Stat(arg); err == nil && st.Mode().IsRegular() {
		doc, err := docio.ReadDocument(arg)
		if err != nil {
			return "", err
		}
		return doc.Text, nil
	}
	return arg, nil
}

func runGrammar(cmd *cobra.Command, args []string) error {
	format := types.GrammarFormat(grammarFormat)
	if format != types.GrammarEBNF && format != types.GrammarGBNF {
		return fmt.Errorf("unknown grammar format %q", grammarFormat)
	}
	text, err := fragmentArg(cmd, args[0])
	if err != nil {
		return err
	}
	g, err := grammar.FromFragment(text)
	if err != nil {
		return fmt.Errorf("fragment would be translated without a grammar: %w", err)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), g.Render(format))
	return err
}
