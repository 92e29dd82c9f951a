package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"ltxtrans/internal/cache"
	"ltxtrans/internal/docio"
	"ltxtrans/internal/logger"
	"ltxtrans/internal/pipeline"
	"ltxtrans/internal/report"
	"ltxtrans/internal/translator"
	"ltxtrans/internal/types"
)

// backupDirName is created next to the output file.
const backupDirName = ".ltxtrans-backups"

var (
	translateFrom         string
	translateTo           string
	translateMode         string
	translateMaxLength    int
	translateConcurrency  int
	translateNoGrammar    bool
	translateCache        string
	translateColor        string
	translateKeepEncoding bool
	translateKeepBackups  int
	translateStrict       bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <in.tex> [out.tex]",
	Short: "Translate a LaTeX document",
	Long: `Translate a LaTeX document. The source language comes from --from or
from a "_xx" suffix of the input file name (paper_fr.tex). The output
defaults to the input name with the target language suffix (paper_en.tex).

A JSON run report is written next to the output.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringVar(&translateFrom, "from", "", "Source language (default: inferred from the input file name)")
	translateCmd.Flags().StringVar(&translateTo, "to", "en", "Target language")
	translateCmd.Flags().StringVar(&translateMode, "mode", "", "Split mode: automatic or manual (overrides config)")
	translateCmd.Flags().IntVar(&translateMaxLength, "max-length", 0, "Maximum fragment length in characters (overrides config)")
	translateCmd.Flags().IntVar(&translateConcurrency, "concurrency", 0, "Fragments translated at once (overrides config)")
	translateCmd.Flags().BoolVar(&translateNoGrammar, "no-grammar", false, "Send fragments without a constraint grammar")
	translateCmd.Flags().StringVar(&translateCache, "cache", "", "Translation memory database (overrides config)")
	translateCmd.Flags().StringVar(&translateColor, "color", "auto", "Color the report: auto, always, never")
	translateCmd.Flags().BoolVar(&translateKeepEncoding, "keep-encoding", false, "Write the output in the input's encoding instead of UTF-8")
	translateCmd.Flags().IntVar(&translateKeepBackups, "keep-backups", 5, "Copies of an overwritten output to keep (0 disables backups)")
	translateCmd.Flags().BoolVar(&translateStrict, "strict", false, "Exit non-zero when any fragment kept its original text")
}

func applyTranslateFlags(cmd *cobra.Command, cfg *types.Config) {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.SplitMode = types.SplitMode(translateMode)
	}
	if flags.Changed("max-length") {
		cfg.MaxFragmentLength = translateMaxLength
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = translateConcurrency
	}
	if translateNoGrammar {
		cfg.ConstrainedGeneration = false
	}
	if flags.Changed("cache") {
		cfg.CachePath = translateCache
	}
}

// resolveLanguages picks the source and target languages and the output
// path.
func resolveLanguages(input string, args []string) (source, target translator.Language, output string, err error) {
	target, err = translator.ParseLanguage(translateTo)
	if err != nil {
		return source, target, "", fmt.Errorf("--to: %w", err)
	}
	if translateFrom != "" {
		source, err = translator.ParseLanguage(translateFrom)
		if err != nil {
			return source, target, "", fmt.Errorf("--from: %w", err)
		}
	} else {
		var ok bool
		source, ok = translator.LanguageFromFilename(input)
		if !ok {
			return source, target, "", fmt.Errorf("cannot infer the source language of %s; use --from", input)
		}
	}
	if source.Code() == target.Code() {
		return source, target, "", fmt.Errorf("source and target language are both %s", target.Code())
	}

	output = translator.OutputFilename(input, target)
	if len(args) > 1 {
		output = args[1]
	}
	if filepath.Clean(output) == filepath.Clean(input) {
		return source, target, "", fmt.Errorf("output would overwrite the input %s", input)
	}
	return source, target, output, nil
}

func runTranslate(cmd *cobra.Command, args []string) error {
	input := args[0]
	source, target, output, err := resolveLanguages(input, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyTranslateFlags(cmd, cfg)
	if err := validateConfig(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := docio.ReadDocument(input)
	if err != nil {
		return err
	}

	engine, err := translator.NewTranslationEngine(ctx, cfg)
	if err != nil {
		return err
	}
	opts := []pipeline.Option{pipeline.WithModel(engine.GetModel())}
	if cfg.CachePath != "" {
		tm, err := cache.Open(cfg.CachePath)
		if err != nil {
			return err
		}
		defer tm.Close()
		opts = append(opts, pipeline.WithCache(tm))
	}

	logger.Info("translating document",
		logger.String("input", input),
		logger.String("output", output),
		logger.String("source", source.Code()),
		logger.String("target", target.Code()),
		logger.String("model", engine.GetModel()))

	res, runErr := pipeline.NewRunner(cfg, engine, opts...).Run(ctx, pipeline.Input{
		Name:   input,
		Output: output,
		Text:   doc.Text,
		Size:   doc.Size,
		Source: source,
		Target: target,
	})
	if res == nil {
		return runErr
	}

	enc := docio.UTF8
	if translateKeepEncoding {
		enc = doc.Encoding
	}
	var backups *docio.Backups
	if translateKeepBackups > 0 {
		backups = docio.NewBackups(filepath.Join(filepath.Dir(output), backupDirName), translateKeepBackups)
	}
	if err := docio.WriteDocument(output, res.Text, enc, backups); err != nil {
		return err
	}

	reportPath := report.PathFor(output)
	if err := res.Report.Save(reportPath); err != nil {
		logger.Warn("failed to save run report", logger.String("path", reportPath), logger.Err(err))
	}
	res.Report.Print(cmd.OutOrStdout(), report.ColorEnabled(translateColor, os.Stdout))

	if runErr != nil {
		return runErr
	}
	if translateStrict && !res.Report.Complete() {
		return fmt.Errorf("%d fragment(s) kept their original text", len(res.Report.Fallbacks))
	}
	return nil
}
