package main

import (
	"github.com/spf13/cobra"

	"ltxtrans/internal/config"
	"ltxtrans/internal/logger"
	"ltxtrans/internal/types"
)

var (
	configPath string
	logFile    string
	logLevel   string
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "ltxtrans",
	Short: "Translate LaTeX documents with a chat model",
	Long: `ltxtrans splits a LaTeX document into fragments, derives a grammar that
pins down the LaTeX structure of each fragment, translates the fragments
concurrently and reassembles the document in its original order.

Fragments that cannot be translated keep their original text, so the
output is always a complete document.`,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (JSON or YAML; default ~/.config/ltxtrans/ltxtrans.json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(anchorsCmd)
	rootCmd.AddCommand(grammarCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initLogging(cmd *cobra.Command, args []string) error {
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	switch {
	case verbose:
		level = logger.LevelDebug
	case quiet:
		level = logger.LevelError
	}
	return logger.Init(&logger.Config{
		LogFilePath:   logFile,
		MaxFileSize:   10 * 1024 * 1024,
		MaxBackups:    5,
		Level:         level,
		EnableConsole: true,
	})
}

// loadConfig loads the config file and environment. Flag overrides are
// applied by the caller before validating.
func loadConfig() (*types.Config, error) {
	m, err := config.NewConfigManager(configPath)
	if err != nil {
		return nil, err
	}
	if err := m.Load(); err != nil {
		return nil, err
	}
	logger.Debug("config loaded", logger.String("path", m.GetConfigPath()))
	return m.GetConfig(), nil
}

func validateConfig(cfg *types.Config) error {
	res := config.ValidateConfig(cfg)
	if res.IsValid {
		return nil
	}
	for _, e := range res.Errors {
		logger.Error("invalid configuration", nil, logger.String("field", e.Field), logger.String("problem", e.Message))
	}
	return res.Err()
}
