package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ltxtrans/internal/cache"
	"ltxtrans/internal/logger"
	"ltxtrans/internal/pipeline"
	"ltxtrans/internal/server"
	"ltxtrans/internal/translator"
	"ltxtrans/internal/types"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the parser, splitter and grammar generator over HTTP:

  POST /v1/parse      document tree
  POST /v1/split      fragments
  POST /v1/grammar    constraint grammar of a fragment
  POST /v1/anchors    anchors and intervals
  POST /v1/translate  whole-document translation (needs an API key)
  GET  /healthz

The server stops on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runner *pipeline.Runner
	engine, err := translator.NewTranslationEngine(ctx, cfg)
	switch {
	case types.CodeOf(err) == types.ErrConfig:
		logger.Warn("translation disabled", logger.Err(err))
	case err != nil:
		return err
	default:
		opts := []pipeline.Option{pipeline.WithModel(engine.GetModel())}
		if cfg.CachePath != "" {
			tm, err := cache.Open(cfg.CachePath)
			if err != nil {
				return err
			}
			defer tm.Close()
			opts = append(opts, pipeline.WithCache(tm))
		}
		runner = pipeline.NewRunner(cfg, engine, opts...)
	}

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           server.NewServer(cfg, runner),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", logger.String("addr", serveAddr), logger.Bool("translate", runner != nil))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
