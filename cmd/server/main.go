package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dumasj/fastai-v3/internal/analysis"
	"github.com/dumasj/fastai-v3/internal/artifact"
	"github.com/dumasj/fastai-v3/internal/catalog"
	"github.com/dumasj/fastai-v3/internal/config"
	"github.com/dumasj/fastai-v3/internal/handlers"
	"github.com/dumasj/fastai-v3/internal/metrics"
	"github.com/dumasj/fastai-v3/internal/model"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, serveMode(os.Args[1:])); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func setupLogging(cfg *config.Config) {
	zerolog.SetGlobalLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func serveMode(args []string) bool {
	for _, a := range args {
		if a == "serve" {
			return true
		}
	}
	return false
}

func run(ctx context.Context, cfg *config.Config, serve bool) error {
	fetcher := artifact.NewFetcher(&http.Client{}, cfg.GCSCredentialsFile)
	if err := fetcher.Ensure(ctx, cfg.ArtifactURL, cfg.ArtifactPath); err != nil {
		return fmt.Errorf("failed to fetch model artifact: %w", err)
	}

	meta, err := model.LoadMetadata(cfg.MetadataPath)
	if err != nil {
		return err
	}

	log.Info().Str("path", cfg.ArtifactPath).Msg("loading model")
	classifier, err := model.NewServer(cfg.ArtifactPath, cfg.ONNXRuntimeLib, meta)
	if err != nil {
		return fmt.Errorf("failed to initialize model server: %w", err)
	}
	defer classifier.Close()

	prices, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	if err := prices.Validate(classifier.Classes()); err != nil {
		return fmt.Errorf("price catalog does not cover the model: %w", err)
	}

	log.Info().
		Strs("classes", classifier.Classes()).
		Float64("threshold", cfg.ConfidenceThreshold).
		Msg("model loaded")

	if !serve {
		log.Info().Msg("setup complete, pass 'serve' to start the server")
		return nil
	}

	prom := metrics.NewPrometheusMetrics()
	analyzer := analysis.NewAnalyzer(classifier, prices, cfg.ConfidenceThreshold, prom)
	handler := handlers.NewHandler(analyzer, cfg.MaxUploadBytes, prom)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.NewRouter(handler, prom.Handler(), log.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}
