package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendlog/internal/backend"
	"spendlog/internal/cache"
	"spendlog/internal/cli"
	apphttp "spendlog/internal/http"
	"spendlog/internal/log"
	"spendlog/internal/ocr"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ocrClient := ocr.New(cfg.OCRSpaceAPIKey, cfg.OCRSpaceURL, cfg.OCRTimeout)
	if !ocrClient.Configured() {
		logger.Warn("OCR_SPACE_API_KEY not set, receipt extraction disabled")
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:            ":" + cfg.Port,
		CORSOrigin:      cfg.CORSAllowedOrigin,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CacheTTL:        cfg.CacheTTL,
		Logger:          logger,
	}, result.Expenses, result.Dashboard, ocrClient)

	caches := cache.NewManager(logger)
	srv.RegisterCaches(caches)
	caches.StartCleanup(time.Minute)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spendlog server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return cli.GracefulShutdown(logger, 30*time.Second,
			srv.Shutdown,
			func(context.Context) error { caches.Stop(); return nil },
			func(context.Context) error { return result.Cleanup() },
		)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
