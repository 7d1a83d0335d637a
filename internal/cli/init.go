// Package cli holds the start-up and shutdown steps shared by the spendlog
// binaries.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendlog/internal/config"
	"spendlog/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and the configuration, sets up logging and validates
// the configuration with Validate plus any extra checks. It exits the
// process when validation fails.
func Bootstrap(component string, extra ...func(*config.Config) error) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	LoadAndValidateConfig(logger, cfg, extra...)
	return cfg, logger
}

// LoadAndValidateConfig validates cfg, exiting the process on failure.
func LoadAndValidateConfig(logger *log.Logger, cfg *config.Config, extra ...func(*config.Config) error) {
	if err := validate(cfg, extra...); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
}

func validate(cfg *config.Config, extra ...func(*config.Config) error) error {
	errs := []error{cfg.Validate()}
	for _, check := range extra {
		errs = append(errs, check(cfg))
	}
	return errors.Join(errs...)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}

// GracefulShutdown runs every step under one timeout and returns their
// joined errors. Steps run in order; a failing step does not stop the rest.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, steps ...func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, step := range steps {
		if err := step(ctx); err != nil {
			logger.Error("Shutdown step failed", "error", err)
			errs = append(errs, err)
		}
	}
	if ctx.Err() != nil {
		logger.Warn("Shutdown timeout reached", "timeout", timeout)
	} else {
		logger.Info("Shutdown complete")
	}
	return errors.Join(errs...)
}
