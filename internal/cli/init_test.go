package cli

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlog/internal/config"
	"spendlog/internal/log"
)

func TestGracefulShutdown_RunsEveryStep(t *testing.T) {
	var order []string
	errFirst := errors.New("first failed")

	err := GracefulShutdown(log.Discard(), time.Second,
		func(context.Context) error { order = append(order, "server"); return errFirst },
		func(ctx context.Context) error {
			order = append(order, "store")
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil
		},
	)

	assert.Equal(t, []string{"server", "store"}, order)
	assert.ErrorIs(t, err, errFirst)
}

func TestGracefulShutdown_NoSteps(t *testing.T) {
	assert.NoError(t, GracefulShutdown(log.Discard(), time.Second))
}

func TestValidate_JoinsExtraChecks(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_FORMAT", "text")
	cfg := config.Load()

	require.NoError(t, validate(cfg))

	err := validate(cfg, (*config.Config).ValidateWorker)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AMQP_URL is required")
}

func TestSetupLogger(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug", LogFormat: "json"}
	logger := SetupLogger(cfg, log.ComponentWorker)
	assert.Equal(t, log.ComponentWorker, logger.Component())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
