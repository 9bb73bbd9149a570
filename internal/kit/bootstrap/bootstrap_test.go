package bootstrap

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/JoeShih716/virtual-audience/internal/config"
)

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	logger := NewLogger(cfg)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	cfg.App.Env = "prod"
	logger = NewLogger(cfg)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.IsType(t, &slog.JSONHandler{}, logger.Handler())
}

func TestHealthServer_Status(t *testing.T) {
	hs := NewHealthServer(0)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, hs.Check())

	hs.SetServing(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hs.Check())

	hs.SetServing(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, hs.Check())
	hs.Stop()
}
